package process

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverLinks returns the absolute URLs of every <a href> in html, resolved against baseURL.
// Duplicates collapse; the result is sorted for stable logs. Hrefs that fail to parse are skipped,
// and an unparseable base yields no links.
func DiscoverLinks(baseURL string, html []byte) []string {
	if len(html) == 0 {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	found := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, element *goquery.Selection) {
		href, _ := element.Attr("href")
		ref, parseErr := url.Parse(strings.TrimSpace(href))
		if parseErr != nil {
			return
		}
		found[base.ResolveReference(ref).String()] = struct{}{}
	})

	if len(found) == 0 {
		return nil
	}
	links := make([]string, 0, len(found))
	for link := range found {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}
