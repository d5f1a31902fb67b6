package parse

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// ParseSitemap returns the trimmed text of every <loc> element in doc, in document order.
// Works for both <urlset> and <sitemapindex> documents and ignores namespaces.
// The decoder is lenient: on the first syntax error it stops and returns what it has collected.
func ParseSitemap(doc []byte) []string {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	// Declared charsets other than UTF-8 are read as-is
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	var locs []string
	var text strings.Builder
	depth := 0 // nesting depth inside the current <loc>

	for {
		tok, err := decoder.Token()
		if err != nil {
			break // io.EOF or syntax error, keep what we have
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if strings.EqualFold(t.Name.Local, "loc") {
				depth = 1
				text.Reset()
			}
		case xml.CharData:
			if depth > 0 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if loc := strings.TrimSpace(text.String()); loc != "" {
					locs = append(locs, loc)
				}
			}
		}
	}
	return locs
}
