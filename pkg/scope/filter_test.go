package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultPatterns = []string{"blog", "article", "news", ".pdf", "how-to", "top-10"}

func newDefaultFilter() *Filter {
	return NewFilter("example.com", Config{MaxPathLength: 15, ExcludePatterns: defaultPatterns})
}

func TestFilter_Admit_Domain(t *testing.T) {
	f := newDefaultFilter()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/", true},
		{"https://example.com", true},
		{"http://www.example.com/contact", true},
		{"https://shop.example.com/about", true},
		{"https://example.org/contact", false},
		{"https://notexample.com/contact", false},
		{"https://example.com.evil.net/contact", false},
		{"mailto:info@example.com", false},
		{"not a url at all", false},
		{"http://[::1", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Admit(tt.url), "Admit(%q)", tt.url)
	}
}

func TestFilter_Admit_PathLengthBoundary(t *testing.T) {
	f := newDefaultFilter()

	assert.True(t, f.Admit("https://example.com/about/team-abc"), "14 chars must be admitted")
	assert.False(t, f.Admit("https://example.com/about/team-abcd"), "15 chars must be rejected")
	assert.False(t, f.Admit("https://example.com/product-x-items"))
	assert.True(t, f.Admit("https://example.com//a//b//c/"), "empty segments do not count")
	assert.True(t, f.Admit("https://example.com/contact?ref=a-very-long-query-string"), "query is not part of the path")
}

func TestFilter_Admit_CustomMaxPathLength(t *testing.T) {
	f := NewFilter("example.com", Config{MaxPathLength: 30})
	assert.True(t, f.Admit("https://example.com/product-x-items"))
}

func TestFilter_Admit_OtherDomainAlwaysRejected(t *testing.T) {
	f := NewFilter("example.com", Config{MaxPathLength: 1000})
	for _, u := range []string{"https://other.com/", "https://a.b.other.com/x", "http://127.0.0.1/"} {
		assert.False(t, f.Admit(u), "Admit(%q)", u)
	}
}

func TestFilter_Excluded(t *testing.T) {
	f := newDefaultFilter()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/blog/post", true},
		{"https://example.com/BLOG/x", true},
		{"https://example.com/News", true},
		{"https://example.com/files/brochure.PDF", true},
		{"https://example.com/how-to-call", true},
		{"https://example.com/top-10", true},
		{"https://articles.example.com/", true},
		{"https://example.com/contact", false},
		{"https://example.com/about", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Excluded(tt.url), "Excluded(%q)", tt.url)
	}
}

func TestFilter_Excluded_PatternsAreCaseInsensitive(t *testing.T) {
	f := NewFilter("example.com", Config{MaxPathLength: 15, ExcludePatterns: []string{"Careers"}})
	assert.True(t, f.Excluded("https://example.com/careers"))
	assert.False(t, f.Excluded("https://example.com/blog"), "defaults are not implied")
}

func TestFilter_Excluded_EmptyPatternIgnored(t *testing.T) {
	f := NewFilter("example.com", Config{MaxPathLength: 15, ExcludePatterns: []string{""}})
	assert.False(t, f.Excluded("https://example.com/contact"))
}

func TestFilter_Allowed(t *testing.T) {
	f := newDefaultFilter()

	assert.True(t, f.Allowed("https://example.com/contact"))
	assert.False(t, f.Allowed("https://example.com/blog/post"), "excluded keyword")
	assert.False(t, f.Allowed("https://other.com/contact"), "foreign domain")
	assert.False(t, f.Allowed("https://example.com/a-really-long-path"), "path too long")
	assert.Equal(t, "example.com", f.TargetDomain())
}
