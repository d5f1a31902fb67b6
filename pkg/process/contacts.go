package process

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	// Optional '+', a digit, at least 7 digits/separators, then a final digit
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-.()]{7,}\d`)
)

// ExtractContacts finds email addresses and phone numbers in text.
// Both results are deduplicated in first-occurrence order; nil when nothing matched.
func ExtractContacts(text string) (emails, phones []string) {
	if text == "" {
		return nil, nil
	}
	return uniqueMatches(emailPattern, text), uniqueMatches(phonePattern, text)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
