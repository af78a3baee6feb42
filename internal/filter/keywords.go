package filter

import "strings"

// MatchKeywords returns the keywords that occur in text, compared case-insensitively
// as plain substrings, in keyword-list order. It returns nil when fewer than
// minMatch keywords were found; minMatch below 1 behaves as 1.
func MatchKeywords(text string, keywords []string, minMatch int) []string {
	if minMatch < 1 {
		minMatch = 1
	}

	lower := strings.ToLower(text)
	var found []string
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			found = append(found, k)
		}
	}

	if len(found) < minMatch {
		return nil
	}
	return found
}
