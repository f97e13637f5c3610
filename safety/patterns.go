package safety

import "regexp"

// Card-number grammars for the sensitive-data scan. One pattern per card
// family so a match can be attributed during debugging.
var cardPatterns = map[string]*regexp.Regexp{
	"Visa":             regexp.MustCompile(`\b4[0-9]{3}[ -]?[0-9]{4}[ -]?[0-9]{4}[ -]?[0-9]{4}\b`),
	"MasterCard":       regexp.MustCompile(`\b(?:5[1-5][0-9]{2}|222[1-9]|22[3-9][0-9]|2[3-6][0-9]{2}|27[01][0-9]|2720)[0-9]{12}\b`),
	"American Express": regexp.MustCompile(`\b3[47][0-9]{13}\b`),
	"Diners Club":      regexp.MustCompile(`\b3(?:0[0-5]|[68][0-9])[0-9]{11}\b`),
	"Discover":         regexp.MustCompile(`\b6(?:011[0-9][0-9]|5[0-9]{4}|4[4-9][0-9]{3}|22(?:1(?:2[6-9]|[3-9][0-9])|[2-8][0-9][0-9]|9(?:[01][0-9]|2[0-5])))[0-9]{10}\b`),
	"JCB":              regexp.MustCompile(`\b(?:2131|1800|35[0-9]{3})[0-9]{11}\b`),
}

var sensitivePatterns = map[string]*regexp.Regexp{
	"Email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"IPv4Address": regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\b`),
}

// containsSensitiveData reports whether the text matches any card-number,
// email, or bare IPv4 grammar.
func containsSensitiveData(text string) bool {
	for _, p := range cardPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	for _, p := range sensitivePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
