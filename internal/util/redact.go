package util

import "regexp"

const redactMask = "***"

var phoneLike = regexp.MustCompile(`\+?\d[\d\- ]{7,}\d`)

// Redact masks a PII value: first 3 + *** + last 3 for values over 8 chars,
// *** otherwise.
func Redact(v string) string {
	r := []rune(v)
	if len(r) <= 8 {
		return redactMask
	}
	return string(r[:3]) + redactMask + string(r[len(r)-3:])
}

// RedactPhones masks every phone-like run inside free text such as provider
// error messages.
func RedactPhones(s string) string {
	return phoneLike.ReplaceAllStringFunc(s, Redact)
}
