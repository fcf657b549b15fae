package util

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultPhoneRegion = "US"

var (
	ErrInvalidPhone = errors.New("the string supplied did not seem to be a phone number")

	nonDialable = regexp.MustCompile(`[^\d\+]+`)
)

// NormalizePhone strips formatting and converts a 00 international prefix to +.
func NormalizePhone(raw string) string {
	s := nonDialable.ReplaceAllString(strings.TrimSpace(raw), "")
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	return s
}

// FormatE164 parses raw (falling back to the US region for national numbers) and
// formats it as E.164.
func FormatE164(raw string) (string, error) {
	s := NormalizePhone(raw)
	if s == "" {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(s, DefaultPhoneRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
