package util

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                 "***",
		"12345678":         "***",
		"123456789":        "123***789",
		"+15551234567":     "+15***567",
		"jane@example.com": "jan***com",
	}
	for in, want := range cases {
		assert.Equal(t, want, Redact(in), in)
	}
}

func TestRedactCountsCharacters(t *testing.T) {
	got := Redact("José@éxamplé.fr")
	assert.Equal(t, "Jos***.fr", got)
	assert.True(t, utf8.ValidString(Redact("ééééééééé")))
	assert.Equal(t, "***", Redact("éééééééé"))
}

func TestRedactPhones(t *testing.T) {
	got := RedactPhones("The 'To' number +15551234567 is not a valid phone number.")
	assert.Equal(t, "The 'To' number +15***567 is not a valid phone number.", got)
	assert.Equal(t, "code 21211", RedactPhones("code 21211"))
}

func TestFormatE164(t *testing.T) {
	got, err := FormatE164("(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = FormatE164("0044 20 7946 0958")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", got)

	_, err = FormatE164("not-a-number")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestNewIDAt_OrderedWithinMillisecond(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	a, b := NewIDAt(at), NewIDAt(at)
	assert.Less(t, a, b)

	got, ok := IDTime(a)
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	_, ok = IDTime("nope")
	assert.False(t, ok)
}
