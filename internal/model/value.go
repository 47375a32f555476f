package model

import "strings"

// unknownTokens are placeholder values the extraction pipeline emits when a
// field could not be determined. They never count as real values.
var unknownTokens = map[string]struct{}{
	"":        {},
	"unk":     {},
	"unknown": {},
	"n/a":     {},
	"null":    {},
	"-":       {},
}

// Unknown is the canonical placeholder written when a field is cleared.
const Unknown = "unk"

// NormValue trims surrounding whitespace. It preserves case; use EqualFoldTrim
// for comparisons.
func NormValue(v string) string {
	return strings.TrimSpace(v)
}

// IsMeaningful reports whether a value carries information, i.e. is not an
// unknown-token placeholder after trim+lowercase.
func IsMeaningful(v string) bool {
	_, unknown := unknownTokens[strings.ToLower(strings.TrimSpace(v))]
	return !unknown
}

// EqualFoldTrim compares two values ignoring case and surrounding whitespace.
func EqualFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
