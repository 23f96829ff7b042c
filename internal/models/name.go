// internal/models/name.go
package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Company-form words that do not distinguish one trade name from another.
var companyFormWords = map[string]struct{}{
	"شركه":     {},
	"محدوده":   {},
	"المحدوده": {},
	"company":  {},
	"co":       {},
	"ltd":      {},
	"llc":      {},
	"limited":  {},
}

var arabicFold = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ٱ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ؤ", "و",
	"ئ", "ي",
)

// NormalizeCompanyName folds a proposed trade name into the form used for
// availability matching.
func NormalizeCompanyName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == 'ـ':
			return -1
		case r >= 0x064B && r <= 0x065F, r == 0x0670:
			return -1
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	s = arabicFold.Replace(s)

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, skip := companyFormWords[f]; skip {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
