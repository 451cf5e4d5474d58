package imagemap

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize produces canonical lookup key for a free text name: surrounding
// whitespace removed and lower-cased. Punctuation and inner whitespace are
// kept as is, so names like "thai massage & wellness" must be registered
// verbatim.
func Normalize(name string) string {
	// Caser keeps state and cannot be shared between goroutines
	return cases.Lower(language.Und).String(strings.TrimFunc(name, isTrimmable))
}

// isTrimmable also drops byte order mark left by copy-pasted names.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
