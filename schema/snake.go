package schema

import (
	"strings"
	"unicode"
)

// Snake derives a column name from a Go field name. An underscore is
// inserted before every upper-case letter that is neither the first
// character nor preceded by an underscore or another upper-case letter,
// and the result is lower-cased.
//
//	Snake("FirstName") // first_name
//	Snake("userID")    // user_id
//	Snake("HTTPCode")  // httpcode
func Snake(s string) string {
	var (
		b    strings.Builder
		prev rune
	)
	b.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && prev != '_' && !unicode.IsUpper(prev) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}
