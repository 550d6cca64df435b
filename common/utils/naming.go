package utils

import (
	"math/rand"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateMatchCode returns a short random alphanumeric code. It is not
// guaranteed unique; the Code column's unique constraint is the backstop.
func GenerateMatchCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(b)
}

// GenerateMatchID builds the human-readable match id: YYYYMMDD_CODE_Name,
// with spaces dropped from the name.
func GenerateMatchID(name string, code string, now time.Time) string {
	compact := strings.ReplaceAll(name, " ", "")
	return now.Format("20060102") + "_" + code + "_" + compact
}

// NormalizeFolderName strips diacritics and every non-alphanumeric rune
// except underscore, so the result is safe as a directory name on any node.
// Vietnamese đ/Đ fold to d/D since NFD leaves them untouched.
func NormalizeFolderName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == 'đ':
			b.WriteRune('d')
		case r == 'Đ':
			b.WriteRune('D')
		}
	}
	return b.String()
}
