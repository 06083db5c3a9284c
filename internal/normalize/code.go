package normalize

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// A code token is a contiguous run of alphanumerics/hyphens, at least 3
// characters long and containing at least one digit.
const codeToken = `[A-Za-z0-9ÇĞİÖŞÜçğıöşü-]{3,}`

// Code-first patterns are checked before parenthetical ones: vendor codes
// are more often prefixed than parenthesized. First match wins.
var codeDescPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(` + codeToken + `)\s*/\s*(.+)$`),        // CODE / Description
	regexp.MustCompile(`^(.+?)\s*/\s*(` + codeToken + `)$`),       // Description / CODE
	regexp.MustCompile(`^(.+?)\s*\((` + codeToken + `)\)$`),       // Description (CODE)
	regexp.MustCompile(`^\((` + codeToken + `)\)\s*(.+)$`),        // (CODE) Description
}

// codeGroup says which capture group holds the code for each pattern.
var codeGroup = []int{1, 2, 2, 1}

var digitRe = regexp.MustCompile(`\d`)

// SplitCodeDescription splits raw product text into (code, description).
// When no pattern matches, the first whitespace-delimited token becomes
// the code and the remainder the description.
func SplitCodeDescription(text string) (code, desc string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	for i, pat := range codeDescPatterns {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c := m[codeGroup[i]]
		if !digitRe.MatchString(c) {
			continue
		}
		d := m[3-codeGroup[i]]
		return strings.TrimSpace(c), strings.TrimSpace(d)
	}
	if i := strings.IndexFunc(text, unicode.IsSpace); i > 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i:])
	}
	return text, ""
}

var brandToken = regexp.MustCompile(`[\s_-]+`)
var hasLetter = regexp.MustCompile(`[A-Za-zÇĞİÖŞÜçğıöşü]`)

// DetectBrand infers a brand name from a file name: the leading
// capitalized tokens of the base name, or "" when nothing qualifies.
func DetectBrand(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	var parts []string
	for _, tok := range brandToken.Split(base, -1) {
		if tok == "" {
			continue
		}
		if len(parts) == 0 {
			if hasLetter.MatchString(tok) {
				parts = append(parts, tok)
			}
			continue
		}
		first, _ := firstRune(tok)
		if unicode.IsUpper(first) || (hasLetter.MatchString(tok) && tok == strings.ToUpper(tok)) {
			parts = append(parts, tok)
		} else {
			break
		}
	}
	return strings.Join(parts, " ")
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
