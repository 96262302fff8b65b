package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// articles that may precede a Dutch noun and are ignored when matching.
var articles = map[string]struct{}{
	"de":  {},
	"het": {},
	"een": {},
	"'t":  {},
}

// NormalizeAnswer folds an answer into its comparable form: lower case,
// no diacritics, no punctuation, single spaces and no leading articles.
// NormalizeAnswer(NormalizeAnswer(s)) == NormalizeAnswer(s).
func NormalizeAnswer(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(s)
	s = stripMarks(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '\'':
			return r
		default:
			return ' '
		}
	}, s)

	fields := strings.Fields(s)
	for len(fields) > 1 {
		if _, ok := articles[fields[0]]; !ok {
			break
		}
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// AcceptedAnswers expands a stored Dutch answer into every normalized form
// a player may type. Alternatives are separated by '/', ';' or ','; text in
// parentheses is optional. The canonical form comes first.
func AcceptedAnswers(dutch string) []string {
	parts := strings.FieldsFunc(dutch, func(r rune) bool {
		return r == '/' || r == ';' || r == ','
	})

	seen := make(map[string]struct{}, len(parts)*2)
	out := make([]string, 0, len(parts)*2)
	add := func(v string) {
		v = NormalizeAnswer(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for _, p := range parts {
		add(dropParenthesized(p))
		add(strings.NewReplacer("(", " ", ")", " ").Replace(p))
	}
	return out
}

// CheckAnswer reports whether input matches any accepted form of dutch.
func CheckAnswer(input, dutch string) bool {
	got := NormalizeAnswer(input)
	if got == "" {
		return false
	}
	for _, want := range AcceptedAnswers(dutch) {
		if got == want {
			return true
		}
	}
	return false
}

// CanonicalAnswer is the form shown to the player after a miss.
func CanonicalAnswer(dutch string) string {
	parts := strings.FieldsFunc(dutch, func(r rune) bool {
		return r == '/' || r == ';' || r == ','
	})
	if len(parts) == 0 {
		return strings.TrimSpace(dutch)
	}
	return strings.TrimSpace(parts[0])
}

func dropParenthesized(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
