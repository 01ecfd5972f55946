package listing

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the matching key for s: accents stripped, case folded and
// inner whitespace collapsed. "Électrique " and "electrique" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// SpecValues turns one specification value into its display strings.
// Arrays are flattened, strings split on commas, booleans rendered Oui/Non
// and numbers printed without trailing zeros. Empty pieces are dropped.
func SpecValues(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch x := v.(type) {
		case nil:
		case string:
			for _, part := range strings.Split(x, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		case bool:
			if x {
				out = append(out, "Oui")
			} else {
				out = append(out, "Non")
			}
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case float32:
			out = append(out, strconv.FormatFloat(float64(x), 'f', -1, 32))
		case int:
			out = append(out, strconv.Itoa(x))
		case int64:
			out = append(out, strconv.FormatInt(x, 10))
		case []any:
			for _, e := range x {
				walk(e)
			}
		case []string:
			for _, e := range x {
				walk(e)
			}
		}
	}
	walk(v)
	return out
}

// foldedValues is SpecValues mapped through Fold.
func foldedValues(v any) []string {
	vals := SpecValues(v)
	for i := range vals {
		vals[i] = Fold(vals[i])
	}
	return vals
}
