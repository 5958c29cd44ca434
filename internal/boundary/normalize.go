package boundary

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Join modes for matching boundary names to data rows.
const (
	JoinExact = "exact"
	JoinFold  = "fold"
)

// Normalizer maps a name to its join key.
type Normalizer func(string) string

// Exact is the identity normalizer.
func Exact(s string) string { return s }

// Fold trims, strips combining marks and case-folds s, so "Århus" and
// "arhus" share a key. Letters without a decomposition (ø, æ) are kept.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}

// NewNormalizer returns the normalizer for a join mode. An empty mode is exact.
func NewNormalizer(mode string) (Normalizer, error) {
	switch mode {
	case "", JoinExact:
		return Exact, nil
	case JoinFold:
		return Fold, nil
	default:
		return nil, eris.Errorf("boundary: unknown join mode %q", mode)
	}
}
