package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legal suffixes stripped from company names before dedup comparison
var legalSuffixes = []string{
	"inc", "inc.", "incorporated",
	"llc", "l.l.c.",
	"ltd", "ltd.", "limited",
	"gmbh", "ag", "sa", "s.a.", "bv", "b.v.",
	"plc", "pvt", "pvt.", "private",
	"corp", "corp.", "corporation",
	"co", "co.", "company",
	"technologies", "labs",
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CompanyKey normalizes a company name into its dedup form: lowercase,
// diacritics stripped, punctuation removed, trailing legal suffixes dropped,
// whitespace collapsed. "ACME, Inc." and "Acme Inc" map to "acme".
func CompanyKey(name string) string {
	s := strings.ToLower(CleanText(name))
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// punctuation separates words rather than gluing them
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for len(fields) > 1 && isLegalSuffix(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isLegalSuffix(w string) bool {
	for _, s := range legalSuffixes {
		if w == strings.Trim(s, ".") || w == s {
			return true
		}
	}
	return false
}

// Domain canonicalizes a company domain or URL to a bare lowercase host.
func Domain(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			raw = u.Host
		}
	}
	raw = strings.TrimPrefix(raw, "www.")
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
