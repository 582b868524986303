package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// Description flattens a scraped description to plain text. Career pages hand
// us either raw text or an HTML fragment; anything with markup goes through
// goquery so tags and scripts don't end up in fingerprints or embeddings.
func Description(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script,style,noscript").Remove()
			s = doc.Text()
		}
	}
	return CleanText(s)
}

func Location(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	loc = strings.TrimPrefix(loc, "Location:")
	loc = strings.TrimPrefix(loc, "LOCATIONS:")
	loc = strings.TrimSpace(loc)

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// LocationKey is the form used inside job identity tuples and for
// profile-preference comparison.
func LocationKey(loc string) string {
	return strings.ToLower(Location(loc))
}

func IsRemote(location, title, desc string) bool {
	blob := strings.ToLower(strings.Join([]string{location, title, desc}, " "))
	return strings.Contains(blob, "remote")
}

func TitleKey(title string) string {
	return strings.ToLower(CleanText(title))
}
