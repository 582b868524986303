package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// skillVocab is the extraction vocabulary for descriptions that don't list
// skills explicitly. Multi-word entries are matched as substrings of the
// lowercased description.
var skillVocab = []string{
	"python", "java", "javascript", "typescript", "go", "rust", "c++", "c#",
	"react", "angular", "vue", "node.js", "django", "flask", "spring",
	"sql", "postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"aws", "gcp", "azure", "docker", "kubernetes", "terraform", "jenkins",
	"git", "linux", "ci/cd", "graphql", "rest", "grpc", "kafka",
	"machine learning", "deep learning", "data science", "nlp",
	"tensorflow", "pytorch", "spark", "airflow",
	"microservices", "agile", "scrum",
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func init() {
	for _, s := range skillVocab {
		if !strings.ContainsAny(s, " ./+#") {
			wordBoundaryCache[s] = regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
		}
	}
}

// Skills extracts known skill tags from description text. Single-word skills
// match on word boundaries so "go" doesn't fire on "google".
func Skills(desc string) []string {
	low := strings.ToLower(desc)
	var out []string
	for _, s := range skillVocab {
		if re, ok := wordBoundaryCache[s]; ok {
			if re.MatchString(low) {
				out = append(out, s)
			}
		} else if strings.Contains(low, s) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

var expYearsRe = regexp.MustCompile(`(\d{1,2})\s*\+?\s*(?:years|yrs|year)`)

var levelYears = []struct {
	needle string
	years  int
}{
	{"principal", 10},
	{"staff", 8},
	{"lead", 7},
	{"senior", 5},
	{"sr.", 5},
	{"mid-level", 3},
	{"junior", 1},
	{"jr.", 1},
	{"entry level", 0},
	{"intern", 0},
}

// ExperienceYears estimates the years of experience a posting asks for, from
// explicit "N+ years" phrases first, title seniority markers second.
// Returns 0 when there is no signal.
func ExperienceYears(title, desc string) int {
	low := strings.ToLower(title + " " + desc)
	if m := expYearsRe.FindStringSubmatch(low); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 30 {
			return n
		}
	}
	lt := strings.ToLower(title)
	for _, lv := range levelYears {
		if strings.Contains(lt, lv.needle) {
			return lv.years
		}
	}
	return 0
}

// UnionTags merges two tag sets, lowercased, deduped, sorted.
func UnionTags(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			k := strings.ToLower(CleanText(t))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
