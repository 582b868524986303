package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
)

var salaryNumRe = regexp.MustCompile(`(\d[\d,.]*)\s*([kK])?`)

var currencyHints = map[string]string{
	"$": "USD", "usd": "USD",
	"€": "EUR", "eur": "EUR",
	"£": "GBP", "gbp": "GBP",
	"₹": "INR", "inr": "INR", "lpa": "INR",
}

// Salary parses free-form salary text ("$120k - $150k", "80,000–100,000 EUR")
// into a range. Returns nil when nothing parseable is present; unknown salary
// is never an error.
func Salary(text string) *domain.SalaryRange {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	low := strings.ToLower(text)

	currency := ""
	for hint, code := range currencyHints {
		if strings.Contains(low, hint) {
			currency = code
			break
		}
	}

	var amounts []int
	for _, m := range salaryNumRe.FindAllStringSubmatch(text, 4) {
		raw := strings.ReplaceAll(m[1], ",", "")
		// "120.5" style decimals only show up with k-suffixes
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			f *= 1000
		}
		n := int(f)
		if n < 1000 {
			// single/double digit figures ("5+ years") are not salaries
			continue
		}
		amounts = append(amounts, n)
	}
	if len(amounts) == 0 {
		return nil
	}

	r := &domain.SalaryRange{Low: amounts[0], High: amounts[0], Currency: currency}
	if len(amounts) > 1 && amounts[1] >= amounts[0] {
		r.High = amounts[1]
	}
	return r
}
