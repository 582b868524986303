package aggregate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
)

// PageScraper is the built-in best-effort career-page scraper. Vendor boards
// and bespoke pages vary wildly; this walks posting-shaped anchors and
// hydrates each job page for the real title/location/description.
type PageScraper struct {
	hc          *http.Client
	maxPostings int
}

func NewPageScraper() *PageScraper {
	return &PageScraper{
		hc:          &http.Client{Timeout: 20 * time.Second},
		maxPostings: 200,
	}
}

var jobHrefHints = []string{"/jobs/", "/job/", "/careers/", "/positions/", "/openings/", "/roles/"}

func (s *PageScraper) Scrape(ctx context.Context, company domain.Company) ([]domain.RawPosting, error) {
	doc, err := s.get(ctx, company.CareerURL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(company.CareerURL)
	seen := map[string]bool{}
	var links []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if len(links) >= s.maxPostings {
			return
		}
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := resolveRef(base, href)
		if abs == "" || seen[abs] {
			return
		}
		low := strings.ToLower(abs)
		for _, hint := range jobHrefHints {
			if strings.Contains(low, hint) {
				seen[abs] = true
				links = append(links, abs)
				break
			}
		}
	})

	var out []domain.RawPosting
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p, err := s.hydrate(ctx, link)
		if err != nil {
			// one broken job page shouldn't sink the scrape
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PageScraper) hydrate(ctx context.Context, jobURL string) (domain.RawPosting, error) {
	doc, err := s.get(ctx, jobURL)
	if err != nil {
		return domain.RawPosting{}, err
	}

	p := domain.RawPosting{SourceURL: jobURL}
	p.Title = normalize.CleanText(doc.Find("h1").First().Text())
	if p.Title == "" {
		p.Title = normalize.CleanText(doc.Find("title").First().Text())
	}

	for _, sel := range []string{".location", ".job__location", "[data-testid='job-location']", "[data-testid='location']"} {
		if t := normalize.CleanText(doc.Find(sel).First().Text()); t != "" {
			p.Location = t
			break
		}
	}

	for _, sel := range []string{"#content", ".job-description", ".description", "main", "article", "body"} {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if h, err := node.Html(); err == nil && normalize.CleanText(node.Text()) != "" {
			p.Description = h
			break
		}
	}

	for _, sel := range []string{".salary", "[data-testid='salary']"} {
		if t := normalize.CleanText(doc.Find(sel).First().Text()); t != "" {
			p.SalaryText = t
			break
		}
	}

	if t, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		p.PostedAtText = t
	} else if t, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		p.PostedAtText = t
	}

	return p, nil
}

func (s *PageScraper) get(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &domain.FetchError{URL: target, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &domain.ParseError{Reason: "career page html: " + err.Error()}
	}
	return doc, nil
}

func resolveRef(base *url.URL, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	u.Fragment = ""
	return u.String()
}
