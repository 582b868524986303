package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
)

var careersAnchorWords = []string{
	"careers", "jobs", "work with us", "join us", "open roles", "positions", "we're hiring",
}

// vendor job boards linked from homepages; an explicit board link beats a
// generic /careers path
var vendorBoardHosts = []string{
	"boards.greenhouse.io",
	"jobs.lever.co",
	"jobs.ashbyhq.com",
	"myworkdayjobs.com",
	"smartrecruiters.com",
}

var careersFallbackPaths = []string{"/careers", "/jobs", "/company/careers", "/careers/"}

// FindCareersURL scans a company homepage for its careers page: explicit
// anchors first, vendor board links second, common path suffixes last.
func FindCareersURL(ctx context.Context, hc *http.Client, homepage string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, homepage, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := hc.Do(req)
	if err != nil {
		return "", &domain.FetchError{URL: homepage, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &domain.FetchError{URL: homepage, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &domain.ParseError{Reason: "homepage html: " + err.Error()}
	}

	base, _ := url.Parse(homepage)

	var vendorHit, anchorHit string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		abs := resolveURL(base, href)
		if abs == "" {
			return true
		}
		low := strings.ToLower(abs)
		for _, h := range vendorBoardHosts {
			if strings.Contains(low, h) {
				vendorHit = abs
				return false
			}
		}
		if anchorHit == "" {
			text := strings.ToLower(normalize.CleanText(a.Text()))
			for _, w := range careersAnchorWords {
				if strings.Contains(text, w) {
					anchorHit = abs
					break
				}
			}
		}
		return true
	})
	if vendorHit != "" {
		return vendorHit, nil
	}
	if anchorHit != "" {
		return anchorHit, nil
	}

	// last resort: probe conventional paths
	for _, p := range careersFallbackPaths {
		candidate := resolveURL(base, p)
		if candidate == "" {
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
		if err != nil {
			continue
		}
		resp, err := hc.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return candidate, nil
		}
	}
	return "", nil
}

func resolveURL(base *url.URL, href string) string {
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
	return u.String()
}
