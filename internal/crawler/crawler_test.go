package crawler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"

	"github.com/durgesh-code/ai-job-agent/internal/crawler"
	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
	"github.com/durgesh-code/ai-job-agent/internal/store"
)

func newCrawler(t *testing.T) (*crawler.Crawler, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := zap.NewNop()
	return crawler.New(db, scaling.New(scaling.Config{}, log), log), db
}

func TestMergeCompany(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given name-only candidates with naming noise", t, func() {
		c, db := newCrawler(t)

		first, err := c.MergeCompany(ctx, domain.CompanyCandidate{
			Name: "Acme Inc", Category: domain.CategoryStartup,
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(first.Created, convey.ShouldBeTrue)

		convey.Convey("When the same company arrives spelled differently", func() {
			second, err := c.MergeCompany(ctx, domain.CompanyCandidate{
				Name: "ACME, Inc.", Category: domain.CategoryStartup, Sector: "fintech",
			})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it merges into the existing row", func() {
				convey.So(second.Created, convey.ShouldBeFalse)
				convey.So(second.CompanyID, convey.ShouldEqual, first.CompanyID)

				got, err := store.GetCompany(ctx, db.Pool, first.CompanyID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Identity, convey.ShouldEqual, "acme")
				convey.So(got.LowConfidence, convey.ShouldBeTrue)
				convey.So(got.TechStack, convey.ShouldResemble, []string{"fintech"})
			})
		})

		convey.Convey("When a candidate has no name", func() {
			_, err := c.MergeCompany(ctx, domain.CompanyCandidate{Category: domain.CategoryOther})
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a candidate has a bogus category", func() {
			_, err := c.MergeCompany(ctx, domain.CompanyCandidate{
				Name: "X", Category: domain.CompanyCategory("conglomerate"),
			})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestFindCareersURL(t *testing.T) {
	ctx := context.Background()
	hc := &http.Client{Timeout: 5 * time.Second}

	convey.Convey("Given a homepage with a careers anchor", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				w.Write([]byte(`<html><body><a href="/about">About</a><a href="/work-here">Careers</a></body></html>`))
				return
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		got, err := crawler.FindCareersURL(ctx, hc, srv.URL)
		convey.So(err, convey.ShouldBeNil)
		convey.So(got, convey.ShouldEqual, srv.URL+"/work-here")
	})

	convey.Convey("Given a homepage linking a vendor board", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body>
<a href="/careers-info">Careers</a>
<a href="https://boards.greenhouse.io/acme">Open roles</a>
</body></html>`))
		}))
		defer srv.Close()

		got, err := crawler.FindCareersURL(ctx, hc, srv.URL)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the board link beats the generic anchor", func() {
			convey.So(got, convey.ShouldEqual, "https://boards.greenhouse.io/acme")
		})
	})

	convey.Convey("Given a homepage with no hints but a live /careers path", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/", "/careers":
				w.Write([]byte("<html><body>hello</body></html>"))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		got, err := crawler.FindCareersURL(ctx, hc, srv.URL)
		convey.So(err, convey.ShouldBeNil)
		convey.So(got, convey.ShouldEqual, srv.URL+"/careers")
	})

	convey.Convey("Given an unreachable homepage", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := crawler.FindCareersURL(ctx, hc, srv.URL)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestDirectorySource(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a directory API", t, func() {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"companies":[
{"name":"Acme","domain":"acme.com","category":"startup","sector":"fintech"},
{"name":"Mega","domain":"mega.com","category":"mnc"}
]}`))
		}))
		defer srv.Close()

		scaler := scaling.New(scaling.Config{}, zap.NewNop())
		src := crawler.NewDirectorySource(srv.URL, "sekrit", scaler)

		cands, err := src.Discover(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then candidates are decoded with the key attached", func() {
			convey.So(gotAuth, convey.ShouldEqual, "Bearer sekrit")
			convey.So(len(cands), convey.ShouldEqual, 2)
			convey.So(cands[0].Domain, convey.ShouldEqual, "acme.com")
			convey.So(cands[1].Category, convey.ShouldEqual, domain.CategoryMNC)
		})
	})
}
