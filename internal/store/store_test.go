package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpsertCompany(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an empty registry", t, func() {
		db := openTestDB(t)

		convey.Convey("When the same identity is discovered twice", func() {
			first, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity: "acme.com",
				Name:     "Acme",
				Domain:   "acme.com",
				Category: domain.CategoryStartup,
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(first.Created, convey.ShouldBeTrue)

			second, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity:   "acme.com",
				Name:       "ACME, Inc.",
				Domain:     "acme.com",
				Category:   domain.CategoryStartup,
				SizeBucket: "51-200",
				TechStack:  []string{"go"},
			})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then exactly one row exists and attributes merged", func() {
				convey.So(second.Created, convey.ShouldBeFalse)
				convey.So(second.CompanyID, convey.ShouldEqual, first.CompanyID)

				got, err := store.GetCompany(ctx, db.Pool, first.CompanyID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.SizeBucket, convey.ShouldEqual, "51-200")
				convey.So(got.TechStack, convey.ShouldResemble, []string{"go"})
				convey.So(got.Active, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a re-discovery disagrees on category", func() {
			first, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity: "orbit.io", Name: "Orbit", Category: domain.CategoryStartup,
			})
			convey.So(err, convey.ShouldBeNil)

			second, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity: "orbit.io", Name: "Orbit", Category: domain.CategoryMNC,
			})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the stored category wins and the conflict is flagged", func() {
				convey.So(second.CategoryConflict, convey.ShouldBeTrue)
				got, _ := store.GetCompany(ctx, db.Pool, first.CompanyID)
				convey.So(got.Category, convey.ShouldEqual, domain.CategoryStartup)
			})
		})

		convey.Convey("When a domain-backed record re-discovers a name-only one", func() {
			first, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity: "nimbus", Name: "Nimbus", LowConfidence: true,
			})
			convey.So(err, convey.ShouldBeNil)

			_, err = store.UpsertCompany(ctx, db.Pool, domain.Company{
				Identity: "nimbus", Name: "Nimbus", Domain: "nimbus.dev",
			})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then confidence upgrades and the domain fills in", func() {
				got, _ := store.GetCompany(ctx, db.Pool, first.CompanyID)
				convey.So(got.LowConfidence, convey.ShouldBeFalse)
				convey.So(got.Domain, convey.ShouldEqual, "nimbus.dev")
			})
		})
	})
}

func TestMarkCompanyScrape(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an active company", t, func() {
		db := openTestDB(t)
		out, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
			Identity: "quiet.co", Name: "Quiet", Category: domain.CategoryOther,
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When three consecutive scrapes come back empty", func() {
			var deactivated bool
			for i := 0; i < 3; i++ {
				deactivated, err = store.MarkCompanyScrape(ctx, db.Pool, out.CompanyID, false, 3)
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then the third one deactivates it", func() {
				convey.So(deactivated, convey.ShouldBeTrue)
				active, _ := store.ActiveCompanies(ctx, db.Pool)
				convey.So(active, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a non-empty scrape lands mid-streak", func() {
			_, _ = store.MarkCompanyScrape(ctx, db.Pool, out.CompanyID, false, 3)
			_, _ = store.MarkCompanyScrape(ctx, db.Pool, out.CompanyID, false, 3)
			deactivated, err := store.MarkCompanyScrape(ctx, db.Pool, out.CompanyID, true, 3)
			convey.So(err, convey.ShouldBeNil)
			convey.So(deactivated, convey.ShouldBeFalse)

			convey.Convey("Then the streak resets", func() {
				got, _ := store.GetCompany(ctx, db.Pool, out.CompanyID)
				convey.So(got.EmptyScrapes, convey.ShouldEqual, 0)
				convey.So(got.Active, convey.ShouldBeTrue)
			})
		})
	})
}

func testJob(companyID int64, identity, fingerprint string) domain.JobPosting {
	return domain.JobPosting{
		CompanyID:   companyID,
		Identity:    identity,
		Fingerprint: fingerprint,
		Title:       "Engineer",
		CleanDesc:   "build things",
		Location:    "Berlin",
		Skills:      []string{"go"},
		ScrapedAt:   time.Now().UTC().Truncate(time.Second),
		Status:      domain.JobOpen,
	}
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a company with one posting", t, func() {
		db := openTestDB(t)
		comp, err := store.UpsertCompany(ctx, db.Pool, domain.Company{
			Identity: "acme.com", Name: "Acme", Category: domain.CategoryStartup,
		})
		convey.So(err, convey.ShouldBeNil)

		job := testJob(comp.CompanyID, "acme.com|engineer|berlin", "fp1")
		id, err := store.InsertJob(ctx, db.Pool, job)
		convey.So(err, convey.ShouldBeNil)
		convey.So(id, convey.ShouldBeGreaterThan, 0)

		convey.Convey("When inserting the same identity again", func() {
			dupID, err := store.InsertJob(ctx, db.Pool, job)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then no second row appears", func() {
				convey.So(dupID, convey.ShouldEqual, id)
				n, _ := store.CountJobs(ctx, db.Pool)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the identity is looked up", func() {
			gotID, fp, _, found, err := store.LookupJob(ctx, db.Pool, job.Identity)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(gotID, convey.ShouldEqual, id)
			convey.So(fp, convey.ShouldEqual, "fp1")
		})

		convey.Convey("When the content changes", func() {
			revised := testJob(comp.CompanyID, job.Identity, "fp2")
			revised.CleanDesc = "build better things"
			err := store.ReviseJob(ctx, db.Pool, id, revised, "fp1", job.ScrapedAt)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the row is rewritten and the old fingerprint audited", func() {
				got, err := store.GetJob(ctx, db.Pool, id)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Fingerprint, convey.ShouldEqual, "fp2")
				convey.So(got.Status, convey.ShouldEqual, domain.JobOpen)

				revs, err := store.Revisions(ctx, db.Pool, id)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(revs), convey.ShouldEqual, 1)
				convey.So(revs[0].PrevFingerprint, convey.ShouldEqual, "fp1")

				n, _ := store.CountJobs(ctx, db.Pool)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the posting goes missing from three scrapes", func() {
			var stale []int64
			for i := 0; i < 3; i++ {
				stale, err = store.MarkAbsent(ctx, db.Pool, comp.CompanyID, nil, 3)
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then the third absence flips it stale", func() {
				convey.So(stale, convey.ShouldResemble, []int64{id})
				got, _ := store.GetJob(ctx, db.Pool, id)
				convey.So(got.Status, convey.ShouldEqual, domain.JobStale)
				open, _ := store.OpenJobIDs(ctx, db.Pool)
				convey.So(open, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the posting is observed again after absences", func() {
			_, err := store.MarkAbsent(ctx, db.Pool, comp.CompanyID, nil, 3)
			convey.So(err, convey.ShouldBeNil)
			err = store.TouchJob(ctx, db.Pool, id, time.Now().UTC())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the absent streak resets", func() {
				got, _ := store.GetJob(ctx, db.Pool, id)
				convey.So(got.AbsentRuns, convey.ShouldEqual, 0)
				convey.So(got.Status, convey.ShouldEqual, domain.JobOpen)
			})
		})

		convey.Convey("When loading match candidates", func() {
			cands, err := store.Candidates(ctx, db.Pool, []int64{id, 9999})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then only existing open jobs come back with categories", func() {
				convey.So(len(cands), convey.ShouldEqual, 1)
				convey.So(cands[id].Category, convey.ShouldEqual, domain.CategoryStartup)
				convey.So(cands[id].Job.Title, convey.ShouldEqual, "Engineer")
			})
		})
	})
}

func TestEmbeddings(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given stored vectors", t, func() {
		db := openTestDB(t)
		vec := []float32{0.5, -0.25, 0.125}

		convey.So(store.PutEmbedding(ctx, db.Pool, 7, "hashv1-d3", vec), convey.ShouldBeNil)
		convey.So(store.PutEmbedding(ctx, db.Pool, 3, "hashv1-d3", []float32{1, 0, 0}), convey.ShouldBeNil)

		convey.Convey("Then a vector round-trips exactly", func() {
			got, version, err := store.GetEmbedding(ctx, db.Pool, 7)
			convey.So(err, convey.ShouldBeNil)
			convey.So(version, convey.ShouldEqual, "hashv1-d3")
			convey.So(got, convey.ShouldResemble, vec)
		})

		convey.Convey("Then replacing a vector keeps one live row", func() {
			convey.So(store.PutEmbedding(ctx, db.Pool, 7, "hashv1-d3", []float32{0, 1, 0}), convey.ShouldBeNil)
			got, _, err := store.GetEmbedding(ctx, db.Pool, 7)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, []float32{0, 1, 0})
		})

		convey.Convey("Then the walk visits ascending job ids of one version", func() {
			convey.So(store.PutEmbedding(ctx, db.Pool, 99, "other", []float32{0, 0, 1}), convey.ShouldBeNil)
			var seen []int64
			err := store.WalkEmbeddings(ctx, db.Pool, "hashv1-d3", func(id int64, _ []float32) error {
				seen = append(seen, id)
				return nil
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(seen, convey.ShouldResemble, []int64{3, 7})
		})

		convey.Convey("Then a missing vector is nil without error", func() {
			got, version, err := store.GetEmbedding(ctx, db.Pool, 12345)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldBeNil)
			convey.So(version, convey.ShouldEqual, "")
		})

		convey.Convey("Then delete removes the row", func() {
			convey.So(store.DeleteEmbedding(ctx, db.Pool, 7), convey.ShouldBeNil)
			got, _, err := store.GetEmbedding(ctx, db.Pool, 7)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldBeNil)
		})
	})
}

func TestRuns(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given the run log", t, func() {
		db := openTestDB(t)

		convey.So(store.StartRun(ctx, db.Pool, "run-1", "discovery"), convey.ShouldBeNil)
		convey.So(store.FinishRun(ctx, db.Pool, "run-1", "ok", `{"created":2}`, ""), convey.ShouldBeNil)

		convey.Convey("Then the latest run of a type is reported", func() {
			id, status, _, err := store.LastRun(ctx, db.Pool, "discovery")
			convey.So(err, convey.ShouldBeNil)
			convey.So(id, convey.ShouldEqual, "run-1")
			convey.So(status, convey.ShouldEqual, "ok")
		})

		convey.Convey("Then an unknown type is empty without error", func() {
			id, _, _, err := store.LastRun(ctx, db.Pool, "aggregation")
			convey.So(err, convey.ShouldBeNil)
			convey.So(id, convey.ShouldEqual, "")
		})
	})
}
