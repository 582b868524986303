package normalize_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/durgesh-code/ai-job-agent/internal/normalize"
)

func TestCompanyKey(t *testing.T) {
	convey.Convey("Given company name variants", t, func() {
		convey.Convey("Then legal suffixes and punctuation don't split identity", func() {
			convey.So(normalize.CompanyKey("ACME, Inc."), convey.ShouldEqual, "acme")
			convey.So(normalize.CompanyKey("Acme Inc"), convey.ShouldEqual, "acme")
			convey.So(normalize.CompanyKey("acme"), convey.ShouldEqual, "acme")
		})

		convey.Convey("Then diacritics are stripped", func() {
			convey.So(normalize.CompanyKey("Café Technologies GmbH"), convey.ShouldEqual, "cafe")
		})

		convey.Convey("Then stacked suffixes all fall off", func() {
			convey.So(normalize.CompanyKey("Orbit Labs Ltd."), convey.ShouldEqual, "orbit")
		})

		convey.Convey("Then a name that is only a suffix word survives", func() {
			convey.So(normalize.CompanyKey("Labs"), convey.ShouldEqual, "labs")
		})
	})
}

func TestDomain(t *testing.T) {
	convey.Convey("Given URLs and bare domains", t, func() {
		convey.So(normalize.Domain("https://www.Example.com/careers?x=1"), convey.ShouldEqual, "example.com")
		convey.So(normalize.Domain("Example.com"), convey.ShouldEqual, "example.com")
		convey.So(normalize.Domain("  "), convey.ShouldEqual, "")
	})
}

func TestFingerprint(t *testing.T) {
	convey.Convey("Given description text", t, func() {
		a := normalize.Fingerprint("We build rockets")
		b := normalize.Fingerprint("we build rockets")
		c := normalize.Fingerprint("We build boats")

		convey.Convey("Then fingerprints are case-insensitive and content-sensitive", func() {
			convey.So(a, convey.ShouldEqual, b)
			convey.So(a, convey.ShouldNotEqual, c)
			convey.So(len(a), convey.ShouldEqual, 64)
		})
	})
}

func TestJobIdentity(t *testing.T) {
	convey.Convey("Given the same posting scraped twice with case noise", t, func() {
		a := normalize.JobIdentity("acme.com", "Senior Go Engineer", "Berlin, Germany")
		b := normalize.JobIdentity("acme.com", "senior go engineer", "berlin, germany")
		convey.So(a, convey.ShouldEqual, b)

		convey.Convey("Then a different location is a different identity", func() {
			c := normalize.JobIdentity("acme.com", "Senior Go Engineer", "Munich")
			convey.So(a, convey.ShouldNotEqual, c)
		})
	})
}

func TestDescription(t *testing.T) {
	convey.Convey("Given an HTML description fragment", t, func() {
		got := normalize.Description("<div><script>alert(1)</script><p>Build  things</p></div>")
		convey.So(got, convey.ShouldEqual, "Build things")

		convey.Convey("Then plain text passes through collapsed", func() {
			convey.So(normalize.Description("  plain   text "), convey.ShouldEqual, "plain text")
		})
	})
}

func TestLocation(t *testing.T) {
	convey.Convey("Given noisy location strings", t, func() {
		convey.So(normalize.Location("Location: Berlin , Germany, Berlin"), convey.ShouldEqual, "Berlin, Germany")
		convey.So(normalize.LocationKey("Berlin, Germany"), convey.ShouldEqual, "berlin, germany")
	})
}

func TestIsRemote(t *testing.T) {
	convey.Convey("Given location, title and description signals", t, func() {
		convey.So(normalize.IsRemote("Remote", "", ""), convey.ShouldBeTrue)
		convey.So(normalize.IsRemote("", "Engineer (Remote)", ""), convey.ShouldBeTrue)
		convey.So(normalize.IsRemote("Berlin", "Engineer", "onsite only"), convey.ShouldBeFalse)
	})
}

func TestSalary(t *testing.T) {
	convey.Convey("Given salary text variants", t, func() {
		convey.Convey("Then k-suffixed dollar ranges parse", func() {
			r := normalize.Salary("$120k - $150k")
			convey.So(r, convey.ShouldNotBeNil)
			convey.So(r.Low, convey.ShouldEqual, 120000)
			convey.So(r.High, convey.ShouldEqual, 150000)
			convey.So(r.Currency, convey.ShouldEqual, "USD")
		})

		convey.Convey("Then comma-grouped euro ranges parse", func() {
			r := normalize.Salary("80,000 - 100,000 EUR")
			convey.So(r, convey.ShouldNotBeNil)
			convey.So(r.Low, convey.ShouldEqual, 80000)
			convey.So(r.High, convey.ShouldEqual, 100000)
			convey.So(r.Currency, convey.ShouldEqual, "EUR")
		})

		convey.Convey("Then a single figure is a point range", func() {
			r := normalize.Salary("up to $90k")
			convey.So(r, convey.ShouldNotBeNil)
			convey.So(r.Low, convey.ShouldEqual, 90000)
			convey.So(r.High, convey.ShouldEqual, 90000)
		})

		convey.Convey("Then unparseable text is nil, not an error", func() {
			convey.So(normalize.Salary("competitive"), convey.ShouldBeNil)
			convey.So(normalize.Salary("5+ years required"), convey.ShouldBeNil)
			convey.So(normalize.Salary(""), convey.ShouldBeNil)
		})
	})
}

func TestSkills(t *testing.T) {
	convey.Convey("Given a description mentioning tools", t, func() {
		got := normalize.Skills("We use Go and Kubernetes at Google scale, plus machine learning.")

		convey.Convey("Then known skills are extracted sorted", func() {
			convey.So(got, convey.ShouldResemble, []string{"go", "kubernetes", "machine learning"})
		})

		convey.Convey("Then 'go' does not fire inside 'google'", func() {
			convey.So(normalize.Skills("google products only"), convey.ShouldBeEmpty)
		})
	})
}

func TestExperienceYears(t *testing.T) {
	convey.Convey("Given titles and descriptions", t, func() {
		convey.So(normalize.ExperienceYears("Engineer", "needs 5+ years of Go"), convey.ShouldEqual, 5)
		convey.So(normalize.ExperienceYears("Senior Engineer", ""), convey.ShouldEqual, 5)
		convey.So(normalize.ExperienceYears("Principal Engineer", ""), convey.ShouldEqual, 10)

		convey.Convey("Then an explicit figure beats the title marker", func() {
			convey.So(normalize.ExperienceYears("Senior Engineer", "3 years minimum"), convey.ShouldEqual, 3)
		})

		convey.Convey("Then no signal estimates zero", func() {
			convey.So(normalize.ExperienceYears("Engineer", "write software"), convey.ShouldEqual, 0)
		})
	})
}

func TestUnionTags(t *testing.T) {
	convey.Convey("Given overlapping tag sets", t, func() {
		got := normalize.UnionTags([]string{"Go", "SQL"}, []string{"sql", "Rust"})
		convey.So(got, convey.ShouldResemble, []string{"go", "rust", "sql"})
	})
}
