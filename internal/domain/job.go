package domain

import "time"

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
	JobStale  JobStatus = "stale"
)

// SalaryRange is a parsed salary band. Nil on a JobPosting means unknown.
type SalaryRange struct {
	Low      int
	High     int
	Currency string
}

type JobPosting struct {
	ID          int64
	CompanyID   int64
	Identity    string // company identity + normalized title + normalized location
	Fingerprint string // sha256 over cleaned description
	Title       string
	RawDesc     string
	CleanDesc   string
	Location    string
	Remote      bool
	Salary      *SalaryRange
	ExpYears    int // best-effort estimate, 0 = unknown
	Skills      []string
	PostedAt    *time.Time
	SourceURL   string
	ScrapedAt   time.Time
	Status      JobStatus
	AbsentRuns  int // consecutive re-scrapes that did not observe this posting
}

// Revision is the audit link kept when a posting's content fingerprint changes.
type Revision struct {
	JobID           int64
	PrevFingerprint string
	PrevScrapedAt   time.Time
	SupersededAt    time.Time
}
