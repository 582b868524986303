package domain

import "time"

// CompanyCategory buckets companies the way discovery searches do.
type CompanyCategory string

const (
	CategoryMNC     CompanyCategory = "mnc"
	CategoryStartup CompanyCategory = "startup"
	CategoryUnicorn CompanyCategory = "unicorn"
	CategorySector  CompanyCategory = "sector"
	CategoryOther   CompanyCategory = "other"
	CategoryUnknown CompanyCategory = ""
)

func (c CompanyCategory) Valid() bool {
	switch c {
	case CategoryMNC, CategoryStartup, CategoryUnicorn, CategorySector, CategoryOther, CategoryUnknown:
		return true
	}
	return false
}

type Company struct {
	ID             int64
	Identity       string // normalized dedup key: domain if known, else normalized name
	Name           string
	Domain         string
	CareerURL      string
	Category       CompanyCategory
	SizeBucket     string // startup/small/medium/large/enterprise
	FundingStage   string
	TechStack      []string
	SourceURLs     []string
	LowConfidence  bool // identity derived from name only, no domain
	Active         bool
	EmptyScrapes   int // consecutive scrapes yielding zero postings
	DiscoveredAt   time.Time
	LastVerifiedAt time.Time
}
