package domain

// CompanyCandidate is a raw discovery record from the external search collaborator.
type CompanyCandidate struct {
	Name       string
	Domain     string
	SourceURLs []string
	Category   CompanyCategory
	SizeBucket string
	Sector     string
}

// RawPosting is one scraped record before normalization. Anything that fails
// normalization at the aggregator boundary is dropped as a parse failure and
// never reaches the registries.
type RawPosting struct {
	Title        string
	Description  string // html or text
	Location     string
	SalaryText   string
	PostedAtText string
	SourceURL    string
}
