package domain

// UserProfile is produced by an external resume/profile collaborator.
// The matching core reads it, never writes it.
type UserProfile struct {
	UserID              string
	Skills              []string
	YearsExperience     int
	PreferredLocations  []string // ordered, most preferred first
	SalaryLow           int      // 0 = unspecified
	SalaryHigh          int
	PreferredCategories []CompanyCategory
	TargetRoles         []string
	Summary             string
}
