package model

import "time"

// VerificationStatus describes how a remote resource compares to its
// declaration.
type VerificationStatus string

const (
	StatusSatisfied VerificationStatus = "satisfied"
	StatusMissing   VerificationStatus = "missing"
	StatusDrifted   VerificationStatus = "drifted"
	// StatusExtraneous is a resource declared absent that still exists.
	StatusExtraneous VerificationStatus = "extraneous"
	// StatusBlocked is a resource whose dependency is not satisfied.
	StatusBlocked VerificationStatus = "blocked"
	StatusUnknown VerificationStatus = "unknown"
)

// IsValid reports whether s is one of the defined statuses.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusExtraneous, StatusBlocked, StatusUnknown:
		return true
	default:
		return false
	}
}

// VerificationResult is the read-only report for one resource.
type VerificationResult struct {
	ResourceID string
	Type       string
	Status     VerificationStatus
	Message    string
	Details    string
	Error      error
	Duration   time.Duration
	Timestamp  time.Time
}

// VerificationSummary aggregates verification results.
type VerificationSummary struct {
	TotalResources int
	Satisfied      int
	Missing        int
	Drifted        int
	Extraneous     int
	Blocked        int
	Unknown        int
	Duration       time.Duration
	Results        []VerificationResult
}

// Add counts one result.
func (s *VerificationSummary) Add(result VerificationResult) {
	s.TotalResources++
	s.Results = append(s.Results, result)
	switch result.Status {
	case StatusSatisfied:
		s.Satisfied++
	case StatusMissing:
		s.Missing++
	case StatusDrifted:
		s.Drifted++
	case StatusExtraneous:
		s.Extraneous++
	case StatusBlocked:
		s.Blocked++
	default:
		s.Unknown++
	}
}

// AllSatisfied reports whether every resource matches its declaration.
func (s *VerificationSummary) AllSatisfied() bool {
	return s.Satisfied == s.TotalResources
}

// NeedsApply reports whether an apply would change anything or could not be
// assessed.
func (s *VerificationSummary) NeedsApply() bool {
	return !s.AllSatisfied()
}

// ExitCode is 0 when everything is satisfied and 1 otherwise.
func (s *VerificationSummary) ExitCode() int {
	if s.AllSatisfied() {
		return 0
	}
	return 1
}
