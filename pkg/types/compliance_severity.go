package types

import (
	"strings"
)

type FindingSeverity string

const (
	FindingSeverityInformational FindingSeverity = "informational"
	FindingSeverityLow           FindingSeverity = "low"
	FindingSeverityMedium        FindingSeverity = "medium"
	FindingSeverityHigh          FindingSeverity = "high"
	FindingSeverityCritical      FindingSeverity = "critical"
)

func (s FindingSeverity) Level() int {
	switch s {
	case FindingSeverityInformational:
		return 1
	case FindingSeverityLow:
		return 2
	case FindingSeverityMedium:
		return 3
	case FindingSeverityHigh:
		return 4
	case FindingSeverityCritical:
		return 5
	default:
		return 0
	}
}

func (s FindingSeverity) String() string {
	return string(s)
}

var findingSeverities = []FindingSeverity{
	FindingSeverityInformational,
	FindingSeverityLow,
	FindingSeverityMedium,
	FindingSeverityHigh,
	FindingSeverityCritical,
}

// ParseFindingSeverity is case-insensitive and accepts "info" as an alias of informational.
func ParseFindingSeverity(s string) FindingSeverity {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "info" {
		return FindingSeverityInformational
	}
	for _, sev := range findingSeverities {
		if s == sev.String() {
			return sev
		}
	}
	return ""
}

func ParseFindingSeverities(list []string) []FindingSeverity {
	result := make([]FindingSeverity, 0, len(list))
	for _, s := range list {
		result = append(result, ParseFindingSeverity(s))
	}
	return result
}

// SeverityResult holds mutually exclusive per-severity finding counts.
type SeverityResult struct {
	CriticalCount      int `json:"criticalCount" example:"1"`
	HighCount          int `json:"highCount" example:"1"`
	MediumCount        int `json:"mediumCount" example:"1"`
	LowCount           int `json:"lowCount" example:"1"`
	InformationalCount int `json:"informationalCount" example:"1"`
}

func (r SeverityResult) Total() int {
	return r.CriticalCount + r.HighCount + r.MediumCount + r.LowCount + r.InformationalCount
}

func (r *SeverityResult) AddSeverityResult(severity SeverityResult) {
	r.CriticalCount += severity.CriticalCount
	r.HighCount += severity.HighCount
	r.MediumCount += severity.MediumCount
	r.LowCount += severity.LowCount
	r.InformationalCount += severity.InformationalCount
}

// IncreaseBySeverity counts unknown severities as informational so that the
// buckets always sum to the number of findings.
func (r *SeverityResult) IncreaseBySeverity(severity FindingSeverity) {
	switch severity {
	case FindingSeverityCritical:
		r.CriticalCount++
	case FindingSeverityHigh:
		r.HighCount++
	case FindingSeverityMedium:
		r.MediumCount++
	case FindingSeverityLow:
		r.LowCount++
	default:
		r.InformationalCount++
	}
}
