package types

import (
	"strings"
)

// DefaultFamily is the registry key of the fallback scanner and evidence collector.
const DefaultFamily = "Default"

// AllFamilies selects every registered evidence collector.
const AllFamilies = "All"

type ControlFamily struct {
	Code string `json:"code" example:"AC"`
	Name string `json:"name" example:"Access Control"`
}

// ControlFamilies is the assessment catalog in the order families are assessed.
var ControlFamilies = []ControlFamily{
	{Code: "AC", Name: "Access Control"},
	{Code: "AT", Name: "Awareness and Training"},
	{Code: "AU", Name: "Audit and Accountability"},
	{Code: "CA", Name: "Security Assessment and Authorization"},
	{Code: "CM", Name: "Configuration Management"},
	{Code: "CP", Name: "Contingency Planning"},
	{Code: "IA", Name: "Identification and Authentication"},
	{Code: "IR", Name: "Incident Response"},
	{Code: "MA", Name: "Maintenance"},
	{Code: "MP", Name: "Media Protection"},
	{Code: "PE", Name: "Physical and Environmental Protection"},
	{Code: "PL", Name: "Planning"},
	{Code: "PS", Name: "Personnel Security"},
	{Code: "RA", Name: "Risk Assessment"},
	{Code: "SA", Name: "System and Services Acquisition"},
	{Code: "SC", Name: "System and Communications Protection"},
	{Code: "SI", Name: "System and Information Integrity"},
	{Code: "PM", Name: "Program Management"},
}

// expectedEvidenceTypes is the number of distinct evidence types a complete
// package for the family contains.
var expectedEvidenceTypes = map[string]int{
	"AC": 5,
	"AU": 4,
	"SC": 5,
	"IA": 4,
	"CM": 4,
	"IR": 3,
	"RA": 3,
	"CA": 4,
	"SI": 4,
	"CP": 3,
}

const defaultExpectedEvidenceTypes = 3

func NormalizeFamilyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsAllFamilies(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), AllFamilies)
}

func FamilyName(code string) string {
	code = NormalizeFamilyCode(code)
	for _, f := range ControlFamilies {
		if f.Code == code {
			return f.Name
		}
	}
	return code
}

// FamilyIndex returns the catalog position of the family or -1.
func FamilyIndex(code string) int {
	code = NormalizeFamilyCode(code)
	for i, f := range ControlFamilies {
		if f.Code == code {
			return i
		}
	}
	return -1
}

func ExpectedEvidenceTypes(code string) int {
	if n, ok := expectedEvidenceTypes[NormalizeFamilyCode(code)]; ok {
		return n
	}
	return defaultExpectedEvidenceTypes
}
