package api

import (
	"time"
)

type ComplianceDataPoint struct {
	Date               time.Time `json:"date" example:"2020-01-01T00:00:00Z"`
	ComplianceScore    float64   `json:"complianceScore" example:"82.5"`
	ControlsFailed     int       `json:"controlsFailed" example:"12"`
	ControlsPassed     int       `json:"controlsPassed" example:"88"`
	ActiveFindings     int       `json:"activeFindings" example:"30"`
	RemediatedFindings int       `json:"remediatedFindings" example:"4"`
	Events             []string  `json:"events"`
}

type TrendDirection string

const (
	TrendImproving        TrendDirection = "Improving"
	TrendDeclining        TrendDirection = "Declining"
	TrendStable           TrendDirection = "Stable"
	TrendInsufficientData TrendDirection = "InsufficientData"
)

type TrendSummary struct {
	Direction          TrendDirection `json:"direction" example:"Improving"`
	ScoreChange        float64        `json:"scoreChange" example:"7.5"`
	AverageScore       float64        `json:"averageScore" example:"80.1"`
	HighestScore       float64        `json:"highestScore" example:"88"`
	LowestScore        float64        `json:"lowestScore" example:"71"`
	TotalRemediated    int            `json:"totalRemediated" example:"40"`
	ActiveFindingDelta int            `json:"activeFindingDelta" example:"-6"`
}

type ComplianceTimeline struct {
	TenantID          string                `json:"tenantId"`
	StartDate         time.Time             `json:"startDate" example:"2020-01-01T00:00:00Z"`
	EndDate           time.Time             `json:"endDate" example:"2020-01-31T00:00:00Z"`
	DataPoints        []ComplianceDataPoint `json:"dataPoints"`
	Trend             TrendSummary          `json:"trend"`
	SignificantEvents []string              `json:"significantEvents"`
	Insights          []string              `json:"insights"`
}
