// Package timeline turns daily compliance aggregates into a timeline with
// significant events, a trend summary and insights.
package timeline

import (
	"fmt"
	"math"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/shopspring/decimal"
)

const (
	scoreImprovedDelta        = 10.0
	scoreDeclinedDelta        = -10.0
	bulkRemediationDelta      = 15
	findingsSpikeDelta        = 5
	controlsFixedDelta        = 8
	controlsNewlyFailedDelta  = -5
	milestoneScore            = 90.0
	milestoneSwing            = 20.0
	trendThreshold            = 5.0
	highVolatility            = 8.0
	lowVolatility             = 2.0
	strongRemediation         = 50
	controlsImprovedDelta     = 10
	controlsRegressedDelta    = -5
	activeFindingsWarning     = 10
	lowScore                  = 70.0
	highScore                 = 90.0
	automationMinDays         = 7
	automationRemediatedLimit = 20
	volatilityMinPoints       = 3

	dateLayout = "2006-01-02"
)

// Days returns every calendar day in [start, end], both truncated to UTC midnight.
func Days(start, end time.Time) []time.Time {
	start = Day(start)
	end = Day(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Analyze builds the timeline from one data point per day. Detected events are
// appended to the Events of the day they fire on.
func Analyze(tenantID string, start, end time.Time, points []api.ComplianceDataPoint) *api.ComplianceTimeline {
	events := DetectEvents(points)
	events = append(events, Milestones(points)...)
	trend := Summarize(points)

	return &api.ComplianceTimeline{
		TenantID:          tenantID,
		StartDate:         Day(start),
		EndDate:           Day(end),
		DataPoints:        points,
		Trend:             trend,
		SignificantEvents: events,
		Insights:          Insights(points, trend),
	}
}

// DetectEvents evaluates every consecutive pair of days. All rules are
// independent and more than one may fire on the same day.
func DetectEvents(points []api.ComplianceDataPoint) []string {
	significant := []string{}
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], &points[i]

		var fired []string
		scoreDelta := delta(curr.ComplianceScore, prev.ComplianceScore)
		if scoreDelta >= scoreImprovedDelta {
			fired = append(fired, fmt.Sprintf("Compliance score improved by %.1f points", scoreDelta))
		}
		if scoreDelta <= scoreDeclinedDelta {
			fired = append(fired, fmt.Sprintf("Compliance score declined by %.1f points", -scoreDelta))
		}
		if d := curr.RemediatedFindings - prev.RemediatedFindings; d >= bulkRemediationDelta {
			fired = append(fired, fmt.Sprintf("Bulk remediation: %d more findings remediated", d))
		}
		if d := curr.ActiveFindings - prev.ActiveFindings; d >= findingsSpikeDelta {
			fired = append(fired, fmt.Sprintf("New findings spike: %d new active findings", d))
		}
		failedDelta := prev.ControlsFailed - curr.ControlsFailed
		if failedDelta >= controlsFixedDelta {
			fired = append(fired, fmt.Sprintf("%d failing controls fixed", failedDelta))
		}
		if failedDelta <= controlsNewlyFailedDelta {
			fired = append(fired, fmt.Sprintf("%d controls newly failed", -failedDelta))
		}

		for _, e := range fired {
			curr.Events = append(curr.Events, e)
			significant = append(significant, fmt.Sprintf("%s: %s", curr.Date.Format(dateLayout), e))
		}
	}
	return significant
}

// Milestones compares the first and the last point of the series.
func Milestones(points []api.ComplianceDataPoint) []string {
	if len(points) < 2 {
		return nil
	}
	first, last := points[0], points[len(points)-1]

	var milestones []string
	if first.ComplianceScore < milestoneScore && last.ComplianceScore >= milestoneScore {
		milestones = append(milestones, fmt.Sprintf("Milestone: compliance score reached %.0f%% on %s", milestoneScore, last.Date.Format(dateLayout)))
	}
	if swing := delta(last.ComplianceScore, first.ComplianceScore); math.Abs(swing) >= milestoneSwing {
		milestones = append(milestones, fmt.Sprintf("Milestone: compliance score changed by %+.1f points between %s and %s",
			swing, first.Date.Format(dateLayout), last.Date.Format(dateLayout)))
	}
	return milestones
}

func Summarize(points []api.ComplianceDataPoint) api.TrendSummary {
	summary := api.TrendSummary{Direction: api.TrendInsufficientData}
	if len(points) == 0 {
		return summary
	}

	first, last := points[0], points[len(points)-1]
	summary.HighestScore = first.ComplianceScore
	summary.LowestScore = first.ComplianceScore
	var sum float64
	for _, p := range points {
		sum += p.ComplianceScore
		summary.HighestScore = math.Max(summary.HighestScore, p.ComplianceScore)
		summary.LowestScore = math.Min(summary.LowestScore, p.ComplianceScore)
		summary.TotalRemediated += p.RemediatedFindings
	}
	summary.AverageScore = round(sum / float64(len(points)))
	change := delta(last.ComplianceScore, first.ComplianceScore)
	summary.ScoreChange = round(change)
	summary.ActiveFindingDelta = last.ActiveFindings - first.ActiveFindings

	if len(points) < 2 {
		return summary
	}
	switch {
	case change >= trendThreshold:
		summary.Direction = api.TrendImproving
	case change <= -trendThreshold:
		summary.Direction = api.TrendDeclining
	default:
		summary.Direction = api.TrendStable
	}
	return summary
}

// Volatility is the mean absolute day-over-day score change.
func Volatility(points []api.ComplianceDataPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	sum := decimal.Zero
	for i := 1; i < len(points); i++ {
		sum = sum.Add(decimal.NewFromFloat(delta(points[i].ComplianceScore, points[i-1].ComplianceScore)).Abs())
	}
	return sum.Div(decimal.NewFromInt(int64(len(points) - 1))).InexactFloat64()
}

func Insights(points []api.ComplianceDataPoint, trend api.TrendSummary) []string {
	if len(points) < 2 {
		return []string{"Not enough data points to analyze compliance trends; run assessments regularly to build history"}
	}
	first, last := points[0], points[len(points)-1]
	var insights []string

	switch {
	case trend.ScoreChange > 0:
		insights = append(insights, fmt.Sprintf("Compliance score improved by %.1f points over the period", trend.ScoreChange))
	case trend.ScoreChange < 0:
		insights = append(insights, fmt.Sprintf("Compliance score declined by %.1f points over the period", -trend.ScoreChange))
	default:
		insights = append(insights, "Compliance score did not change over the period")
	}

	switch {
	case trend.TotalRemediated > strongRemediation:
		insights = append(insights, fmt.Sprintf("Strong remediation activity: %d findings remediated", trend.TotalRemediated))
	case trend.TotalRemediated > 0:
		insights = append(insights, fmt.Sprintf("Moderate remediation activity: %d findings remediated", trend.TotalRemediated))
	default:
		insights = append(insights, "No findings were remediated during the period, action required")
	}

	passedDelta := last.ControlsPassed - first.ControlsPassed
	switch {
	case passedDelta > controlsImprovedDelta:
		insights = append(insights, fmt.Sprintf("Control compliance improved: %d more controls passing", passedDelta))
	case passedDelta < controlsRegressedDelta:
		insights = append(insights, fmt.Sprintf("Control compliance regressed: %d fewer controls passing", -passedDelta))
	}

	switch {
	case trend.ActiveFindingDelta < 0:
		insights = append(insights, fmt.Sprintf("Active findings decreased by %d", -trend.ActiveFindingDelta))
	case trend.ActiveFindingDelta > activeFindingsWarning:
		insights = append(insights, fmt.Sprintf("Warning: active findings increased by %d", trend.ActiveFindingDelta))
	}

	if len(points) > volatilityMinPoints {
		v := Volatility(points)
		switch {
		case v > highVolatility:
			insights = append(insights, fmt.Sprintf("High score volatility: average daily change of %.1f points", v))
		case v < lowVolatility:
			insights = append(insights, fmt.Sprintf("Compliance score is stable: average daily change of %.1f points", v))
		}
	}

	switch {
	case last.ComplianceScore < lowScore:
		insights = append(insights, fmt.Sprintf("Latest score of %.1f%% is below %.0f%%; prioritize critical and high severity findings", last.ComplianceScore, lowScore))
	case last.ComplianceScore >= highScore:
		insights = append(insights, fmt.Sprintf("Latest score of %.1f%% is at or above %.0f%%; the tenant is ready for certification", last.ComplianceScore, highScore))
	}

	if len(points) >= automationMinDays && trend.TotalRemediated < automationRemediatedLimit {
		insights = append(insights, "Remediation throughput is low; consider enabling automated remediation")
	}

	insights = append(insights, fmt.Sprintf("Overall compliance trend is %s", trend.Direction))
	return insights
}

// delta is curr - prev computed on the shortest decimal form of both scores, so
// 80.1 - 70.1 is exactly 10. Threshold rules compare this value, never a rounded one.
func delta(curr, prev float64) float64 {
	return decimal.NewFromFloat(curr).Sub(decimal.NewFromFloat(prev)).InexactFloat64()
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
