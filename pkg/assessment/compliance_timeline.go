package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/timeline"
)

const MaxTimelineDays = 366

// GetComplianceTimeline builds one data point per calendar day in
// [start, end] and analyzes the series.
func (e *Engine) GetComplianceTimeline(ctx context.Context, tenantID string, start, end time.Time) (*api.ComplianceTimeline, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if start.IsZero() || end.IsZero() || timeline.Day(start).After(timeline.Day(end)) {
		return nil, ErrInvalidDateRange
	}
	days := timeline.Days(start, end)
	if len(days) > MaxTimelineDays {
		return nil, fmt.Errorf("%w: at most %d days can be requested", ErrInvalidDateRange, MaxTimelineDays)
	}
	ctx, span := startSpan(ctx, "GetComplianceTimeline")

	points := make([]api.ComplianceDataPoint, 0, len(days))
	for _, day := range days {
		point, err := e.dataPoint(ctx, tenantID, day)
		if err != nil {
			err = fmt.Errorf("failed to load compliance data for %s: %w", day.Format("2006-01-02"), err)
			endSpan(span, err)
			return nil, err
		}
		points = append(points, point)
	}

	tl := timeline.Analyze(tenantID, start, end, points)
	endSpan(span, nil)
	return tl, nil
}

func (e *Engine) dataPoint(ctx context.Context, tenantID string, day time.Time) (api.ComplianceDataPoint, error) {
	point := api.ComplianceDataPoint{Date: day}
	var err error

	if point.ComplianceScore, err = e.store.GetComplianceScoreForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	if point.ControlsFailed, err = e.store.GetFailedControlsForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	if point.ControlsPassed, err = e.store.GetPassedControlsForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	if point.ActiveFindings, err = e.store.GetActiveFindingsForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	if point.RemediatedFindings, err = e.store.GetRemediatedFindingsForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	// events of the day come first, detected events are appended by the analyzer
	if point.Events, err = e.store.GetEventsForDate(ctx, tenantID, day); err != nil {
		return point, err
	}
	if point.Events == nil {
		point.Events = []string{}
	}
	return point, nil
}
