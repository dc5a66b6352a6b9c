package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenantID  = errors.New("tenant id is required")
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	ErrInvalidFamily    = errors.New("control family is required")
	ErrInvalidControls  = errors.New("at least one control id is required")
	ErrNoAssessment     = errors.New("no completed assessment found for tenant")
)

// ScoreBelowThresholdError is returned when the latest assessment does not
// qualify for a certificate.
type ScoreBelowThresholdError struct {
	AssessmentID string
	Score        float64
	Threshold    float64
}

func (e *ScoreBelowThresholdError) Error() string {
	return fmt.Sprintf("compliance score %.2f of assessment %s is below the certification threshold of %.2f",
		e.Score, e.AssessmentID, e.Threshold)
}

// IsValidationError reports whether err was caused by invalid input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTenantID) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidFamily) ||
		errors.Is(err, ErrInvalidControls)
}

func IsPreconditionError(err error) bool {
	var scoreErr *ScoreBelowThresholdError
	return errors.Is(err, ErrNoAssessment) || errors.As(err, &scoreErr)
}
