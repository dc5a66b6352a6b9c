package api

type ProgressStage string

const (
	ProgressStageStarted   ProgressStage = "started"
	ProgressStageCompleted ProgressStage = "completed"
)

// ProgressEvent is reported at the start and end of every family (assessment)
// or evidence category (evidence collection).
type ProgressEvent struct {
	Operation     string        `json:"operation" example:"assessment"`
	TenantID      string        `json:"tenantId"`
	Stage         ProgressStage `json:"stage" example:"started"`
	ControlFamily string        `json:"controlFamily" example:"AC"`
	EvidenceType  string        `json:"evidenceType,omitempty" example:"Logs"`
	Completed     int           `json:"completed" example:"3"`
	Total         int           `json:"total" example:"18"`
	Message       string        `json:"message"`
	Score         *float64      `json:"score,omitempty"`
	FindingCount  *int          `json:"findingCount,omitempty"`
}
