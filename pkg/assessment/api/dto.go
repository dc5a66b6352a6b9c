package api

type RunAssessmentRequest struct {
	ResourceGroup string `json:"resourceGroup" example:"rg-1"`
}

type CollectEvidenceRequest struct {
	ControlFamily string `json:"controlFamily" validate:"required" example:"AC"`
	CollectedBy   string `json:"collectedBy" validate:"required" example:"auditor@example.com"`
}

type EnableMonitoringRequest struct {
	ControlIDs      []string `json:"controlIds" validate:"required,min=1" example:"AC-2,AC-3"`
	AutoRemediation bool     `json:"autoRemediation"`
}

type VerifyCertificateResponse struct {
	Valid bool `json:"valid" example:"true"`
}

type ErrorResponse struct {
	Message    string      `json:"message"`
	Assessment *Assessment `json:"assessment,omitempty"`
}
