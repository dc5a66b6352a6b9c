package assessment

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/httpserver"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"

	defaultTimelineDays = 30
)

func (h *HttpHandler) Register(e *echo.Echo) {
	v1 := e.Group("/api/v1")

	v1.GET("/controls", h.ListControls)

	certificates := v1.Group("/certificates")
	certificates.POST("/verify", h.VerifyCertificate)
	certificates.GET("/:certificate_id/verify", h.VerifyStoredCertificate)

	tenants := v1.Group("/tenants/:tenant_id")
	tenants.POST("/assessments", h.RunAssessment)
	tenants.GET("/assessments", h.ListAssessments)
	tenants.GET("/findings", h.ListUnresolvedFindings)
	tenants.POST("/evidence", h.CollectEvidence)
	tenants.GET("/monitoring", h.GetMonitoringStatus)
	tenants.POST("/monitoring", h.EnableMonitoring)
	tenants.POST("/risk-assessments", h.PerformRiskAssessment)
	tenants.GET("/timeline", h.GetTimeline)
	tenants.POST("/certificates", h.GenerateCertificate)
	tenants.GET("/audit", h.GetAuditLog)
}

func bindValidate(ctx echo.Context, i any) error {
	if err := ctx.Bind(i); err != nil {
		return err
	}

	if err := ctx.Validate(i); err != nil {
		return err
	}

	return nil
}

// httpError maps engine errors to status codes.
func httpError(err error) error {
	var scoreErr *ScoreBelowThresholdError
	switch {
	case IsValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoAssessment):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &scoreErr):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	default:
		return err
	}
}

func limitParam(ctx echo.Context) (int, error) {
	s := ctx.QueryParam("limit")
	if s == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return limit, nil
}

// ListControls godoc
//
//	@Summary	List catalog controls
//	@Tags		assessment
//	@Produce	json
//	@Param		family	query		[]string	false	"Control family codes"
//	@Success	200		{object}	[]api.Control
//	@Router		/assessment/api/v1/controls [get]
func (h *HttpHandler) ListControls(ctx echo.Context) error {
	controls, err := h.engine.GetControls(ctx.Request().Context(), httpserver.QueryArrayParam(ctx, "family")...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, controls)
}

// RunAssessment godoc
//
//	@Summary		Run a comprehensive assessment
//	@Description	Assesses every control family of the tenant, optionally scoped to one resource group. A failed assessment is returned with its partial results.
//	@Tags			assessment
//	@Accept			json
//	@Produce		json
//	@Param			tenant_id	path		string						true	"Tenant ID"
//	@Param			request		body		api.RunAssessmentRequest	false	"Request Body"
//	@Success		200			{object}	api.Assessment
//	@Failure		500			{object}	api.ErrorResponse
//	@Router			/assessment/api/v1/tenants/{tenant_id}/assessments [post]
func (h *HttpHandler) RunAssessment(ctx echo.Context) error {
	var req api.RunAssessmentRequest
	if ctx.Request().ContentLength != 0 {
		if err := bindValidate(ctx, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	assessment, err := h.engine.RunComprehensiveAssessment(ctx.Request().Context(), ctx.Param("tenant_id"), req.ResourceGroup, h.sink)
	if err != nil {
		if assessment == nil {
			return httpError(err)
		}
		h.logger.Error("assessment failed", zap.String("assessmentID", assessment.ID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Message:    err.Error(),
			Assessment: assessment,
		})
	}
	return ctx.JSON(http.StatusOK, assessment)
}

// ListAssessments godoc
//
//	@Summary	List assessment history
//	@Tags		assessment
//	@Produce	json
//	@Param		tenant_id	path		string	true	"Tenant ID"
//	@Param		limit		query		int		false	"Maximum number of assessments"
//	@Success	200			{object}	[]api.Assessment
//	@Router		/assessment/api/v1/tenants/{tenant_id}/assessments [get]
func (h *HttpHandler) ListAssessments(ctx echo.Context) error {
	limit, err := limitParam(ctx)
	if err != nil {
		return err
	}
	assessments, err := h.engine.GetAssessmentHistory(ctx.Request().Context(), ctx.Param("tenant_id"), limit)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, assessments)
}

// ListUnresolvedFindings godoc
//
//	@Summary	List open findings
//	@Tags		assessment
//	@Produce	json
//	@Param		tenant_id	path		string	true	"Tenant ID"
//	@Success	200			{object}	[]api.Finding
//	@Router		/assessment/api/v1/tenants/{tenant_id}/findings [get]
func (h *HttpHandler) ListUnresolvedFindings(ctx echo.Context) error {
	findings, err := h.engine.GetUnresolvedFindings(ctx.Request().Context(), ctx.Param("tenant_id"))
	if err != nil {
		return httpError(err)
	}
	if findings == nil {
		findings = []api.Finding{}
	}
	return ctx.JSON(http.StatusOK, findings)
}

// CollectEvidence godoc
//
//	@Summary		Collect compliance evidence
//	@Description	Collects every evidence type for a control family. Use "All" to run every registered collector.
//	@Tags			evidence
//	@Accept			json
//	@Produce		json
//	@Param			tenant_id	path		string						true	"Tenant ID"
//	@Param			request		body		api.CollectEvidenceRequest	true	"Request Body"
//	@Success		200			{object}	api.EvidencePackage
//	@Router			/assessment/api/v1/tenants/{tenant_id}/evidence [post]
func (h *HttpHandler) CollectEvidence(ctx echo.Context) error {
	var req api.CollectEvidenceRequest
	if err := bindValidate(ctx, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pkg, err := h.engine.CollectComplianceEvidence(ctx.Request().Context(), ctx.Param("tenant_id"), req.ControlFamily, req.CollectedBy, h.sink)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, pkg)
}

// GetMonitoringStatus godoc
//
//	@Summary	Get continuous compliance status
//	@Tags		monitoring
//	@Produce	json
//	@Param		tenant_id	path		string	true	"Tenant ID"
//	@Success	200			{object}	api.ContinuousComplianceStatus
//	@Router		/assessment/api/v1/tenants/{tenant_id}/monitoring [get]
func (h *HttpHandler) GetMonitoringStatus(ctx echo.Context) error {
	status, err := h.engine.GetContinuousComplianceStatus(ctx.Request().Context(), ctx.Param("tenant_id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, status)
}

// EnableMonitoring godoc
//
//	@Summary	Register controls for continuous monitoring
//	@Tags		monitoring
//	@Accept		json
//	@Produce	json
//	@Param		tenant_id	path		string						true	"Tenant ID"
//	@Param		request		body		api.EnableMonitoringRequest	true	"Request Body"
//	@Success	200			{object}	[]api.MonitoredControl
//	@Router		/assessment/api/v1/tenants/{tenant_id}/monitoring [post]
func (h *HttpHandler) EnableMonitoring(ctx echo.Context) error {
	var req api.EnableMonitoringRequest
	if err := bindValidate(ctx, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	controls, err := h.engine.EnableContinuousMonitoring(ctx.Request().Context(), ctx.Param("tenant_id"), req.ControlIDs, req.AutoRemediation)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, controls)
}

// PerformRiskAssessment godoc
//
//	@Summary	Score the risk categories of a tenant
//	@Tags		risk
//	@Produce	json
//	@Param		tenant_id	path		string	true	"Tenant ID"
//	@Success	200			{object}	api.RiskAssessment
//	@Router		/assessment/api/v1/tenants/{tenant_id}/risk-assessments [post]
func (h *HttpHandler) PerformRiskAssessment(ctx echo.Context) error {
	ra, err := h.engine.PerformRiskAssessment(ctx.Request().Context(), ctx.Param("tenant_id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, ra)
}

func dateParam(ctx echo.Context, name string, def time.Time) (time.Time, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s date, expected YYYY-MM-DD", name))
	}
	return t, nil
}

// GetTimeline godoc
//
//	@Summary		Get the compliance timeline
//	@Description	Daily compliance data points with trend, significant events and insights. Defaults to the last 30 days.
//	@Tags			assessment
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Param			start		query		string	false	"Start date (YYYY-MM-DD)"
//	@Param			end			query		string	false	"End date (YYYY-MM-DD)"
//	@Success		200			{object}	api.ComplianceTimeline
//	@Router			/assessment/api/v1/tenants/{tenant_id}/timeline [get]
func (h *HttpHandler) GetTimeline(ctx echo.Context) error {
	end, err := dateParam(ctx, "end", h.engine.now().UTC())
	if err != nil {
		return err
	}
	start, err := dateParam(ctx, "start", end.AddDate(0, 0, -defaultTimelineDays))
	if err != nil {
		return err
	}

	timeline, err := h.engine.GetComplianceTimeline(ctx.Request().Context(), ctx.Param("tenant_id"), start, end)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, timeline)
}

// GenerateCertificate godoc
//
//	@Summary		Issue a compliance certificate
//	@Description	Issues a certificate for the latest completed assessment. Returns 404 without an assessment and 412 when its score is below the threshold.
//	@Tags			certificate
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Success		200			{object}	api.ComplianceCertificate
//	@Router			/assessment/api/v1/tenants/{tenant_id}/certificates [post]
func (h *HttpHandler) GenerateCertificate(ctx echo.Context) error {
	cert, err := h.engine.GenerateComplianceCertificate(ctx.Request().Context(), ctx.Param("tenant_id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, cert)
}

// VerifyCertificate godoc
//
//	@Summary	Verify a certificate document
//	@Tags		certificate
//	@Accept		json
//	@Produce	json
//	@Param		request	body		api.ComplianceCertificate	true	"Certificate"
//	@Success	200		{object}	api.VerifyCertificateResponse
//	@Router		/assessment/api/v1/certificates/verify [post]
func (h *HttpHandler) VerifyCertificate(ctx echo.Context) error {
	var cert api.ComplianceCertificate
	if err := ctx.Bind(&cert); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return ctx.JSON(http.StatusOK, api.VerifyCertificateResponse{Valid: VerifyCertificate(&cert)})
}

// VerifyStoredCertificate godoc
//
//	@Summary	Verify an issued certificate
//	@Tags		certificate
//	@Produce	json
//	@Param		certificate_id	path		string	true	"Certificate ID"
//	@Success	200				{object}	api.VerifyCertificateResponse
//	@Router		/assessment/api/v1/certificates/{certificate_id}/verify [get]
func (h *HttpHandler) VerifyStoredCertificate(ctx echo.Context) error {
	cert, valid, err := h.engine.VerifyStoredCertificate(ctx.Request().Context(), ctx.Param("certificate_id"))
	if err != nil {
		return err
	}
	if cert == nil {
		return echo.NewHTTPError(http.StatusNotFound, "certificate not found")
	}
	return ctx.JSON(http.StatusOK, api.VerifyCertificateResponse{Valid: valid})
}

// GetAuditLog godoc
//
//	@Summary	List audit entries
//	@Tags		assessment
//	@Produce	json
//	@Param		tenant_id	path		string	true	"Tenant ID"
//	@Param		limit		query		int		false	"Maximum number of entries"
//	@Success	200			{object}	[]api.AuditEntry
//	@Router		/assessment/api/v1/tenants/{tenant_id}/audit [get]
func (h *HttpHandler) GetAuditLog(ctx echo.Context) error {
	limit, err := limitParam(ctx)
	if err != nil {
		return err
	}
	entries, err := h.engine.GetAuditLog(ctx.Request().Context(), ctx.Param("tenant_id"), limit)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, entries)
}
