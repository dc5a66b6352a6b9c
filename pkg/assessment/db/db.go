package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	orm *gorm.DB
}

func NewDatabase(orm *gorm.DB) Database {
	return Database{orm: orm}
}

func (db Database) Initialize() error {
	err := db.orm.AutoMigrate(
		&Assessment{},
		&Finding{},
		&EvidencePackage{},
		&Certificate{},
		&RiskAssessment{},
		&MonitoredControl{},
		&Alert{},
		&AutoRemediation{},
		&AuditEntry{},
	)
	if err != nil {
		return err
	}

	return nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// =========== Assessments ===========

// SaveAssessment stores the assessment and its findings. Findings of a
// subscription wide assessment that are missing from it are marked remediated.
func (db Database) SaveAssessment(ctx context.Context, a *api.Assessment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}

	var passed, total int
	for _, r := range a.ControlFamilyResults {
		passed += r.PassedControls
		total += r.TotalControls
	}

	row := Assessment{
		ID:                     a.ID,
		TenantID:               a.TenantID,
		ResourceGroup:          a.ResourceGroup,
		Status:                 string(a.Status),
		StartTime:              a.StartTime,
		EndTime:                a.EndTime,
		OverallComplianceScore: a.OverallComplianceScore,
		TotalControls:          total,
		PassedControls:         passed,
		TotalFindings:          a.TotalFindings,
		CriticalCount:          a.CriticalCount,
		HighCount:              a.HighCount,
		MediumCount:            a.MediumCount,
		LowCount:               a.LowCount,
		InformationalCount:     a.InformationalCount,
		RiskLevel:              string(a.RiskProfile.RiskLevel),
		RiskScore:              a.RiskProfile.RiskScore,
		Document:               datatypes.JSON(doc),
	}

	observedAt := a.StartTime
	if a.EndTime != nil {
		observedAt = *a.EndTime
	}

	return db.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var open []Finding
		err := tx.Where("tenant_id = ? AND status = ?", a.TenantID, string(types.FindingStatusOpen)).
			Find(&open).Error
		if err != nil {
			return err
		}
		openByFingerprint := make(map[string]Finding, len(open))
		for _, f := range open {
			openByFingerprint[f.Fingerprint] = f
		}

		reported := map[string]bool{}
		for _, f := range a.Findings() {
			fp := Fingerprint(f)
			if reported[fp] {
				continue
			}
			reported[fp] = true

			if existing, ok := openByFingerprint[fp]; ok {
				err := tx.Model(&Finding{}).Where("id = ?", existing.ID).
					Update("last_assessment_id", a.ID).Error
				if err != nil {
					return err
				}
				continue
			}
			if err := tx.Create(findingFromAPI(a, f, fp)).Error; err != nil {
				return err
			}
		}

		if a.ResourceGroup != "" {
			return nil
		}
		var remediated []string
		for fp, f := range openByFingerprint {
			if !reported[fp] {
				remediated = append(remediated, f.ID)
			}
		}
		if len(remediated) == 0 {
			return nil
		}
		return tx.Model(&Finding{}).Where("id IN ?", remediated).Updates(map[string]any{
			"status":        string(types.FindingStatusRemediated),
			"remediated_at": observedAt,
		}).Error
	})
}

// Fingerprint identifies a finding across assessments.
func Fingerprint(f api.Finding) string {
	controls := make([]string, 0, len(f.AffectedControls))
	for _, c := range f.AffectedControls {
		controls = append(controls, strings.ToUpper(strings.TrimSpace(c)))
	}
	sort.Strings(controls)

	h := sha256.New()
	for _, part := range []string{string(f.Source), f.ControlFamily, f.StigID, f.Title, f.ResourceID, strings.Join(controls, ",")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func findingFromAPI(a *api.Assessment, f api.Finding, fingerprint string) *Finding {
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &Finding{
		ID:               id,
		TenantID:         a.TenantID,
		Fingerprint:      fingerprint,
		AssessmentID:     a.ID,
		LastAssessmentID: a.ID,
		Title:            f.Title,
		Description:      f.Description,
		Severity:         string(f.Severity),
		AffectedControls: f.AffectedControls,
		ControlFamily:    f.ControlFamily,
		ResourceID:       f.ResourceID,
		ResourceType:     f.ResourceType,
		ResourceName:     f.ResourceName,
		Recommendation:   f.Recommendation,
		Source:           string(f.Source),
		StigID:           f.StigID,
		Status:           string(types.FindingStatusOpen),
		DetectedAt:       f.DetectedAt,
	}
}

func (f Finding) ToAPI() api.Finding {
	return api.Finding{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		Severity:         types.FindingSeverity(f.Severity),
		AffectedControls: f.AffectedControls,
		ControlFamily:    f.ControlFamily,
		ResourceID:       f.ResourceID,
		ResourceType:     f.ResourceType,
		ResourceName:     f.ResourceName,
		Recommendation:   f.Recommendation,
		Source:           types.FindingSource(f.Source),
		StigID:           f.StigID,
		Status:           types.FindingStatus(f.Status),
		DetectedAt:       f.DetectedAt,
		RemediatedAt:     f.RemediatedAt,
	}
}

func (a Assessment) ToAPI() (*api.Assessment, error) {
	var res api.Assessment
	if err := json.Unmarshal(a.Document, &res); err != nil {
		return nil, fmt.Errorf("failed to decode assessment %s: %w", a.ID, err)
	}
	return &res, nil
}

func (db Database) GetLatestAssessment(ctx context.Context, tenantID string) (*api.Assessment, error) {
	var row Assessment
	tx := db.orm.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(types.AssessmentStatusCompleted)).
		Order("end_time DESC").
		First(&row)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return row.ToAPI()
}

func (db Database) ListAssessments(ctx context.Context, tenantID string, limit int) ([]api.Assessment, error) {
	var rows []Assessment
	tx := db.orm.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_time DESC").
		Limit(limit).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := make([]api.Assessment, 0, len(rows))
	for _, row := range rows {
		a, err := row.ToAPI()
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, nil
}

func (db Database) ListUnresolvedFindings(ctx context.Context, tenantID string) ([]api.Finding, error) {
	var rows []Finding
	tx := db.orm.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(types.FindingStatusOpen)).
		Order("detected_at ASC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := make([]api.Finding, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ToAPI())
	}
	return result, nil
}

// =========== Daily aggregates ===========

// latestAssessmentOn returns the last completed assessment that ended before
// the end of the day.
func (db Database) latestAssessmentOn(ctx context.Context, tenantID string, day time.Time) (*Assessment, error) {
	_, end := dayBounds(day)

	var row Assessment
	tx := db.orm.WithContext(ctx).
		Select("id", "overall_compliance_score", "total_controls", "passed_controls", "end_time").
		Where("tenant_id = ? AND status = ? AND end_time < ?", tenantID, string(types.AssessmentStatusCompleted), end).
		Order("end_time DESC").
		First(&row)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &row, nil
}

func (db Database) GetComplianceScoreForDate(ctx context.Context, tenantID string, day time.Time) (float64, error) {
	row, err := db.latestAssessmentOn(ctx, tenantID, day)
	if err != nil || row == nil {
		return 0, err
	}
	return row.OverallComplianceScore, nil
}

func (db Database) GetFailedControlsForDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	row, err := db.latestAssessmentOn(ctx, tenantID, day)
	if err != nil || row == nil {
		return 0, err
	}
	return row.TotalControls - row.PassedControls, nil
}

func (db Database) GetPassedControlsForDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	row, err := db.latestAssessmentOn(ctx, tenantID, day)
	if err != nil || row == nil {
		return 0, err
	}
	return row.PassedControls, nil
}

func (db Database) GetActiveFindingsForDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	_, end := dayBounds(day)

	var count int64
	tx := db.orm.WithContext(ctx).Model(&Finding{}).
		Where("tenant_id = ? AND detected_at < ?", tenantID, end).
		Where("remediated_at IS NULL OR remediated_at >= ?", end).
		Count(&count)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(count), nil
}

func (db Database) GetRemediatedFindingsForDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	start, end := dayBounds(day)

	var count int64
	tx := db.orm.WithContext(ctx).Model(&Finding{}).
		Where("tenant_id = ? AND remediated_at >= ? AND remediated_at < ?", tenantID, start, end).
		Count(&count)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(count), nil
}

func (db Database) GetEventsForDate(ctx context.Context, tenantID string, day time.Time) ([]string, error) {
	start, end := dayBounds(day)

	var actions []string
	tx := db.orm.WithContext(ctx).Model(&AuditEntry{}).
		Where("tenant_id = ? AND timestamp >= ? AND timestamp < ?", tenantID, start, end).
		Order("timestamp ASC").
		Pluck("action", &actions)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return actions, nil
}

// =========== Evidence, certificates and risk ===========

func (db Database) SaveEvidencePackage(ctx context.Context, pkg *api.EvidencePackage) error {
	doc, err := json.Marshal(pkg)
	if err != nil {
		return err
	}
	return db.orm.WithContext(ctx).Create(&EvidencePackage{
		ID:                pkg.ID,
		TenantID:          pkg.TenantID,
		ControlFamily:     pkg.ControlFamily,
		CollectedBy:       pkg.CollectedBy,
		EvidenceCount:     len(pkg.Evidence),
		CompletenessScore: pkg.CompletenessScore,
		CollectedAt:       pkg.CollectionStartTime,
		Document:          datatypes.JSON(doc),
	}).Error
}

func (db Database) SaveCertificate(ctx context.Context, cert *api.ComplianceCertificate) error {
	doc, err := json.Marshal(cert)
	if err != nil {
		return err
	}
	return db.orm.WithContext(ctx).Create(&Certificate{
		ID:               cert.ID,
		SerialNumber:     cert.SerialNumber,
		TenantID:         cert.TenantID,
		AssessmentID:     cert.AssessmentID,
		IssuedAt:         cert.IssuedAt,
		ExpiresAt:        cert.ExpiresAt,
		ComplianceScore:  cert.ComplianceScore,
		VerificationHash: cert.VerificationHash,
		Document:         datatypes.JSON(doc),
	}).Error
}

func (db Database) GetCertificate(ctx context.Context, id string) (*api.ComplianceCertificate, error) {
	var row Certificate
	tx := db.orm.WithContext(ctx).Where("id = ?", id).First(&row)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}

	var cert api.ComplianceCertificate
	if err := json.Unmarshal(row.Document, &cert); err != nil {
		return nil, fmt.Errorf("failed to decode certificate %s: %w", id, err)
	}
	return &cert, nil
}

func (db Database) SaveRiskAssessment(ctx context.Context, ra *api.RiskAssessment) error {
	doc, err := json.Marshal(ra)
	if err != nil {
		return err
	}
	return db.orm.WithContext(ctx).Create(&RiskAssessment{
		ID:               ra.ID,
		TenantID:         ra.TenantID,
		AssessedAt:       ra.AssessedAt,
		OverallRiskScore: ra.OverallRiskScore,
		RiskLevel:        string(ra.RiskLevel),
		Document:         datatypes.JSON(doc),
	}).Error
}

// =========== Monitoring ===========

func monitoredControlFromAPI(c api.MonitoredControl) MonitoredControl {
	return MonitoredControl{
		TenantID:               c.TenantID,
		ControlID:              c.ControlID,
		Status:                 string(c.Status),
		LastChecked:            c.LastChecked,
		DriftDetected:          c.DriftDetected,
		AutoRemediationEnabled: c.AutoRemediationEnabled,
	}
}

func (c MonitoredControl) ToAPI() api.MonitoredControl {
	return api.MonitoredControl{
		TenantID:               c.TenantID,
		ControlID:              c.ControlID,
		Status:                 types.ControlStatus(c.Status),
		LastChecked:            c.LastChecked,
		DriftDetected:          c.DriftDetected,
		AutoRemediationEnabled: c.AutoRemediationEnabled,
	}
}

// UpsertMonitoredControls registers controls. Re-registering a control keeps
// its drift flag and updates the auto remediation setting.
func (db Database) UpsertMonitoredControls(ctx context.Context, controls []api.MonitoredControl) error {
	if len(controls) == 0 {
		return nil
	}
	rows := make([]MonitoredControl, 0, len(controls))
	for _, c := range controls {
		rows = append(rows, monitoredControlFromAPI(c))
	}
	return db.orm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "control_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"auto_remediation_enabled", "last_checked"}),
	}).Create(&rows).Error
}

func (db Database) ListMonitoredControls(ctx context.Context, tenantID string) ([]api.MonitoredControl, error) {
	var rows []MonitoredControl
	tx := db.orm.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("control_id ASC").Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := make([]api.MonitoredControl, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ToAPI())
	}
	return result, nil
}

func (db Database) UpdateMonitoredControl(ctx context.Context, c api.MonitoredControl) error {
	return db.orm.WithContext(ctx).Model(&MonitoredControl{}).
		Where("tenant_id = ? AND control_id = ?", c.TenantID, c.ControlID).
		Updates(map[string]any{
			"status":         string(c.Status),
			"last_checked":   c.LastChecked,
			"drift_detected": c.DriftDetected,
		}).Error
}

func (db Database) SaveAlert(ctx context.Context, alert *api.Alert) error {
	return db.orm.WithContext(ctx).Create(&Alert{
		ID:         alert.ID,
		TenantID:   alert.TenantID,
		ControlID:  alert.ControlID,
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		DetectedAt: alert.DetectedAt,
		DueDate:    alert.DueDate,
		Resolved:   alert.Resolved,
	}).Error
}

func (db Database) ListRecentAlerts(ctx context.Context, tenantID, controlID string, limit int) ([]api.Alert, error) {
	var rows []Alert
	tx := db.orm.WithContext(ctx).
		Where("tenant_id = ? AND control_id = ?", tenantID, controlID).
		Order("detected_at DESC").
		Limit(limit).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := make([]api.Alert, 0, len(rows))
	for _, row := range rows {
		result = append(result, api.Alert{
			ID:         row.ID,
			TenantID:   row.TenantID,
			ControlID:  row.ControlID,
			Severity:   types.FindingSeverity(row.Severity),
			Message:    row.Message,
			DetectedAt: row.DetectedAt,
			DueDate:    row.DueDate,
			Resolved:   row.Resolved,
		})
	}
	return result, nil
}

func (db Database) RecordAutoRemediation(ctx context.Context, tenantID, controlID, alertID string) error {
	return db.orm.WithContext(ctx).Create(&AutoRemediation{
		TenantID:    tenantID,
		ControlID:   controlID,
		AlertID:     alertID,
		RequestedAt: time.Now().UTC(),
	}).Error
}

func (db Database) CountAutoRemediations(ctx context.Context, tenantID string) (int, error) {
	var count int64
	tx := db.orm.WithContext(ctx).Model(&AutoRemediation{}).Where("tenant_id = ?", tenantID).Count(&count)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(count), nil
}

// =========== Audit ===========

func (db Database) AppendAuditEntry(ctx context.Context, entry *api.AuditEntry) error {
	return db.orm.WithContext(ctx).Create(&AuditEntry{
		ID:        entry.ID,
		TenantID:  entry.TenantID,
		Action:    string(entry.Action),
		Actor:     entry.Actor,
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
	}).Error
}

func (db Database) ListAuditEntries(ctx context.Context, tenantID string, limit int) ([]api.AuditEntry, error) {
	var rows []AuditEntry
	tx := db.orm.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := make([]api.AuditEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, api.AuditEntry{
			ID:        row.ID,
			TenantID:  row.TenantID,
			Action:    api.AuditAction(row.Action),
			Actor:     row.Actor,
			Details:   row.Details,
			Timestamp: row.Timestamp,
		})
	}
	return result, nil
}
