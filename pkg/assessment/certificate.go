package assessment

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

const (
	CertificationThreshold = 80.0

	certificateValidityMonths = 6
)

// GenerateComplianceCertificate issues a certificate for the latest completed
// assessment of the tenant if its overall score reaches the threshold.
func (e *Engine) GenerateComplianceCertificate(ctx context.Context, tenantID string) (*api.ComplianceCertificate, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "GenerateComplianceCertificate")

	cert, err := e.generateCertificate(ctx, tenantID)
	if err != nil {
		CertificatesCount.WithLabelValues("refused").Inc()
		e.logger.Warn("certificate not issued", zap.String("tenantID", tenantID), zap.Error(err))
		endSpan(span, err)
		return nil, err
	}
	CertificatesCount.WithLabelValues("issued").Inc()

	if err := e.store.SaveCertificate(ctx, cert); err != nil {
		e.logger.Error("failed to persist certificate", zap.String("tenantID", tenantID), zap.Error(err))
	}
	e.audit(ctx, tenantID, api.AuditActionCertificateIssued, "",
		fmt.Sprintf("certificate %s (serial %d) issued for assessment %s with score %.1f", cert.ID, cert.SerialNumber, cert.AssessmentID, cert.ComplianceScore))
	endSpan(span, nil)
	return cert, nil
}

func (e *Engine) generateCertificate(ctx context.Context, tenantID string) (*api.ComplianceCertificate, error) {
	latest, err := e.store.GetLatestAssessment(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest assessment: %w", err)
	}
	if latest == nil || latest.Status != types.AssessmentStatusCompleted {
		return nil, ErrNoAssessment
	}
	if latest.OverallComplianceScore < CertificationThreshold {
		return nil, &ScoreBelowThresholdError{
			AssessmentID: latest.ID,
			Score:        latest.OverallComplianceScore,
			Threshold:    CertificationThreshold,
		}
	}

	serial, err := e.serials.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate serial: %w", err)
	}

	issuedAt := e.now().UTC().Truncate(time.Second)
	cert := &api.ComplianceCertificate{
		ID:                e.newID(),
		SerialNumber:      serial,
		TenantID:          tenantID,
		AssessmentID:      latest.ID,
		IssuedAt:          issuedAt,
		ExpiresAt:         issuedAt.AddDate(0, certificateValidityMonths, 0),
		ComplianceScore:   latest.OverallComplianceScore,
		CertifiedFamilies: []string{},
		Attestations:      []api.Attestation{},
	}
	for _, code := range familyCodes(latest.ControlFamilyResults) {
		cert.CertifiedFamilies = append(cert.CertifiedFamilies, code)
		cert.Attestations = append(cert.Attestations, NewAttestation(latest.ControlFamilyResults[code]))
	}

	cert.VerificationHash, err = CertificateHash(cert)
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// NewAttestation attests one family. Exceptions are the controls affected by
// the family's low severity findings.
func NewAttestation(result *api.FamilyResult) api.Attestation {
	level := types.ComplianceLevelPartial
	if result.ComplianceScore >= CertificationThreshold {
		level = types.ComplianceLevelCompliant
	}

	exceptions := []string{}
	seen := map[string]bool{}
	for _, f := range result.Findings {
		if f.Severity != types.FindingSeverityLow {
			continue
		}
		for _, id := range f.AffectedControls {
			if key := normalizeControlID(id); !seen[key] {
				seen[key] = true
				exceptions = append(exceptions, id)
			}
		}
	}

	return api.Attestation{
		ControlFamily:   result.FamilyCode,
		FamilyName:      result.FamilyName,
		ComplianceLevel: level,
		ComplianceScore: result.ComplianceScore,
		Exceptions:      exceptions,
	}
}

// CertificateHash is the hex SHA-256 of the JSON encoding of the certificate
// with an empty verification hash.
func CertificateHash(cert *api.ComplianceCertificate) (string, error) {
	unsigned := *cert
	unsigned.VerificationHash = ""
	b, err := json.Marshal(unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to encode certificate: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyCertificate reports whether the certificate content still matches its
// verification hash.
func VerifyCertificate(cert *api.ComplianceCertificate) bool {
	if cert == nil || cert.VerificationHash == "" {
		return false
	}
	hash, err := CertificateHash(cert)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(cert.VerificationHash)) == 1
}

// VerifyStoredCertificate loads an issued certificate and checks its hash.
// The certificate is nil when no certificate with the id was issued.
func (e *Engine) VerifyStoredCertificate(ctx context.Context, id string) (*api.ComplianceCertificate, bool, error) {
	ctx, span := startSpan(ctx, "VerifyStoredCertificate")

	cert, err := e.store.GetCertificate(ctx, strings.TrimSpace(id))
	if err != nil {
		err = fmt.Errorf("failed to fetch certificate: %w", err)
		endSpan(span, err)
		return nil, false, err
	}
	endSpan(span, nil)
	if cert == nil {
		return nil, false, nil
	}
	return cert, VerifyCertificate(cert), nil
}

// familyCodes orders result keys by catalog position, unknown codes last.
func familyCodes(results map[string]*api.FamilyResult) []string {
	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ii, jj := types.FamilyIndex(codes[i]), types.FamilyIndex(codes[j])
		switch {
		case ii >= 0 && jj >= 0:
			return ii < jj
		case ii >= 0:
			return true
		case jj >= 0:
			return false
		default:
			return codes[i] < codes[j]
		}
	})
	return codes
}
