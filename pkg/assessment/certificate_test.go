package assessment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAssessment(te *testEngine, score float64) *api.Assessment {
	a := api.Assessment{
		ID:                     "assessment-1",
		TenantID:               "tenant-1",
		Status:                 types.AssessmentStatusCompleted,
		OverallComplianceScore: score,
		ControlFamilyResults: map[string]*api.FamilyResult{
			"AU": {FamilyCode: "AU", FamilyName: "Audit and Accountability", TotalControls: 4, PassedControls: 3, ComplianceScore: 75},
			"AC": {
				FamilyCode: "AC", FamilyName: "Access Control", TotalControls: 10, PassedControls: 9, ComplianceScore: 90,
				Findings: []api.Finding{
					{Severity: types.FindingSeverityLow, AffectedControls: []string{"AC-2", "AC-3"}},
					{Severity: types.FindingSeverityLow, AffectedControls: []string{"ac-2"}},
					{Severity: types.FindingSeverityHigh, AffectedControls: []string{"AC-7"}},
				},
			},
		},
	}
	te.store.assessments = append(te.store.assessments, a)
	return &a
}

func TestCertificateRefusedBelowThreshold(t *testing.T) {
	te := newTestEngine(t)
	seedAssessment(te, 79.9)

	cert, err := te.GenerateComplianceCertificate(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Nil(t, cert)

	var scoreErr *ScoreBelowThresholdError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, 79.9, scoreErr.Score)
	assert.Contains(t, err.Error(), "79.90")
	assert.True(t, IsPreconditionError(err))
	assert.Empty(t, te.store.certificates)
}

func TestCertificateIssuedAtThreshold(t *testing.T) {
	te := newTestEngine(t)
	seedAssessment(te, 80.0)

	cert, err := te.GenerateComplianceCertificate(context.Background(), "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, "assessment-1", cert.AssessmentID)
	assert.Equal(t, 80.0, cert.ComplianceScore)
	assert.Equal(t, cert.IssuedAt.AddDate(0, 6, 0), cert.ExpiresAt)
	assert.NotZero(t, cert.SerialNumber)
	assert.Equal(t, []string{"AC", "AU"}, cert.CertifiedFamilies)

	require.Len(t, cert.Attestations, 2)
	assert.Equal(t, types.ComplianceLevelCompliant, cert.Attestations[0].ComplianceLevel)
	assert.Equal(t, []string{"AC-2", "AC-3"}, cert.Attestations[0].Exceptions)
	assert.Equal(t, types.ComplianceLevelPartial, cert.Attestations[1].ComplianceLevel)
	assert.Empty(t, cert.Attestations[1].Exceptions)

	assert.Len(t, cert.VerificationHash, 64)
	assert.True(t, VerifyCertificate(cert))
	require.Len(t, te.store.certificates, 1)
}

func TestCertificateWithoutAssessment(t *testing.T) {
	te := newTestEngine(t)

	_, err := te.GenerateComplianceCertificate(context.Background(), "tenant-1")
	assert.ErrorIs(t, err, ErrNoAssessment)
}

func TestCertificateTamperDetected(t *testing.T) {
	te := newTestEngine(t)
	seedAssessment(te, 92)

	cert, err := te.GenerateComplianceCertificate(context.Background(), "tenant-1")
	require.NoError(t, err)

	// survives a JSON round trip
	b, err := json.Marshal(cert)
	require.NoError(t, err)
	var decoded api.ComplianceCertificate
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, VerifyCertificate(&decoded))

	decoded.ComplianceScore = 99
	assert.False(t, VerifyCertificate(&decoded))

	decoded.ComplianceScore = cert.ComplianceScore
	decoded.Attestations[1].Exceptions = append(decoded.Attestations[1].Exceptions, "AU-1")
	assert.False(t, VerifyCertificate(&decoded))

	assert.False(t, VerifyCertificate(&api.ComplianceCertificate{}))
	assert.False(t, VerifyCertificate(nil))
}

func TestVerifyStoredCertificate(t *testing.T) {
	te := newTestEngine(t)
	seedAssessment(te, 85)

	cert, err := te.GenerateComplianceCertificate(context.Background(), "tenant-1")
	require.NoError(t, err)

	stored, valid, err := te.VerifyStoredCertificate(context.Background(), cert.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, valid)

	te.store.certificates[0].ComplianceScore = 100
	_, valid, err = te.VerifyStoredCertificate(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.False(t, valid)

	stored, valid, err = te.VerifyStoredCertificate(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.False(t, valid)
}
