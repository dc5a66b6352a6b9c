package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	archived []string
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, pkg *api.EvidencePackage) error {
	f.archived = append(f.archived, pkg.ID)
	return f.err
}

func TestCollectEvidenceUnknownFamilyUsesDefault(t *testing.T) {
	te := newTestEngine(t)

	pkg, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "pe", "auditor", nil)
	require.NoError(t, err)

	assert.Equal(t, "PE", pkg.ControlFamily)
	assert.Equal(t, []string{types.DefaultFamily}, pkg.Collectors)
	assert.Len(t, te.defaultCol.calls, 5)
	assert.Equal(t, "PE:Configuration", te.defaultCol.calls[0])
	require.Len(t, pkg.Evidence, 1)
	// PE expects 3 evidence types
	assert.Equal(t, 33.33, pkg.CompletenessScore)
	assert.Empty(t, pkg.Error)
}

func TestCollectEvidenceRegisteredFamily(t *testing.T) {
	te := newTestEngine(t)
	sink := &recordingSink{}

	pkg, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "AU", "auditor", sink)
	require.NoError(t, err)

	assert.Empty(t, te.defaultCol.calls)
	assert.Equal(t, []string{"AU:Configuration", "AU:Logs", "AU:Metrics", "AU:Policies", "AU:AccessControl"}, te.collectors["AU"].calls)
	assert.Len(t, pkg.Evidence, 2)
	assert.Equal(t, 50.0, pkg.CompletenessScore)

	require.Len(t, sink.events, 10)
	assert.Equal(t, api.ProgressStageStarted, sink.events[0].Stage)
	assert.Equal(t, "Configuration", sink.events[0].EvidenceType)
	assert.Equal(t, 5, sink.events[9].Completed)
	assert.Equal(t, 5, sink.events[9].Total)
	assert.Contains(t, pkg.AttestationStatement, pkg.ID)
	assert.Contains(t, pkg.AttestationStatement, "AU")
	assert.Contains(t, pkg.AttestationStatement, "50.00%")
	assert.Contains(t, pkg.AttestationStatement, "2024-03-01")

	require.Len(t, te.store.evidence, 1)
}

func TestCollectEvidenceAllFamilies(t *testing.T) {
	te := newTestEngine(t)
	sink := &recordingSink{}

	pkg, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "all", "auditor", sink)
	require.NoError(t, err)

	assert.Equal(t, types.AllFamilies, pkg.ControlFamily)
	assert.Equal(t, []string{"AC", "AU"}, pkg.Collectors)
	assert.Empty(t, te.defaultCol.calls)
	assert.Len(t, sink.events, 2*5*2)
	assert.Equal(t, 20, sink.events[len(sink.events)-1].Total)
	assert.Len(t, pkg.Evidence, 7)
	assert.Equal(t, 100.0, pkg.CompletenessScore)
}

func TestCompletenessCappedAndIdempotent(t *testing.T) {
	te := newTestEngine(t)

	// AC collector returns all five types and IR expects three
	evidence := []api.Evidence{}
	for _, et := range types.EvidenceTypes {
		evidence = append(evidence, api.Evidence{EvidenceType: et})
	}
	assert.Equal(t, 100.0, CompletenessScore(evidence, "IR"))
	assert.Equal(t, 100.0, CompletenessScore(evidence, "AC"))
	assert.Equal(t, 80.0, CompletenessScore(evidence[:4], "AC"))
	assert.Zero(t, CompletenessScore(nil, "AC"))

	first, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "AC", "auditor", nil)
	require.NoError(t, err)
	second, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "AC", "auditor", nil)
	require.NoError(t, err)
	assert.Equal(t, first.CompletenessScore, second.CompletenessScore)
	assert.Equal(t, 100.0, first.CompletenessScore)
}

func TestCollectEvidenceCollectorError(t *testing.T) {
	te := newTestEngine(t)
	te.collectors["AC"].err = errors.New("forbidden")

	pkg, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "AC", "auditor", nil)
	require.Error(t, err)
	require.NotNil(t, pkg)
	assert.Contains(t, pkg.Error, "forbidden")
	assert.NotNil(t, pkg.CollectionEndTime)
	assert.Empty(t, te.store.evidence)
}

func TestCollectEvidenceCancelled(t *testing.T) {
	te := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := te.CollectComplianceEvidence(ctx, "tenant-1", "AC", "auditor", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, te.collectors["AC"].calls)
}

func TestCollectEvidenceValidation(t *testing.T) {
	te := newTestEngine(t)

	_, err := te.CollectComplianceEvidence(context.Background(), "", "AC", "auditor", nil)
	assert.ErrorIs(t, err, ErrInvalidTenantID)
	_, err = te.CollectComplianceEvidence(context.Background(), "tenant-1", " ", "auditor", nil)
	assert.ErrorIs(t, err, ErrInvalidFamily)
}

func TestCollectEvidenceArchiveFailureIsLogged(t *testing.T) {
	te := newTestEngine(t)
	archiver := &fakeArchiver{err: errors.New("bucket missing")}
	te.archiver = archiver
	te.store.saveErr = errStoreDown

	pkg, err := te.CollectComplianceEvidence(context.Background(), "tenant-1", "AC", "auditor", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{pkg.ID}, archiver.archived)
}
