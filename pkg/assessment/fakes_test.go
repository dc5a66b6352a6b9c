package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeInventory struct {
	mu        sync.Mutex
	calls     int
	err       error
	resources []api.Resource
}

func (f *fakeInventory) ListResourceGroups(_ context.Context, tenantID string) ([]api.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.resources != nil {
		return f.resources, nil
	}
	return []api.Resource{{
		ID:            "/subscriptions/" + tenantID + "/resourceGroups/rg-1",
		Name:          "rg-1",
		Type:          "Microsoft.Resources/resourceGroups",
		ResourceGroup: "rg-1",
	}}, nil
}

func (f *fakeInventory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCatalog returns controls "<FAMILY>-1".."<FAMILY>-n" with n taken from
// sizes, defaulting to 2.
type fakeCatalog struct {
	sizes map[string]int
	err   error
}

func (f *fakeCatalog) GetControlsByFamily(_ context.Context, family string) ([]api.Control, error) {
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.sizes[family]
	if !ok {
		n = 2
	}
	controls := make([]api.Control, 0, n)
	for i := 1; i <= n; i++ {
		controls = append(controls, api.Control{
			ID:     fmt.Sprintf("%s-%d", family, i),
			Family: family,
			Title:  fmt.Sprintf("%s control %d", family, i),
		})
	}
	return controls, nil
}

// fakeScanner returns the findings registered for a control id.
type fakeScanner struct {
	mu               sync.Mutex
	findings         map[string][]api.Finding
	err              error
	scanned          []string
	resourceGroupRun []string
}

func (f *fakeScanner) ScanControl(_ context.Context, _ string, control api.Control) ([]api.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanned = append(f.scanned, control.ID)
	if f.err != nil {
		return nil, f.err
	}
	return append([]api.Finding(nil), f.findings[control.ID]...), nil
}

func (f *fakeScanner) ScanResourceGroupControl(_ context.Context, _, resourceGroup string, control api.Control) ([]api.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resourceGroupRun = append(f.resourceGroupRun, resourceGroup+"/"+control.ID)
	if f.err != nil {
		return nil, f.err
	}
	return append([]api.Finding(nil), f.findings[control.ID]...), nil
}

type fakeStig struct {
	findings map[string][]api.Finding
}

func (f *fakeStig) ValidateFamilyStigs(_ context.Context, _, _, family string) ([]api.Finding, error) {
	return append([]api.Finding(nil), f.findings[family]...), nil
}

// fakeCollector returns one item per evidence type listed in types, tagged
// with its name.
type fakeCollector struct {
	name  string
	types map[types.EvidenceType]bool
	err   error
	calls []string
}

func newFakeCollector(name string, evidenceTypes ...types.EvidenceType) *fakeCollector {
	c := &fakeCollector{name: name, types: map[types.EvidenceType]bool{}}
	for _, t := range evidenceTypes {
		c.types[t] = true
	}
	return c
}

func (f *fakeCollector) collect(t types.EvidenceType, tenantID, family string) ([]api.Evidence, error) {
	f.calls = append(f.calls, family+":"+t.String())
	if f.err != nil {
		return nil, f.err
	}
	if !f.types[t] {
		return nil, nil
	}
	return []api.Evidence{{
		EvidenceType: t,
		ControlID:    family + "-1",
		ResourceID:   "/subscriptions/" + tenantID,
		Data:         map[string]any{"collector": f.name},
	}}, nil
}

func (f *fakeCollector) CollectConfigurationEvidence(_ context.Context, tenantID, family, _ string) ([]api.Evidence, error) {
	return f.collect(types.EvidenceTypeConfiguration, tenantID, family)
}

func (f *fakeCollector) CollectLogEvidence(_ context.Context, tenantID, family, _ string) ([]api.Evidence, error) {
	return f.collect(types.EvidenceTypeLogs, tenantID, family)
}

func (f *fakeCollector) CollectMetricEvidence(_ context.Context, tenantID, family, _ string) ([]api.Evidence, error) {
	return f.collect(types.EvidenceTypeMetrics, tenantID, family)
}

func (f *fakeCollector) CollectPolicyEvidence(_ context.Context, tenantID, family, _ string) ([]api.Evidence, error) {
	return f.collect(types.EvidenceTypePolicies, tenantID, family)
}

func (f *fakeCollector) CollectAccessControlEvidence(_ context.Context, tenantID, family, _ string) ([]api.Evidence, error) {
	return f.collect(types.EvidenceTypeAccessControl, tenantID, family)
}

type dayAggregate struct {
	score      float64
	failed     int
	passed     int
	active     int
	remediated int
	events     []string
}

type memStore struct {
	mu sync.Mutex

	saveErr error

	assessments      []api.Assessment
	evidence         []api.EvidencePackage
	certificates     []api.ComplianceCertificate
	riskAssessments  []api.RiskAssessment
	days             map[string]dayAggregate
	monitored        map[string]api.MonitoredControl
	alerts           []api.Alert
	autoRemediations []string
	audit            []api.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		days:      map[string]dayAggregate{},
		monitored: map[string]api.MonitoredControl{},
	}
}

var errStoreDown = errors.New("store unavailable")

func (s *memStore) SaveAssessment(_ context.Context, a *api.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.assessments = append(s.assessments, *a)
	return nil
}

func (s *memStore) GetLatestAssessment(_ context.Context, tenantID string) (*api.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.assessments) - 1; i >= 0; i-- {
		if a := s.assessments[i]; a.TenantID == tenantID && a.Status == types.AssessmentStatusCompleted {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListAssessments(_ context.Context, tenantID string, limit int) ([]api.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []api.Assessment
	for i := len(s.assessments) - 1; i >= 0 && len(result) < limit; i-- {
		if s.assessments[i].TenantID == tenantID {
			result = append(result, s.assessments[i])
		}
	}
	return result, nil
}

func (s *memStore) ListUnresolvedFindings(_ context.Context, tenantID string) ([]api.Finding, error) {
	latest, _ := s.GetLatestAssessment(context.Background(), tenantID)
	if latest == nil {
		return nil, nil
	}
	return latest.Findings(), nil
}

func (s *memStore) SaveEvidencePackage(_ context.Context, pkg *api.EvidencePackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.evidence = append(s.evidence, *pkg)
	return nil
}

func (s *memStore) SaveCertificate(_ context.Context, cert *api.ComplianceCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.certificates = append(s.certificates, *cert)
	return nil
}

func (s *memStore) GetCertificate(_ context.Context, id string) (*api.ComplianceCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.certificates {
		if s.certificates[i].ID == id {
			cert := s.certificates[i]
			return &cert, nil
		}
	}
	return nil, nil
}

func (s *memStore) SaveRiskAssessment(_ context.Context, ra *api.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskAssessments = append(s.riskAssessments, *ra)
	return nil
}

func (s *memStore) day(day time.Time) dayAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.days[day.Format("2006-01-02")]
}

func (s *memStore) GetComplianceScoreForDate(_ context.Context, _ string, day time.Time) (float64, error) {
	return s.day(day).score, nil
}

func (s *memStore) GetFailedControlsForDate(_ context.Context, _ string, day time.Time) (int, error) {
	return s.day(day).failed, nil
}

func (s *memStore) GetPassedControlsForDate(_ context.Context, _ string, day time.Time) (int, error) {
	return s.day(day).passed, nil
}

func (s *memStore) GetActiveFindingsForDate(_ context.Context, _ string, day time.Time) (int, error) {
	return s.day(day).active, nil
}

func (s *memStore) GetRemediatedFindingsForDate(_ context.Context, _ string, day time.Time) (int, error) {
	return s.day(day).remediated, nil
}

func (s *memStore) GetEventsForDate(_ context.Context, _ string, day time.Time) ([]string, error) {
	return append([]string(nil), s.day(day).events...), nil
}

func (s *memStore) UpsertMonitoredControls(_ context.Context, controls []api.MonitoredControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range controls {
		s.monitored[c.TenantID+"/"+c.ControlID] = c
	}
	return nil
}

func (s *memStore) ListMonitoredControls(_ context.Context, tenantID string) ([]api.MonitoredControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []api.MonitoredControl
	for _, c := range s.monitored {
		if c.TenantID == tenantID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ControlID < result[j].ControlID })
	return result, nil
}

func (s *memStore) UpdateMonitoredControl(_ context.Context, c api.MonitoredControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitored[c.TenantID+"/"+c.ControlID] = c
	return nil
}

func (s *memStore) SaveAlert(_ context.Context, alert *api.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *memStore) ListRecentAlerts(_ context.Context, tenantID, controlID string, limit int) ([]api.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []api.Alert
	for i := len(s.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if a := s.alerts[i]; a.TenantID == tenantID && a.ControlID == controlID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *memStore) RecordAutoRemediation(_ context.Context, tenantID, controlID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRemediations = append(s.autoRemediations, tenantID+"/"+controlID)
	return nil
}

func (s *memStore) CountAutoRemediations(_ context.Context, tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.autoRemediations {
		if len(r) > len(tenantID) && r[:len(tenantID)+1] == tenantID+"/" {
			n++
		}
	}
	return n, nil
}

func (s *memStore) AppendAuditEntry(_ context.Context, entry *api.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *memStore) ListAuditEntries(_ context.Context, tenantID string, limit int) ([]api.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []api.AuditEntry
	for i := len(s.audit) - 1; i >= 0 && len(result) < limit; i-- {
		if s.audit[i].TenantID == tenantID {
			result = append(result, s.audit[i])
		}
	}
	return result, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []api.ProgressEvent
}

func (s *recordingSink) Report(_ context.Context, event api.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type testEngine struct {
	*Engine
	clock      *fakeClock
	inventory  *fakeInventory
	catalog    *fakeCatalog
	scanner    *fakeScanner
	stig       *fakeStig
	store      *memStore
	defaultCol *fakeCollector
	collectors map[string]*fakeCollector
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		clock:      newFakeClock(),
		inventory:  &fakeInventory{},
		catalog:    &fakeCatalog{sizes: map[string]int{}},
		scanner:    &fakeScanner{findings: map[string][]api.Finding{}},
		stig:       &fakeStig{findings: map[string][]api.Finding{}},
		store:      newMemStore(),
		defaultCol: newFakeCollector(types.DefaultFamily, types.EvidenceTypeConfiguration),
		collectors: map[string]*fakeCollector{
			"AC": newFakeCollector("AC", types.EvidenceTypes...),
			"AU": newFakeCollector("AU", types.EvidenceTypeLogs, types.EvidenceTypeMetrics),
		},
	}

	logger := zap.NewNop()
	cache, err := NewResourceCache(logger, te.inventory, 100, WithCacheClock(te.clock.Now))
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	collectors := map[string]EvidenceCollector{}
	for code, c := range te.collectors {
		collectors[code] = c
	}

	id := 0
	engine, err := New(logger, Dependencies{
		Cache:            cache,
		Catalog:          te.catalog,
		Stig:             te.stig,
		Store:            te.store,
		DefaultScanner:   te.scanner,
		DefaultCollector: te.defaultCol,
		Collectors:       collectors,
	}, WithClock(te.clock.Now), WithIDGenerator(func() string {
		id++
		return fmt.Sprintf("id-%d", id)
	}))
	require.NoError(t, err)
	te.Engine = engine
	return te
}
