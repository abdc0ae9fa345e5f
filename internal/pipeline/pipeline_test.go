// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-insights/internal/catalog"
	"api-insights/internal/collaborators/codegen"
	"api-insights/internal/collaborators/intent"
	"api-insights/internal/collaborators/toolselect"
	apperrors "api-insights/internal/common/errors"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
	"api-insights/internal/tools"
)

// --- fakes ---

type fakeResolver struct {
	intent *models.Intent
	err    error
}

func (f *fakeResolver) Resolve(context.Context, string, []models.APIInfo) (*models.Intent, error) {
	return f.intent, f.err
}

// ctxAwareResolver behaves like the real intent client: a canceled
// context cuts the call short and surfaces as an intent timeout.
type ctxAwareResolver struct {
	intent *models.Intent
	delay  time.Duration
}

func (f *ctxAwareResolver) Resolve(ctx context.Context, _ string, _ []models.APIInfo) (*models.Intent, error) {
	select {
	case <-time.After(f.delay):
		return f.intent, nil
	case <-ctx.Done():
		return nil, intent.ErrIntentAPITimeout
	}
}

type fakeSelector struct {
	selected []string
	err      error
	gotReg   []toolselect.ToolDescriptor
}

func (f *fakeSelector) Select(_ context.Context, _ string, reg []toolselect.ToolDescriptor) ([]string, error) {
	f.gotReg = reg
	return f.selected, f.err
}

type fakeGenerator struct {
	program    *models.SynthesizedProgram
	err        error
	called     bool
	gotSchemas map[string]models.Schema
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, schemas map[string]models.Schema, _ models.TimeRange) (*models.SynthesizedProgram, error) {
	f.called = true
	f.gotSchemas = schemas
	return f.program, f.err
}

type fakeExecutor struct {
	result models.ExecutionResult
	err    error
	called bool
}

func (f *fakeExecutor) Execute(context.Context, models.SynthesizedProgram, *models.DatasetBundle) (models.ExecutionResult, error) {
	f.called = true
	return f.result, f.err
}

type fakeComposer struct {
	text      string
	err       error
	gotResult models.ExecutionResult
	gotChart  bool
}

func (f *fakeComposer) Compose(_ context.Context, _ string, result models.ExecutionResult, chartPresent bool) (string, error) {
	f.gotResult = result
	f.gotChart = chartPresent
	return f.text, f.err
}

type fakeCatalog struct {
	entries []catalog.Entry
	err     error
}

func (f *fakeCatalog) List(context.Context) ([]catalog.Entry, error) { return f.entries, f.err }

type fakeInventory struct {
	apis []models.APIInfo
	err  error
}

func (f *fakeInventory) List(context.Context) ([]models.APIInfo, error) { return f.apis, f.err }

type fakeAdapter struct {
	id      tools.ToolID
	dataset models.Dataset
	err     error
	delay   time.Duration

	mu     sync.Mutex
	called bool
}

func (f *fakeAdapter) ID() tools.ToolID { return f.id }
func (f *fakeAdapter) Describe() string { return string(f.id) }
func (f *fakeAdapter) Fetch(ctx context.Context, _ models.Target, _ models.TimeRange) (models.Dataset, error) {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.Dataset{}, tools.ErrSourceTimeout
		}
	}
	return f.dataset, f.err
}

type memoryAnswers struct {
	mu      sync.Mutex
	entries map[string]models.FinalAnswer
}

func newMemoryAnswers() *memoryAnswers {
	return &memoryAnswers{entries: make(map[string]models.FinalAnswer)}
}

func (m *memoryAnswers) Get(_ context.Context, key string) *models.FinalAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.entries[key]; ok {
		return &a
	}
	return nil
}

func (m *memoryAnswers) Put(_ context.Context, key string, answer models.FinalAnswer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = answer
}

// --- fixtures ---

func testIntent(t *testing.T) *models.Intent {
	t.Helper()
	start, err := time.Parse(time.RFC3339, "2026-08-28T00:00:00Z")
	require.NoError(t, err)
	return &models.Intent{
		TimeRange: models.TimeRange{Start: start, End: start.Add(48 * time.Hour)},
		Target:    models.Target{Name: "orders", ID: "api-42"},
	}
}

func errorDataset() models.Dataset {
	return models.Dataset{
		ToolID:  string(tools.ToolErrorData),
		Records: []models.Record{{"responseCode": 503.0, "hitCount": 17.0}},
		Schema:  models.Schema{{Name: "responseCode", Type: "long"}, {Name: "hitCount", Type: "long"}},
	}
}

type fixture struct {
	resolver  *fakeResolver
	selector  *fakeSelector
	generator *fakeGenerator
	executor  *fakeExecutor
	composer  *fakeComposer
	adapter   *fakeAdapter
	answers   *memoryAnswers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		resolver: &fakeResolver{intent: testIntent(t)},
		selector: &fakeSelector{selected: []string{string(tools.ToolErrorData)}},
		generator: &fakeGenerator{program: &models.SynthesizedProgram{
			SourceText: "def analyze(bundle):\n    return {}",
		}},
		executor: &fakeExecutor{result: models.ExecutionResult{
			Insights: []string{"503 spike"},
			Chart:    "cG5n",
			Data:     map[string]interface{}{"peak": 17.0},
		}},
		composer: &fakeComposer{text: "Orders saw a spike in 503 errors."},
		adapter:  &fakeAdapter{id: tools.ToolErrorData, dataset: errorDataset()},
		answers:  newMemoryAnswers(),
	}
}

func (f *fixture) orchestrator(extra ...tools.Adapter) *Orchestrator {
	adapters := append([]tools.Adapter{f.adapter}, extra...)
	return NewOrchestrator(Options{
		Resolver:  f.resolver,
		Selector:  f.selector,
		Generator: f.generator,
		Executor:  f.executor,
		Composer:  f.composer,
		Registry:  tools.NewRegistry(adapters...),
		Catalog: &fakeCatalog{entries: []catalog.Entry{
			{ID: string(tools.ToolErrorData), DisplayName: "Error Data", Description: "errors", Enabled: true},
		}},
		Inventory: &fakeInventory{apis: []models.APIInfo{{ID: "api-42", Name: "orders"}}},
		Answers:   f.answers,
		CacheKey: func(q string, in models.Intent) string {
			return q + "|" + in.TimeRange.Start.Format(time.RFC3339)
		},
		Logger: logger.NewNoOpLogger(),
	})
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, code, stdErr.Code)
}

// --- tests ---

func TestAnswerHappyPath(t *testing.T) {
	f := newFixture(t)

	answer, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)

	assert.Equal(t, "Orders saw a spike in 503 errors.", answer.Narrative)
	assert.Equal(t, "cG5n", answer.Chart)

	// The narrative collaborator sees the sanitized result only.
	assert.Empty(t, f.composer.gotResult.Chart)
	assert.True(t, f.composer.gotChart)

	// Synthesis sees schemas, keyed by tool id.
	assert.Contains(t, f.generator.gotSchemas, string(tools.ToolErrorData))
}

func TestAnswerCachesAndServesRepeatQuestions(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	first, err := o.Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)

	f.executor.called = false
	f.generator.called = false

	second, err := o.Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, f.generator.called, "cached answer must not trigger synthesis")
	assert.False(t, f.executor.called, "cached answer must not trigger execution")
}

func TestAnswerEmptySelectionShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.selector.selected = nil

	answer, err := f.orchestrator().Answer(context.Background(), "what is the weather")
	require.NoError(t, err)

	assert.Contains(t, answer.Narrative, "None of the available telemetry tools")
	f.adapter.mu.Lock()
	defer f.adapter.mu.Unlock()
	assert.False(t, f.adapter.called)
	assert.False(t, f.generator.called)
}

func TestAnswerUnknownSelectionIsDroppedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.selector.selected = []string{"billing-data", string(tools.ToolErrorData)}

	answer, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Narrative)
	assert.True(t, f.executor.called)
}

func TestAnswerEmptyWindowSkipsSynthesis(t *testing.T) {
	f := newFixture(t)
	f.adapter.dataset = models.Dataset{
		ToolID: string(tools.ToolErrorData),
		Schema: errorDataset().Schema,
	}

	answer, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)

	assert.Contains(t, answer.Narrative, "No telemetry data")
	assert.Contains(t, answer.Narrative, "2026-08-28T00:00:00Z")
	assert.False(t, f.generator.called)
	assert.False(t, f.executor.called)
}

func TestAnswerIntentFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = intent.ErrIntentAPITimeout
	f.resolver.intent = nil

	_, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeIntentAPITimeout)
}

func TestAnswerSelectionFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.selector.err = toolselect.ErrToolSelectionFailed
	f.selector.selected = nil

	_, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeToolSelectionFailed)
}

func TestAnswerSourceFailureAbortsWithoutPartialAnalysis(t *testing.T) {
	f := newFixture(t)
	failing := &fakeAdapter{id: tools.ToolTrafficData, err: tools.ErrSourceUnavailable}
	f.selector.selected = []string{string(tools.ToolErrorData), string(tools.ToolTrafficData)}

	_, err := f.orchestrator(failing).Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeSourceUnavailable)
	assert.False(t, f.generator.called, "partial bundles must never reach synthesis")
}

func TestAnswerSourceFailureCancelsSlowSiblings(t *testing.T) {
	f := newFixture(t)
	f.adapter.delay = 5 * time.Second
	failing := &fakeAdapter{id: tools.ToolTrafficData, err: tools.ErrSourceUnavailable}
	f.selector.selected = []string{string(tools.ToolErrorData), string(tools.ToolTrafficData)}

	started := time.Now()
	_, err := f.orchestrator(failing).Answer(context.Background(), "why did orders fail")
	require.Error(t, err)
	assert.Less(t, time.Since(started), 2*time.Second, "slow sibling fetch must be canceled")
}

func TestAnswerSynthesisExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.program = nil
	f.generator.err = codegen.ErrNoCodeBlock

	_, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeSynthesisExtractionFailed)
	assert.False(t, f.executor.called)
}

func TestAnswerExecutionTimeout(t *testing.T) {
	f := newFixture(t)
	f.executor.err = apperrors.NewExecutionTimeoutError(time.Minute)
	f.executor.result = models.ExecutionResult{}

	_, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeExecutionTimeout)
}

func TestAnswerProgramInternalErrorWithNothingUseful(t *testing.T) {
	f := newFixture(t)
	f.executor.result = models.ExecutionResult{Error: "KeyError: responseCode"}

	_, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeProgramInternalError)
}

func TestAnswerProgramErrorWithPartialResultStillComposes(t *testing.T) {
	f := newFixture(t)
	f.executor.result = models.ExecutionResult{
		Error:    "chart rendering failed",
		Insights: []string{"503 spike"},
		Data:     map[string]interface{}{"peak": 17.0},
	}

	answer, err := f.orchestrator().Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Narrative)
	assert.Empty(t, answer.Chart)
	assert.False(t, f.composer.gotChart)
}

func TestAnswerInventoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	o := NewOrchestrator(Options{
		Resolver:  f.resolver,
		Selector:  f.selector,
		Generator: f.generator,
		Executor:  f.executor,
		Composer:  f.composer,
		Registry:  tools.NewRegistry(f.adapter),
		Catalog: &fakeCatalog{entries: []catalog.Entry{
			{ID: string(tools.ToolErrorData), DisplayName: "Error Data", Enabled: true},
		}},
		Inventory: &fakeInventory{err: tools.ErrSourceUnavailable},
		Logger:    logger.NewNoOpLogger(),
	})

	answer, err := o.Answer(context.Background(), "why did orders fail")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Narrative)
}

func TestAnswerCatalogFailureAborts(t *testing.T) {
	f := newFixture(t)
	o := NewOrchestrator(Options{
		Resolver:  f.resolver,
		Selector:  f.selector,
		Generator: f.generator,
		Executor:  f.executor,
		Composer:  f.composer,
		Registry:  tools.NewRegistry(f.adapter),
		Catalog:   &fakeCatalog{err: apperrors.NewCatalogUnavailableError(assert.AnError)},
		Inventory: &fakeInventory{},
		Logger:    logger.NewNoOpLogger(),
	})

	_, err := o.Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeCatalogUnavailable)
}

func TestAnswerCatalogFailureNotMaskedByCanceledIntentCall(t *testing.T) {
	// The catalog failure cancels the in-flight intent call, which then
	// reports a timeout of its own. The caller must still see the
	// catalog outage, not the induced intent error.
	f := newFixture(t)
	o := NewOrchestrator(Options{
		Resolver:  &ctxAwareResolver{intent: testIntent(t), delay: 5 * time.Second},
		Selector:  f.selector,
		Generator: f.generator,
		Executor:  f.executor,
		Composer:  f.composer,
		Registry:  tools.NewRegistry(f.adapter),
		Catalog:   &fakeCatalog{err: apperrors.NewCatalogUnavailableError(assert.AnError)},
		Inventory: &fakeInventory{},
		Logger:    logger.NewNoOpLogger(),
	})

	started := time.Now()
	_, err := o.Answer(context.Background(), "why did orders fail")
	assertCode(t, err, apperrors.ErrCodeCatalogUnavailable)
	assert.Less(t, time.Since(started), 2*time.Second, "intent call must be canceled, not awaited")
}
