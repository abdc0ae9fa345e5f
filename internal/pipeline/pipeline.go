// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"api-insights/internal/catalog"
	"api-insights/internal/collaborators/codegen"
	"api-insights/internal/collaborators/intent"
	"api-insights/internal/collaborators/narrative"
	"api-insights/internal/collaborators/toolselect"
	apperrors "api-insights/internal/common/errors"
	"api-insights/internal/common/logger"
	"api-insights/internal/common/metrics"
	"api-insights/internal/common/observability"
	"api-insights/internal/models"
	"api-insights/internal/tools"
)

// Stage names, used for logging and per-stage metrics.
const (
	StageIntent    = "intent"
	StageSelection = "selection"
	StageCollect   = "collect"
	StageSynthesis = "synthesis"
	StageExecution = "execution"
	StageNarrative = "narrative"
)

// Collaborator and infrastructure contracts. The orchestrator depends on
// these, never on concrete clients, so each stage can be exercised in
// isolation.
type (
	IntentResolver interface {
		Resolve(ctx context.Context, userQuery string, apis []models.APIInfo) (*models.Intent, error)
	}

	ToolSelector interface {
		Select(ctx context.Context, userQuery string, registry []toolselect.ToolDescriptor) ([]string, error)
	}

	ProgramGenerator interface {
		Generate(ctx context.Context, userQuery string, schemas map[string]models.Schema, window models.TimeRange) (*models.SynthesizedProgram, error)
	}

	Executor interface {
		Execute(ctx context.Context, program models.SynthesizedProgram, bundle *models.DatasetBundle) (models.ExecutionResult, error)
	}

	NarrativeComposer interface {
		Compose(ctx context.Context, userQuery string, result models.ExecutionResult, chartPresent bool) (string, error)
	}

	CatalogLister interface {
		List(ctx context.Context) ([]catalog.Entry, error)
	}

	InventoryLister interface {
		List(ctx context.Context) ([]models.APIInfo, error)
	}

	// AnswerStore memoizes final answers. Both methods are best-effort.
	AnswerStore interface {
		Get(ctx context.Context, key string) *models.FinalAnswer
		Put(ctx context.Context, key string, answer models.FinalAnswer)
	}
)

// Orchestrator drives one question through the full pipeline: intent
// resolution and tool selection fan out first, dataset adapters fan out
// next, then synthesis, sandboxed execution and narrative composition
// run in sequence.
type Orchestrator struct {
	resolver  IntentResolver
	selector  ToolSelector
	generator ProgramGenerator
	executor  Executor
	composer  NarrativeComposer

	registry  *tools.Registry
	catalog   CatalogLister
	inventory InventoryLister
	answers   AnswerStore

	obs    *observability.Observability
	logger logger.Logger

	cacheKey func(userQuery string, in models.Intent) string
}

type Options struct {
	Resolver  IntentResolver
	Selector  ToolSelector
	Generator ProgramGenerator
	Executor  Executor
	Composer  NarrativeComposer

	Registry  *tools.Registry
	Catalog   CatalogLister
	Inventory InventoryLister
	Answers   AnswerStore // nil disables caching
	CacheKey  func(userQuery string, in models.Intent) string

	Observability *observability.Observability
	Logger        logger.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		resolver:  opts.Resolver,
		selector:  opts.Selector,
		generator: opts.Generator,
		executor:  opts.Executor,
		composer:  opts.Composer,
		registry:  opts.Registry,
		catalog:   opts.Catalog,
		inventory: opts.Inventory,
		answers:   opts.Answers,
		cacheKey:  opts.CacheKey,
		obs:       opts.Observability,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Answer runs the whole pipeline for one question. The error, when not
// nil, is always a *apperrors.StandardError ready for response mapping.
func (o *Orchestrator) Answer(ctx context.Context, userQuery string) (*models.FinalAnswer, error) {
	started := time.Now()
	answer, err := o.answer(ctx, userQuery)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.PipelineRequests.WithLabelValues(outcome).Inc()
	if o.obs != nil {
		o.obs.RecordRequestProcessed(ctx, outcome)
		o.obs.RecordRequestDuration(ctx, time.Since(started), outcome)
	}
	return answer, err
}

func (o *Orchestrator) answer(ctx context.Context, userQuery string) (*models.FinalAnswer, error) {
	resolved, selectedRaw, err := o.resolveAndSelect(ctx, userQuery)
	if err != nil {
		return nil, err
	}

	var key string
	if o.answers != nil && o.cacheKey != nil {
		key = o.cacheKey(userQuery, *resolved)
		if cached := o.answers.Get(ctx, key); cached != nil {
			o.logger.Info("answer served from cache", map[string]interface{}{"key": key})
			return cached, nil
		}
	}

	selected := o.registry.ParseToolIDs(selectedRaw)
	if len(selected) == 0 {
		o.logger.Info("no applicable tool for query", map[string]interface{}{
			"selectedRaw": selectedRaw,
		})
		return &models.FinalAnswer{
			Narrative: "None of the available telemetry tools can answer this question. Try asking about API errors, traffic, or latency.",
		}, nil
	}

	bundle, err := o.collect(ctx, selected, resolved)
	if err != nil {
		return nil, err
	}

	if bundle.AllEmpty() {
		o.logger.Info("no data in analysis window", map[string]interface{}{
			"start": resolved.TimeRange.Start.Format(time.RFC3339),
			"end":   resolved.TimeRange.End.Format(time.RFC3339),
		})
		return &models.FinalAnswer{
			Narrative: fmt.Sprintf("No telemetry data was found between %s and %s. The APIs may have had no traffic in that period.",
				resolved.TimeRange.Start.Format(time.RFC3339), resolved.TimeRange.End.Format(time.RFC3339)),
		}, nil
	}

	var program *models.SynthesizedProgram
	err = o.stage(StageSynthesis, func() error {
		var genErr error
		program, genErr = o.generator.Generate(ctx, userQuery, bundle.Schemas(), resolved.TimeRange)
		return genErr
	})
	if err != nil {
		return nil, mapStageError(StageSynthesis, err)
	}

	var result models.ExecutionResult
	err = o.stage(StageExecution, func() error {
		var execErr error
		result, execErr = o.executor.Execute(ctx, *program, bundle)
		return execErr
	})
	if err != nil {
		return nil, mapStageError(StageExecution, err)
	}

	// A program that failed internally and produced nothing useful is a
	// pipeline failure. A partial result still flows to the narrative,
	// which can explain what went wrong.
	if result.Error != "" && len(result.Insights) == 0 && len(result.Data) == 0 {
		failureErr := apperrors.NewProgramInternalError(result.Error)
		metrics.PipelineStageFailures.WithLabelValues(StageExecution, string(failureErr.Code)).Inc()
		return nil, failureErr
	}

	chartPresent := result.Chart != ""
	var text string
	err = o.stage(StageNarrative, func() error {
		var composeErr error
		text, composeErr = o.composer.Compose(ctx, userQuery, result.Sanitized(), chartPresent)
		return composeErr
	})
	if err != nil {
		return nil, mapStageError(StageNarrative, err)
	}

	answer := &models.FinalAnswer{Narrative: text, Chart: result.Chart}
	if key != "" {
		o.answers.Put(ctx, key, *answer)
	}
	return answer, nil
}

// resolveAndSelect runs intent resolution and tool selection
// concurrently; both only need the question text. The first genuine
// failure cancels the sibling, whose own error is then
// cancellation-induced noise and must not be reported: otherwise a
// catalog outage would surface as an intent timeout.
func (o *Orchestrator) resolveAndSelect(ctx context.Context, userQuery string) (*models.Intent, []string, error) {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		failedStage string
		failedErr   error
		resolved    *models.Intent
		selected    []string
	)

	fail := func(stageName string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if failedErr == nil {
			failedStage, failedErr = stageName, err
			cancel()
		}
	}

	runStage := func(name string, fn func() error) {
		started := time.Now()
		err := fn()
		metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
		if err != nil {
			fail(name, err)
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		runStage(StageIntent, func() error {
			apis, err := o.inventory.List(fanCtx)
			if err != nil {
				// Intent resolution can proceed unguided; the
				// collaborator just loses name-to-id grounding.
				o.logger.Warn("api inventory unavailable", map[string]interface{}{"error": err.Error()})
				apis = nil
			}
			resolved, err = o.resolver.Resolve(fanCtx, userQuery, apis)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		runStage(StageSelection, func() error {
			entries, err := o.catalog.List(fanCtx)
			if err != nil {
				return err
			}
			descriptors := make([]toolselect.ToolDescriptor, 0, len(entries))
			for _, e := range entries {
				descriptors = append(descriptors, toolselect.ToolDescriptor{
					ID:          e.ID,
					Name:        e.DisplayName,
					Description: e.Description,
				})
			}
			selected, err = o.selector.Select(fanCtx, userQuery, descriptors)
			return err
		})
	}()
	wg.Wait()

	if failedErr != nil {
		stdErr := mapStageError(failedStage, failedErr)
		metrics.PipelineStageFailures.WithLabelValues(failedStage, string(stdErr.Code)).Inc()
		o.logger.WithError(failedErr).Error("pipeline stage failed", map[string]interface{}{"stage": failedStage})
		return nil, nil, stdErr
	}
	return resolved, selected, nil
}

// collect fans out one fetch per selected tool and joins the results
// into a bundle. The first failure cancels the remaining fetches; there
// is no analysis over a partial bundle.
func (o *Orchestrator) collect(ctx context.Context, selected []tools.ToolID, resolved *models.Intent) (*models.DatasetBundle, error) {
	bundle := models.NewDatasetBundle()

	err := o.stage(StageCollect, func() error {
		adapters := make([]tools.Adapter, 0, len(selected))
		for _, id := range selected {
			adapter, err := o.registry.Get(id)
			if err != nil {
				return err
			}
			adapters = append(adapters, adapter)
		}

		fanCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
		)

		for _, adapter := range adapters {
			wg.Add(1)
			go func(adapter tools.Adapter) {
				defer wg.Done()
				dataset, err := adapter.Fetch(fanCtx, resolved.Target, resolved.TimeRange)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					return
				}
				bundle.Add(dataset)
			}(adapter)
		}
		wg.Wait()
		return firstErr
	})
	if err != nil {
		return nil, mapStageError(StageCollect, err)
	}

	return bundle, nil
}

// stage times fn and records a failure metric with the mapped error code.
func (o *Orchestrator) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues(name, string(mapStageError(name, err).Code)).Inc()
		o.logger.WithError(err).Error("pipeline stage failed", map[string]interface{}{"stage": name})
	}
	return err
}

// mapStageError normalizes collaborator sentinels and raw errors into
// the structured error contract.
func mapStageError(stageName string, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	switch {
	case errors.Is(err, intent.ErrIntentAPITimeout):
		return apperrors.NewIntentAPITimeoutError()
	case errors.Is(err, intent.ErrIntentResolutionFailed):
		return apperrors.NewIntentResolutionFailedError(err)
	case errors.Is(err, toolselect.ErrToolSelectionFailed):
		return apperrors.NewToolSelectionFailedError(err)
	case errors.Is(err, tools.ErrSourceTimeout):
		return apperrors.NewSourceTimeoutError(stageName)
	case errors.Is(err, tools.ErrSourceUnavailable), errors.Is(err, tools.ErrUnknownTool):
		return apperrors.NewSourceUnavailableError(stageName, err)
	case errors.Is(err, codegen.ErrNoCodeBlock):
		return apperrors.NewSynthesisExtractionFailedError(err.Error())
	case errors.Is(err, codegen.ErrSynthesisFailed):
		return apperrors.NewSynthesisFailedError(err)
	case errors.Is(err, narrative.ErrNarrativeCompositionFailed):
		return apperrors.NewNarrativeCompositionFailedError(err)
	default:
		return apperrors.NewSourceUnavailableError(stageName, err)
	}
}
