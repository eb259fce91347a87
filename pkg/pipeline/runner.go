package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/observability"
	"github.com/steelworks/forge/pkg/warehouse"
)

// RunOptions selects which models a run executes
type RunOptions struct {
	// Stages restricts the run to the named stages; empty means all
	Stages []models.Stage
	// Models restricts the run to specific model IDs; empty means all
	Models []string
}

// ModelResult is the outcome of one model execution
type ModelResult struct {
	ModelID  string        `json:"model_id"`
	Stage    string        `json:"stage"`
	Rows     uint64        `json:"rows"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
}

// RunResult is the outcome of one pipeline run
type RunResult struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Status      string        `json:"status"`
	Models      []ModelResult `json:"models"`
}

// Runner executes pipeline runs: models in dependency order, strictly
// sequential, halting at the first failure. There is no retry; the operator
// re-runs after fixing the upstream cause.
type Runner struct {
	log      logrus.FieldLogger
	client   warehouse.ClientInterface
	models   *models.Service
	admin    *admin.Service
	executor *Executor
}

// NewRunner creates a new pipeline runner
func NewRunner(log logrus.FieldLogger, client warehouse.ClientInterface, modelsService *models.Service, adminService *admin.Service) *Runner {
	return &Runner{
		log:      log.WithField("service", "pipeline"),
		client:   client,
		models:   modelsService,
		admin:    adminService,
		executor: NewExecutor(log, client, modelsService.Engine()),
	}
}

// Run executes the selected models in dependency order and returns the run
// result. A model failure stops the chain; already-executed models keep
// their refreshed state.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Status:    "success",
	}

	run := models.RunContext{ID: result.RunID, StartedAt: result.StartedAt}

	if err := r.admin.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare run log: %w", err)
	}

	selected := r.selectModels(opts)

	r.log.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"models": len(selected),
	}).Info("Starting pipeline run")

	var runErr error

	for _, model := range selected {
		modelResult := r.runModel(ctx, model, run)
		result.Models = append(result.Models, modelResult)

		if modelResult.Status == "failed" {
			runErr = fmt.Errorf("model %s failed: %s", modelResult.ModelID, modelResult.Error)
			result.Status = "failed"
			break
		}
	}

	result.CompletedAt = time.Now()

	observability.PipelineRunsTotal.WithLabelValues(result.Status).Inc()
	observability.LastRunTimestamp.WithLabelValues(result.Status).Set(float64(result.CompletedAt.Unix()))

	r.log.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"status":   result.Status,
		"duration": result.CompletedAt.Sub(result.StartedAt),
	}).Info("Pipeline run finished")

	return result, runErr
}

func (r *Runner) selectModels(opts RunOptions) []models.Model {
	selected := r.models.ModelsForStages(opts.Stages)

	if len(opts.Models) == 0 {
		return selected
	}

	wanted := make(map[string]bool, len(opts.Models))
	for _, id := range opts.Models {
		wanted[id] = true
	}

	filtered := make([]models.Model, 0, len(selected))
	for _, model := range selected {
		if wanted[model.GetID()] {
			filtered = append(filtered, model)
		}
	}

	return filtered
}

func (r *Runner) runModel(ctx context.Context, model models.Model, run models.RunContext) ModelResult {
	config := model.GetConfig()
	started := time.Now()

	rows, err := r.executor.Execute(ctx, model, run)
	completed := time.Now()

	modelResult := ModelResult{
		ModelID:  model.GetID(),
		Stage:    string(config.Stage),
		Rows:     rows,
		Duration: completed.Sub(started),
		Status:   "success",
	}

	if err != nil {
		modelResult.Status = "failed"
		modelResult.Error = err.Error()

		r.log.WithError(err).WithField("model", model.GetID()).Error("Model execution failed")
		observability.ErrorsTotal.WithLabelValues("pipeline", "model_execution").Inc()
	} else {
		observability.RowsWritten.WithLabelValues(model.GetID()).Add(float64(rows))
	}

	observability.ModelRunsTotal.WithLabelValues(model.GetID(), string(config.Stage), modelResult.Status).Inc()
	observability.ModelDuration.WithLabelValues(model.GetID(), string(config.Stage)).Observe(modelResult.Duration.Seconds())

	record := admin.NewRecord(run.ID, model.GetID(), string(config.Stage), rows, started, completed, modelResult.Status)
	if recordErr := r.admin.RecordCompletion(ctx, record); recordErr != nil {
		r.log.WithError(recordErr).WithField("model", model.GetID()).Error("Failed to record completion")
	}

	return modelResult
}
