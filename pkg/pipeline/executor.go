package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/warehouse"
)

var (
	// ErrUnsupportedModelKind is returned for a model kind the executor cannot run
	ErrUnsupportedModelKind = errors.New("unsupported model kind")
)

// Executor runs a single model against the warehouse
type Executor struct {
	log      logrus.FieldLogger
	client   warehouse.ClientInterface
	engine   *models.TemplateEngine
	registry Registry
}

// NewExecutor creates a new model executor
func NewExecutor(log logrus.FieldLogger, client warehouse.ClientInterface, engine *models.TemplateEngine) *Executor {
	return &Executor{
		log:      log.WithField("component", "executor"),
		client:   client,
		engine:   engine,
		registry: NewRegistry(),
	}
}

// Execute runs one model and returns the number of rows written. SQL models
// report zero rows: views have no materialized row count of their own.
func (e *Executor) Execute(ctx context.Context, model models.Model, run models.RunContext) (uint64, error) {
	config := model.GetConfig()

	if err := warehouse.EnsureDatabase(ctx, e.client, config.Database); err != nil {
		return 0, err
	}

	e.log.WithFields(logrus.Fields{
		"model": model.GetID(),
		"kind":  model.GetKind(),
		"stage": config.Stage,
	}).Info("Executing model")

	switch model.GetKind() {
	case models.KindSQL:
		return 0, e.executeSQL(ctx, model, run)
	case models.KindAggregate:
		return e.executeAggregate(ctx, model, run)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedModelKind, model.GetKind())
	}
}

func (e *Executor) executeSQL(ctx context.Context, model models.Model, run models.RunContext) error {
	rendered, err := e.engine.Render(model, run)
	if err != nil {
		return fmt.Errorf("failed to render SQL template: %w", err)
	}

	statements := warehouse.SplitStatements(rendered)

	for i, stmt := range statements {
		// Log first 500 chars of SQL for visibility
		logSQL := stmt
		if len(stmt) > 500 {
			logSQL = stmt[:500] + "..."
		}

		e.log.WithFields(logrus.Fields{
			"statement_num": i + 1,
			"total":         len(statements),
			"model":         model.GetID(),
			"sql_preview":   logSQL,
		}).Debug("Executing SQL statement")

		if _, err := e.client.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	return nil
}

// executeAggregate ensures the target table exists, truncates it, and lets
// the registered aggregator rebuild it from the rendered source query.
// Full-refresh semantics: re-running with unchanged inputs replaces the
// table with identical content.
func (e *Executor) executeAggregate(ctx context.Context, model models.Model, run models.RunContext) (uint64, error) {
	config := model.GetConfig()

	aggregator, err := e.registry.Get(config.Aggregator)
	if err != nil {
		return 0, err
	}

	schema, err := e.engine.RenderSchema(model, run)
	if err != nil {
		return 0, fmt.Errorf("failed to render schema: %w", err)
	}

	for _, stmt := range warehouse.SplitStatements(schema) {
		if _, err := e.client.Execute(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to ensure target table: %w", err)
		}
	}

	sourceSQL, err := e.engine.Render(model, run)
	if err != nil {
		return 0, fmt.Errorf("failed to render source query: %w", err)
	}

	if err := warehouse.TruncateTable(ctx, e.client, config.Database, config.Table); err != nil {
		return 0, err
	}

	rows, err := aggregator.Run(ctx, e.client, sourceSQL, model.GetID())
	if err != nil {
		return 0, err
	}

	e.log.WithFields(logrus.Fields{
		"model": model.GetID(),
		"rows":  rows,
	}).Info("Aggregate model refreshed")

	return rows, nil
}
