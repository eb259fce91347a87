package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/observability"
	"github.com/steelworks/forge/pkg/warehouse"
)

// Validator runs the declarative per-model tests against the warehouse
type Validator struct {
	log    logrus.FieldLogger
	client warehouse.ClientInterface
	models *models.Service
	config *Config
}

// NewValidator creates a new quality validator
func NewValidator(log logrus.FieldLogger, client warehouse.ClientInterface, modelsService *models.Service, config *Config) *Validator {
	config.SetDefaults()

	return &Validator{
		log:    log.WithField("service", "quality"),
		client: client,
		models: modelsService,
		config: config,
	}
}

// RunModelTests executes every column test declared in the model files.
// A failing test reports the number of offending rows; a query error is
// reported as status error, not a failure count.
func (v *Validator) RunModelTests(ctx context.Context) []CheckResult {
	var results []CheckResult

	for _, model := range v.models.SortedModels() {
		config := model.GetConfig()

		for _, column := range config.Columns {
			for _, test := range column.Tests {
				result := v.runTest(ctx, model.GetID(), column.Name, test)
				results = append(results, result)

				observability.QualityChecksTotal.WithLabelValues(result.Name, result.Status).Inc()
			}
		}
	}

	return results
}

func (v *Validator) runTest(ctx context.Context, modelID, column string, test models.TestSpec) CheckResult {
	result := CheckResult{
		Name:   fmt.Sprintf("%s_%s_%s", test.Type, modelID, column),
		Model:  modelID,
		Column: column,
	}

	query, err := compileTest(modelID, column, test)
	if err != nil {
		result.Status = StatusError
		result.Detail = err.Error()
		return result
	}

	var row struct {
		Failures uint64 `json:"failures,string"`
	}

	if err := v.client.QueryOne(ctx, query, &row); err != nil {
		result.Status = StatusError
		result.Detail = err.Error()

		v.log.WithError(err).WithField("check", result.Name).Error("Quality test errored")

		return result
	}

	result.Failures = row.Failures

	if row.Failures > 0 {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("%d failing rows", row.Failures)
	} else {
		result.Status = StatusPassed
	}

	return result
}

// compileTest turns a declarative test into a warehouse query returning the
// number of failing rows.
func compileTest(modelID, column string, test models.TestSpec) (string, error) {
	switch test.Type {
	case models.TestNotNull:
		return fmt.Sprintf(
			"SELECT count() AS failures FROM %s WHERE %s IS NULL",
			modelID, column,
		), nil
	case models.TestUnique:
		return fmt.Sprintf(
			"SELECT count() AS failures FROM (SELECT %s FROM %s GROUP BY %s HAVING count() > 1)",
			column, modelID, column,
		), nil
	case models.TestAcceptedValues:
		quoted := make([]string, 0, len(test.Values))
		for _, value := range test.Values {
			quoted = append(quoted, fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", "\\'")))
		}

		return fmt.Sprintf(
			"SELECT count() AS failures FROM %s WHERE %s NOT IN (%s)",
			modelID, column, strings.Join(quoted, ", "),
		), nil
	case models.TestRelationship:
		return fmt.Sprintf(
			"SELECT count() AS failures FROM %s WHERE %s IS NOT NULL AND %s NOT IN (SELECT %s FROM %s)",
			modelID, column, column, test.Field, test.To,
		), nil
	default:
		return "", fmt.Errorf("%w: %s", models.ErrUnknownTestType, test.Type)
	}
}
