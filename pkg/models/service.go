package models

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateModel is returned when two model files share an ID
	ErrDuplicateModel = errors.New("duplicate model ID")
	// ErrModelValidation is returned when one or more models fail validation
	ErrModelValidation = errors.New("model validation failed")
)

// ServiceConfig configures model discovery
type ServiceConfig struct {
	Paths []string `yaml:"paths"`
}

// Validate checks if the configuration is valid
func (c *ServiceConfig) Validate() error {
	return nil
}

// SetDefaults sets default values for the configuration
func (c *ServiceConfig) SetDefaults() {
	if len(c.Paths) == 0 {
		c.Paths = []string{"./models"}
	}
}

// Service loads models from disk and exposes the dependency graph
type Service struct {
	log    logrus.FieldLogger
	config *ServiceConfig
	dag    *DependencyGraph
	engine *TemplateEngine
}

// NewService creates a new models service
func NewService(log logrus.FieldLogger, config *ServiceConfig) *Service {
	config.SetDefaults()

	dag := NewDependencyGraph()

	return &Service{
		log:    log.WithField("service", "models"),
		config: config,
		dag:    dag,
		engine: NewTemplateEngine(dag),
	}
}

// Load discovers, parses and validates all models, then builds the DAG
func (s *Service) Load() error {
	files, err := NewDiscovery(s.config.Paths).DiscoverAll()
	if err != nil {
		return fmt.Errorf("failed to discover models: %w", err)
	}

	seen := make(map[string]string)
	modelList := make([]Model, 0, len(files))

	for _, file := range files {
		content, readErr := os.ReadFile(file.FilePath) //nolint:gosec // Model paths come from local config
		if readErr != nil {
			return fmt.Errorf("failed to read model %s: %w", file.FilePath, readErr)
		}

		model, parseErr := NewModel(content, file.FilePath)
		if parseErr != nil {
			return fmt.Errorf("failed to parse model %s: %w", file.FilePath, parseErr)
		}

		if validateErr := validateModel(model); validateErr != nil {
			return fmt.Errorf("%w: %s: %v", ErrModelValidation, file.FilePath, validateErr)
		}

		if existing, dup := seen[model.GetID()]; dup {
			return fmt.Errorf("%w: %s defined in %s and %s", ErrDuplicateModel, model.GetID(), existing, file.FilePath)
		}
		seen[model.GetID()] = file.FilePath

		modelList = append(modelList, model)

		s.log.WithFields(logrus.Fields{
			"model": model.GetID(),
			"kind":  model.GetKind(),
			"stage": model.GetConfig().Stage,
		}).Debug("Loaded model")
	}

	if err := s.dag.BuildGraph(modelList); err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	s.log.WithField("models", len(modelList)).Info("Loaded models")

	return nil
}

// DAG returns the dependency graph
func (s *Service) DAG() *DependencyGraph {
	return s.dag
}

// Engine returns the template engine
func (s *Service) Engine() *TemplateEngine {
	return s.engine
}

// ModelsForStages returns models for the selected stages in execution order.
// An empty selection returns all models.
func (s *Service) ModelsForStages(stages []Stage) []Model {
	ordered := s.dag.ExecutionOrder()
	if len(stages) == 0 {
		return ordered
	}

	selected := make(map[Stage]bool, len(stages))
	for _, stage := range stages {
		selected[stage] = true
	}

	filtered := make([]Model, 0, len(ordered))
	for _, model := range ordered {
		if selected[model.GetConfig().Stage] {
			filtered = append(filtered, model)
		}
	}

	return filtered
}

// SortedModels returns all models sorted by ID, for stable listings
func (s *Service) SortedModels() []Model {
	modelList := s.dag.GetModels()

	sort.Slice(modelList, func(i, j int) bool {
		return modelList[i].GetID() < modelList[j].GetID()
	})

	return modelList
}

func validateModel(model Model) error {
	switch m := model.(type) {
	case *SQLModel:
		return m.Validate()
	case *AggregateModel:
		return m.Validate()
	default:
		return model.GetConfig().Validate()
	}
}
