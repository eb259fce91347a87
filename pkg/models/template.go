package models

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// TemplateEngine renders model SQL with Sprig functions and run variables
type TemplateEngine struct {
	funcMap template.FuncMap
	dag     *DependencyGraph
}

// RunContext carries the per-run variables exposed to templates
type RunContext struct {
	ID        string
	StartedAt time.Time
}

// NewTemplateEngine creates a new template engine for rendering models
func NewTemplateEngine(dag *DependencyGraph) *TemplateEngine {
	return &TemplateEngine{
		funcMap: sprig.TxtFuncMap(),
		dag:     dag,
	}
}

// Render renders a model's SQL template with its variables
func (t *TemplateEngine) Render(model Model, run RunContext) (string, error) {
	variables := t.buildVariables(model, run)

	tmpl, err := template.New("model").Funcs(t.funcMap).Parse(model.GetValue())
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// RenderSchema renders an aggregate model's target schema DDL
func (t *TemplateEngine) RenderSchema(model Model, run RunContext) (string, error) {
	config := model.GetConfig()
	if config.Schema == "" {
		return "", nil
	}

	tmpl, err := template.New("schema").Funcs(t.funcMap).Parse(config.Schema)
	if err != nil {
		return "", fmt.Errorf("failed to parse schema template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.buildVariables(model, run)); err != nil {
		return "", fmt.Errorf("failed to execute schema template: %w", err)
	}

	return buf.String(), nil
}

func (t *TemplateEngine) buildVariables(model Model, run RunContext) map[string]interface{} {
	config := model.GetConfig()

	variables := map[string]interface{}{
		"self": map[string]interface{}{
			"database": config.Database,
			"table":    config.Table,
			"stage":    string(config.Stage),
		},
		"run": map[string]interface{}{
			"id":    run.ID,
			"start": run.StartedAt.Unix(),
		},
	}

	variables["dep"] = t.buildDependencyVariables(config)

	return variables
}

// buildDependencyVariables exposes each dependency as .dep.<database>.<table>
func (t *TemplateEngine) buildDependencyVariables(config *Config) map[string]interface{} {
	deps := map[string]interface{}{}

	for _, depID := range config.Dependencies {
		parts := strings.Split(depID, ".")
		if len(parts) != 2 {
			continue
		}

		database, table := parts[0], parts[1]

		db := map[string]interface{}{}
		if existing, ok := deps[database].(map[string]interface{}); ok {
			db = existing
		}

		db[table] = map[string]interface{}{
			"database": database,
			"table":    table,
			"id":       depID,
		}
		deps[database] = db
	}

	return deps
}
