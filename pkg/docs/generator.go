// Package docs renders markdown documentation for the discovered models
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/models"
)

// Generator writes one markdown page per model plus an index
type Generator struct {
	log    logrus.FieldLogger
	models *models.Service
}

// NewGenerator creates a new docs generator
func NewGenerator(log logrus.FieldLogger, modelsService *models.Service) *Generator {
	return &Generator{
		log:    log.WithField("service", "docs"),
		models: modelsService,
	}
}

// Generate writes the documentation tree under dir and returns the paths of
// the written files.
func (g *Generator) Generate(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create docs directory: %w", err)
	}

	modelList := g.models.SortedModels()
	written := make([]string, 0, len(modelList)+1)

	for _, model := range modelList {
		path := filepath.Join(dir, fileName(model.GetID()))

		if err := os.WriteFile(path, []byte(g.renderModel(model)), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write docs for %s: %w", model.GetID(), err)
		}

		written = append(written, path)
	}

	indexPath := filepath.Join(dir, "README.md")
	if err := os.WriteFile(indexPath, []byte(g.renderIndex(modelList)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write docs index: %w", err)
	}

	written = append(written, indexPath)

	g.log.WithFields(logrus.Fields{
		"models": len(modelList),
		"dir":    dir,
	}).Info("Generated model documentation")

	return written, nil
}

func (g *Generator) renderIndex(modelList []models.Model) string {
	var sb strings.Builder

	sb.WriteString("# Models\n\n")
	sb.WriteString("| Model | Stage | Materialization | Description |\n")
	sb.WriteString("|---|---|---|---|\n")

	for _, model := range modelList {
		config := model.GetConfig()
		fmt.Fprintf(&sb, "| [%s](%s) | %s | %s | %s |\n",
			model.GetID(), fileName(model.GetID()),
			config.Stage, config.Materialization, config.Description)
	}

	return sb.String()
}

func (g *Generator) renderModel(model models.Model) string {
	config := model.GetConfig()
	dag := g.models.DAG()

	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", model.GetID())

	if config.Description != "" {
		sb.WriteString(config.Description)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "- **Stage**: %s\n", config.Stage)
	fmt.Fprintf(&sb, "- **Materialization**: %s\n", config.Materialization)

	if config.Aggregator != "" {
		fmt.Fprintf(&sb, "- **Aggregator**: %s\n", config.Aggregator)
	}

	if len(config.Tags) > 0 {
		fmt.Fprintf(&sb, "- **Tags**: %s\n", strings.Join(config.Tags, ", "))
	}

	sb.WriteString("\n")

	writeRelations(&sb, "Depends on", dag.GetDependencies(model.GetID()), dag)
	writeRelations(&sb, "Used by", dag.GetDependents(model.GetID()), dag)

	if len(config.Columns) > 0 {
		sb.WriteString("## Columns\n\n")
		sb.WriteString("| Column | Description | Tests |\n")
		sb.WriteString("|---|---|---|\n")

		for _, column := range config.Columns {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n",
				column.Name, column.Description, testNames(column.Tests))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func writeRelations(sb *strings.Builder, title string, ids []string, dag *models.DependencyGraph) {
	if len(ids) == 0 {
		return
	}

	fmt.Fprintf(sb, "## %s\n\n", title)

	for _, id := range ids {
		if dag.IsExternal(id) {
			fmt.Fprintf(sb, "- %s (source)\n", id)
		} else {
			fmt.Fprintf(sb, "- [%s](%s)\n", id, fileName(id))
		}
	}

	sb.WriteString("\n")
}

func testNames(tests []models.TestSpec) string {
	if len(tests) == 0 {
		return ""
	}

	names := make([]string, 0, len(tests))
	for _, test := range tests {
		names = append(names, test.Type)
	}

	return strings.Join(names, ", ")
}

func fileName(modelID string) string {
	return strings.ReplaceAll(modelID, ".", "_") + ".md"
}
