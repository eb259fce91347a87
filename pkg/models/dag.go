package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/heimdalr/dag"
)

// DependencyGraph manages the dependency graph for models. Dependencies that
// do not resolve to a discovered model are treated as external source
// relations (for example the raw ingested table) and become leaf vertices.
type DependencyGraph struct {
	dag       *dag.DAG
	models    map[string]Model
	externals map[string]bool
	mutex     sync.RWMutex
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dag:       dag.NewDAG(),
		models:    make(map[string]Model),
		externals: make(map[string]bool),
	}
}

// BuildGraph builds the dependency graph from discovered models
func (d *DependencyGraph) BuildGraph(modelList []Model) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// Reset DAG
	d.dag = dag.NewDAG()
	d.models = make(map[string]Model)
	d.externals = make(map[string]bool)

	for _, model := range modelList {
		if model == nil {
			continue
		}

		d.models[model.GetID()] = model

		if err := d.dag.AddVertexByID(model.GetID(), model.GetID()); err != nil {
			return fmt.Errorf("failed to add vertex %s: %w", model.GetID(), err)
		}
	}

	// Add edges (dependency → dependent); unknown dependencies become
	// external source vertices
	for _, model := range modelList {
		if model == nil {
			continue
		}

		for _, depID := range model.GetConfig().Dependencies {
			if _, exists := d.models[depID]; !exists && !d.externals[depID] {
				if err := d.dag.AddVertexByID(depID, depID); err != nil {
					return fmt.Errorf("failed to add external vertex %s: %w", depID, err)
				}
				d.externals[depID] = true
			}

			// AddEdge returns error if it would create a cycle
			if err := d.dag.AddEdge(depID, model.GetID()); err != nil {
				return fmt.Errorf("invalid dependency %s → %s: %w", depID, model.GetID(), err)
			}
		}
	}

	return nil
}

// GetModel retrieves a model by its ID
func (d *DependencyGraph) GetModel(modelID string) (Model, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	model, ok := d.models[modelID]
	return model, ok
}

// GetModels returns all models in the graph
func (d *DependencyGraph) GetModels() []Model {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	modelList := make([]Model, 0, len(d.models))
	for _, model := range d.models {
		modelList = append(modelList, model)
	}

	return modelList
}

// IsExternal reports whether an ID refers to an external source relation
func (d *DependencyGraph) IsExternal(id string) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return d.externals[id]
}

// GetDependencies returns the direct dependencies of a model
func (d *DependencyGraph) GetDependencies(modelID string) []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	parents, err := d.dag.GetParents(modelID)
	if err != nil {
		return nil
	}

	dependencies := make([]string, 0, len(parents))
	for id := range parents {
		dependencies = append(dependencies, id)
	}
	sort.Strings(dependencies)

	return dependencies
}

// GetDependents returns the direct dependents of a model
func (d *DependencyGraph) GetDependents(modelID string) []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	children, err := d.dag.GetChildren(modelID)
	if err != nil {
		return nil
	}

	dependents := make([]string, 0, len(children))
	for id := range children {
		dependents = append(dependents, id)
	}
	sort.Strings(dependents)

	return dependents
}

// ExecutionOrder returns the models in topological order: every model
// appears after all of its dependencies. Ties are broken alphabetically for
// deterministic runs.
func (d *DependencyGraph) ExecutionOrder() []Model {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	levels := d.calculateLevels()

	ids := make([]string, 0, len(d.models))
	for id := range d.models {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if levels[ids[i]] != levels[ids[j]] {
			return levels[ids[i]] < levels[ids[j]]
		}
		return ids[i] < ids[j]
	})

	ordered := make([]Model, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, d.models[id])
	}

	return ordered
}

// DAGInfo contains DAG visualization information
type DAGInfo struct {
	Levels      map[int][]string
	MaxLevel    int
	RootNodes   []string
	TotalModels int
}

// GetDAGInfo returns DAG visualization information
func (d *DependencyGraph) GetDAGInfo() *DAGInfo {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	levels := d.calculateLevels()

	levelGroups := make(map[int][]string)
	maxLevel := 0
	for modelID, level := range levels {
		if level > maxLevel {
			maxLevel = level
		}
		levelGroups[level] = append(levelGroups[level], modelID)
	}

	for level := range levelGroups {
		sort.Strings(levelGroups[level])
	}

	rootNodes := []string{}
	for id := range d.externals {
		rootNodes = append(rootNodes, id)
	}
	for id, model := range d.models {
		if len(model.GetConfig().Dependencies) == 0 {
			rootNodes = append(rootNodes, id)
		}
	}
	sort.Strings(rootNodes)

	return &DAGInfo{
		Levels:      levelGroups,
		MaxLevel:    maxLevel,
		RootNodes:   rootNodes,
		TotalModels: len(d.models),
	}
}

// calculateLevels calculates the dependency depth level for each model.
// External source relations sit at level 0 alongside dependency-free models.
// Callers must hold the read lock.
func (d *DependencyGraph) calculateLevels() map[string]int {
	levels := make(map[string]int)

	for modelID := range d.models {
		levels[modelID] = 0
	}

	// Keep updating levels until stable
	changed := true
	for changed {
		changed = false
		for modelID, model := range d.models {
			currentLevel := levels[modelID]

			maxDepLevel := -1
			for _, dep := range model.GetConfig().Dependencies {
				if depLevel, exists := levels[dep]; exists && depLevel > maxDepLevel {
					maxDepLevel = depLevel
				} else if d.externals[dep] && maxDepLevel < 0 {
					maxDepLevel = 0
				}
			}

			if maxDepLevel >= 0 && maxDepLevel+1 > currentLevel {
				levels[modelID] = maxDepLevel + 1
				changed = true
			}
		}
	}

	return levels
}

// GenerateDOTFormat generates a DOT format representation of the DAG
func (d *DependencyGraph) GenerateDOTFormat() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var sb strings.Builder
	sb.WriteString("digraph models {\n")
	sb.WriteString("  rankdir=LR;\n")

	externalIDs := make([]string, 0, len(d.externals))
	for id := range d.externals {
		externalIDs = append(externalIDs, id)
	}
	sort.Strings(externalIDs)

	for _, id := range externalIDs {
		fmt.Fprintf(&sb, "  %q [shape=box, style=filled, fillcolor=lightblue];\n", id)
	}

	modelIDs := make([]string, 0, len(d.models))
	for id := range d.models {
		modelIDs = append(modelIDs, id)
	}
	sort.Strings(modelIDs)

	for _, id := range modelIDs {
		fmt.Fprintf(&sb, "  %q;\n", id)
		for _, dep := range d.models[id].GetConfig().Dependencies {
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep, id)
		}
	}

	sb.WriteString("}")
	return sb.String()
}
