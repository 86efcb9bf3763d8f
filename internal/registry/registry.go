// Package registry holds the set of tool definitions available to
// workflows.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

// Registry is a read-mostly collection of tool definitions. Loading
// happens at startup; runs only read, so lookups take a shared lock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*model.ToolDefinition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*model.ToolDefinition)}
}

// Register validates and adds a tool, replacing any existing tool
// with the same id.
func (r *Registry) Register(tool *model.ToolDefinition) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.ID] = tool
	return nil
}

// Get returns the tool with the given id.
func (r *Registry) Get(toolID string) (*model.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[toolID]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", toolID)
	}
	return tool, nil
}

// List returns all tools sorted by id.
func (r *Registry) List() []*model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*model.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

// ToolMap returns a snapshot map of the registered tools, suitable
// for handing to a run. The map must not be mutated while runs are in
// flight.
func (r *Registry) ToolMap() map[string]*model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make(map[string]*model.ToolDefinition, len(r.tools))
	for id, tool := range r.tools {
		tools[id] = tool
	}
	return tools
}

// Context renders a one-line-per-tool summary for display.
func (r *Registry) Context() string {
	var lines []string
	for _, tool := range r.List() {
		lines = append(lines, fmt.Sprintf("- %s: %s - %s", tool.ID, tool.Name, tool.Description))
	}
	return strings.Join(lines, "\n")
}
