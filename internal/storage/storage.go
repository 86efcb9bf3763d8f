// Package storage persists workflows and runs as JSON files on the
// local filesystem.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

// ErrNotFound is returned when a workflow or run does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Store is a JSON file store. Writes go through a temp file and an
// atomic rename; a mutex serialises writers.
type Store struct {
	mu           sync.Mutex
	workflowsDir string
	runsDir      string
}

// New creates the store directories under baseDir.
func New(baseDir string) (*Store, error) {
	s := &Store{
		workflowsDir: filepath.Join(baseDir, "workflows"),
		runsDir:      filepath.Join(baseDir, "runs"),
	}
	for _, dir := range []string{s.workflowsDir, s.runsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) atomicWrite(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveWorkflow persists a workflow under its id.
func (s *Store) SaveWorkflow(wf *model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atomicWrite(filepath.Join(s.workflowsDir, wf.ID+".json"), wf)
}

// LoadWorkflow reads a workflow by id.
func (s *Store) LoadWorkflow(workflowID string) (*model.Workflow, error) {
	var wf model.Workflow
	if err := readJSON(filepath.Join(s.workflowsDir, workflowID+".json"), &wf); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("workflow %q: %w", workflowID, ErrNotFound)
		}
		return nil, err
	}
	return &wf, nil
}

// ListWorkflows returns all workflows sorted by filename.
func (s *Store) ListWorkflows() ([]*model.Workflow, error) {
	paths, err := sortedJSONFiles(s.workflowsDir)
	if err != nil {
		return nil, err
	}
	workflows := make([]*model.Workflow, 0, len(paths))
	for _, path := range paths {
		var wf model.Workflow
		if err := readJSON(path, &wf); err != nil {
			return nil, err
		}
		workflows = append(workflows, &wf)
	}
	return workflows, nil
}

// SaveRun persists a run under its id.
func (s *Store) SaveRun(run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atomicWrite(filepath.Join(s.runsDir, run.ID+".json"), run)
}

// LoadRun reads a run by id.
func (s *Store) LoadRun(runID string) (*model.Run, error) {
	var run model.Run
	if err := readJSON(filepath.Join(s.runsDir, runID+".json"), &run); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, optionally filtered by workflow id,
// sorted by filename.
func (s *Store) ListRuns(workflowID string) ([]*model.Run, error) {
	paths, err := sortedJSONFiles(s.runsDir)
	if err != nil {
		return nil, err
	}
	runs := make([]*model.Run, 0, len(paths))
	for _, path := range paths {
		var run model.Run
		if err := readJSON(path, &run); err != nil {
			return nil, err
		}
		if workflowID == "" || run.WorkflowID == workflowID {
			runs = append(runs, &run)
		}
	}
	return runs, nil
}

func sortedJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
