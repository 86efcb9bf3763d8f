package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

// LoadFile reads a single tool definition from a YAML file. The file
// is decoded into a generic map first and then mapped onto the
// definition with weak typing; unknown keys are ignored.
func LoadFile(path string) (*model.ToolDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool file %s: %w", path, err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse tool file %s: %w", path, err)
	}
	tool, err := decodeTool(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tool file %s: %w", path, err)
	}
	return tool, nil
}

func decodeTool(data map[string]any) (*model.ToolDefinition, error) {
	var tool model.ToolDefinition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Result:           &tool,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, err
	}
	return &tool, nil
}

// LoadDirectory registers every *.yaml and *.yml file in dir. Files
// load in sorted order so later definitions deterministically win on
// duplicate ids.
func (r *Registry) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read tools directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	for _, file := range files {
		tool, err := LoadFile(file)
		if err != nil {
			return err
		}
		if err := r.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool from %s: %w", file, err)
		}
	}
	return nil
}
