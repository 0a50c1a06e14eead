package seeds

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of seed list files
type Loader struct {
	seedsDir string
}

// NewLoader creates a new seed list loader
func NewLoader(seedsDir string) *Loader {
	return &Loader{seedsDir: seedsDir}
}

// LoadAll loads all YAML seed lists from the seeds directory, keyed by
// list name
func (l *Loader) LoadAll() (map[string]*SeedList, error) {
	lists := make(map[string]*SeedList)

	if _, err := os.Stat(l.seedsDir); os.IsNotExist(err) {
		return lists, nil
	}

	files, err := filepath.Glob(filepath.Join(l.seedsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.seedsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		list, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(list); err != nil {
			return nil, fmt.Errorf("invalid seed list %s: %w", file, err)
		}

		if _, exists := lists[list.Name]; exists {
			return nil, fmt.Errorf("duplicate seed list name %q in %s", list.Name, file)
		}

		lists[list.Name] = list
		slog.Debug("Loaded seed list", "name", list.Name, "keywords", len(list.Keywords), "file", file)
	}

	return lists, nil
}

// loadFile loads a single YAML seed list file
func (l *Loader) loadFile(path string) (*SeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var list SeedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&list, path)

	return &list, nil
}

// setDefaults applies default values to a seed list
func (l *Loader) setDefaults(list *SeedList, path string) {
	if list.Name == "" {
		base := filepath.Base(path)
		list.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if list.Settings.Timeframe == "" {
		list.Settings.Timeframe = "today 12-m"
	}
	if list.Settings.RefreshInterval == 0 {
		list.Settings.RefreshInterval = 21600 // seconds
	}
}

// validate validates a seed list
func (l *Loader) validate(list *SeedList) error {
	if len(list.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}
	for i, kw := range list.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("blank keyword at index %d", i)
		}
	}
	if list.Settings.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}
	return nil
}
