// Package file stores scenarios as one JSON (or YAML) document per name.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/harborlab/shipsim/pkg/core"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds the file store settings.
type Config struct {
	Dir    string
	Format string
}

// Store keeps scenarios under Dir as <name>.json or <name>.yaml.
type Store struct {
	dir    string
	format string
	mu     sync.Mutex
}

// New validates the format. An empty format selects JSON.
func New(cfg Config) (*Store, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: unknown scenario file format %q", core.ErrInvalidConfiguration, cfg.Format)
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir, format: format}, nil
}

// Init creates the directory.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error {
	return nil
}

// Path returns the file a scenario name maps to.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid scenario name %q", core.ErrInvalidConfiguration, name)
	}
	return filepath.Join(s.dir, name+"."+s.format), nil
}

// SaveScenario overwrites the named record. The document is written to a
// temporary file first so a failed write never truncates the old record.
func (s *Store) SaveScenario(ctx context.Context, name string, sc core.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	data, err := s.encode(sc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace scenario: %w", err)
	}
	return nil
}

// LoadScenario reads and strictly decodes the named record.
func (s *Store) LoadScenario(ctx context.Context, name string) (core.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return core.Scenario{}, err
	}
	path, err := s.Path(name)
	if err != nil {
		return core.Scenario{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Scenario{}, fmt.Errorf("%w: %s", core.ErrRecordUnavailable, name)
		}
		return core.Scenario{}, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.Scenario{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	return s.decode(data)
}

func (s *Store) encode(sc core.Scenario) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(sc)
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (s *Store) decode(data []byte) (core.Scenario, error) {
	if s.format == FormatJSON {
		return core.DecodeScenarioJSON(data)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.Scenario{}, fmt.Errorf("%w: %v", core.ErrMalformedScenario, err)
	}
	if doc == nil {
		return core.Scenario{}, fmt.Errorf("%w: empty document", core.ErrMalformedScenario)
	}
	return core.ScenarioFromMap(doc)
}
