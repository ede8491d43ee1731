// filepath: internal/seed/dataset.go
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"backoffice/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Dataset is an ordered list of stages.
type Dataset struct {
	Stages []Stage `yaml:"stages"`
}

// Stage seeds one table.
type Stage struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`
	// Key lists the natural key columns, after references are resolved.
	Key  []string       `yaml:"key"`
	Refs map[string]Ref `yaml:"refs"`
	// Hash maps a plaintext field to the column receiving its bcrypt hash.
	Hash map[string]string `yaml:"hash"`
	// Always runs the stage even when its table already has rows.
	Always bool             `yaml:"always"`
	Rows   []map[string]any `yaml:"rows"`
}

// Ref points a column at an upstream table. The row holds the upstream
// natural key, which is replaced by the upstream id.
type Ref struct {
	Table    string `yaml:"table"`
	Key      string `yaml:"key"`
	Optional bool   `yaml:"optional"`
}

// DemoDataset returns the built-in demonstration records.
func DemoDataset() (*Dataset, error) {
	return ParseDataset(demoYAML)
}

// LoadDataset reads a dataset file in the same format as the built-in one.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes and checks a YAML dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (ds *Dataset) validate() error {
	for i, st := range ds.Stages {
		if st.Name == "" {
			ds.Stages[i].Name = st.Table
		}
		if _, err := repository.QuoteIdent(st.Table); err != nil {
			return fmt.Errorf("stage %d: table: %w", i, err)
		}
		if len(st.Key) == 0 {
			return fmt.Errorf("stage %s: no natural key", st.Table)
		}
		for _, col := range st.Key {
			if _, err := repository.QuoteIdent(col); err != nil {
				return fmt.Errorf("stage %s: key: %w", st.Table, err)
			}
		}
		for col, ref := range st.Refs {
			if _, err := repository.QuoteIdent(col); err != nil {
				return fmt.Errorf("stage %s: ref: %w", st.Table, err)
			}
			if _, err := repository.QuoteIdent(ref.Table); err != nil {
				return fmt.Errorf("stage %s: ref %s: %w", st.Table, col, err)
			}
			if _, err := repository.QuoteIdent(ref.Key); err != nil {
				return fmt.Errorf("stage %s: ref %s: %w", st.Table, col, err)
			}
		}
		for j, row := range st.Rows {
			for col := range row {
				if _, ok := st.Hash[col]; ok {
					continue
				}
				if _, err := repository.QuoteIdent(col); err != nil {
					return fmt.Errorf("stage %s row %d: %w", st.Table, j, err)
				}
			}
		}
	}
	return nil
}
