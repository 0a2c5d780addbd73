package catalog

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// controlSeed is one control entry in the catalog YAML.
type controlSeed struct {
	Code              string   `yaml:"control_code"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	Keywords          []string `yaml:"keywords"`
	SeverityIfMissing string   `yaml:"severity_if_missing"`
}

// frameworkSeed groups controls under one framework name.
type frameworkSeed struct {
	Framework string        `yaml:"framework"`
	Controls  []controlSeed `yaml:"controls"`
}

var validSeverities = map[model.Severity]bool{
	model.SeverityCritical: true,
	model.SeverityHigh:     true,
	model.SeverityMedium:   true,
	model.SeverityLow:      true,
}

// LoadFile parses a catalog YAML file into controls ready for insert.
func LoadFile(path string) ([]model.Control, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var wrapper struct {
		Frameworks []frameworkSeed `yaml:"frameworks"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}

	var controls []model.Control
	seen := make(map[string]bool)
	for _, fw := range wrapper.Frameworks {
		name := strings.TrimSpace(fw.Framework)
		if name == "" {
			return nil, eris.New("catalog: framework with empty name")
		}
		for _, c := range fw.Controls {
			code := strings.TrimSpace(c.Code)
			if code == "" {
				return nil, eris.Errorf("catalog: %s: control with empty code", name)
			}
			key := name + "/" + code
			if seen[key] {
				return nil, eris.Errorf("catalog: duplicate control %s", key)
			}
			seen[key] = true
			if len(c.Keywords) == 0 {
				return nil, eris.Errorf("catalog: control %s has no keywords", key)
			}

			severity := model.Severity(c.SeverityIfMissing)
			if severity != "" && !validSeverities[severity] {
				return nil, eris.Errorf("catalog: control %s has invalid severity %q", key, c.SeverityIfMissing)
			}

			controls = append(controls, model.Control{
				Framework:         name,
				Code:              code,
				Title:             strings.TrimSpace(c.Title),
				Description:       strings.TrimSpace(c.Description),
				Keywords:          c.Keywords,
				SeverityIfMissing: severity,
			})
		}
	}
	return controls, nil
}

// Import loads a catalog file and inserts its controls into the store.
func Import(ctx context.Context, st store.Store, path string) (int, error) {
	controls, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := st.CreateControls(ctx, controls)
	if err != nil {
		return 0, eris.Wrap(err, "catalog: import controls")
	}
	zap.L().Info("catalog imported",
		zap.String("path", path),
		zap.Int("controls", n))
	return n, nil
}
