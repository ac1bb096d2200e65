package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/your-org/ai3/pkg/types"
)

var ErrCatalogEmpty = errors.New("model catalog: models list is empty")

// ModelCatalog is the declarative model-catalog file the Capability
// Registry loads, grounded on the teacher's manifest-loading pattern
// (config.LoadManifest/ValidateManifest) adapted from a pipeline manifest
// to a model catalog. Overrides supplements original_source's routing
// override table as first-class config (SPEC_FULL.md SUPPLEMENTED
// FEATURES).
type ModelCatalog struct {
	Models    []types.ModelDescriptor  `yaml:"models"`
	Overrides map[types.TaskKind]string `yaml:"overrides"`
}

// LoadModelCatalog parses and validates a YAML model catalog file.
func LoadModelCatalog(path string) (ModelCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ModelCatalog{}, fmt.Errorf("model catalog: read %q: %w", path, err)
	}

	var c ModelCatalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return ModelCatalog{}, fmt.Errorf("model catalog: unmarshal %q: %w", path, err)
	}
	if err := ValidateModelCatalog(c); err != nil {
		return ModelCatalog{}, err
	}
	return c, nil
}

// ValidateModelCatalog enforces structural correctness before runtime.
func ValidateModelCatalog(c ModelCatalog) error {
	if len(c.Models) == 0 {
		return ErrCatalogEmpty
	}

	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if m.ModelID == "" {
			return errors.New("model catalog: model has empty model_id")
		}
		if _, exists := seen[m.ModelID]; exists {
			return fmt.Errorf("model catalog: duplicate model_id %q", m.ModelID)
		}
		seen[m.ModelID] = struct{}{}
		if m.ProviderID == "" {
			return fmt.Errorf("model catalog: model %q has empty provider_id", m.ModelID)
		}
		if m.ContextWindow <= 0 {
			return fmt.Errorf("model catalog: model %q has non-positive context_window", m.ModelID)
		}
	}

	for kind, modelID := range c.Overrides {
		if _, ok := seen[modelID]; !ok {
			return fmt.Errorf("model catalog: override for kind %q points at unknown model %q", kind, modelID)
		}
	}
	return nil
}
