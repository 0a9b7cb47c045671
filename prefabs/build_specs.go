package prefabs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeOverrides decodes raw on top of base and returns the result. Keys T
// does not know are ignored; base itself is never modified.
func DecodeOverrides[T any](base T, raw any) (T, error) {
	if raw == nil {
		return base, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return base, fmt.Errorf("prefabs: encode overrides: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(b, &out); err != nil {
		return base, fmt.Errorf("prefabs: apply overrides: %w", err)
	}
	return out, nil
}

// ApplyOverrides decodes level entity props on top of spec, so a level can
// retune one agent without a separate spec file. spec is left as it was when
// the result does not validate.
func ApplyOverrides(spec *AgentSpec, props map[string]any) error {
	if spec == nil || len(props) == 0 {
		return nil
	}
	out, err := DecodeOverrides(*spec, props)
	if err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*spec = out
	return nil
}
