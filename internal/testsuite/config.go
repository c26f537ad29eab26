package testsuite

import "fmt"

// ConfigurationError is returned when a configuration value has the wrong
// type, e.g. a list under `prompt` or a string under a temperature key.
type ConfigurationError struct {
	File  string
	Key   string
	Want  string
	Value any
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration in %s: %s must be a %s, got %T", e.File, e.Key, e.Want, e.Value)
}

// ConfigFromMap builds a Config from a merged configuration mapping.
// Unknown keys are ignored so config files can carry reusable blocks for
// anchor definitions alongside the recognized settings. Missing or null
// values leave the zero value in place.
func ConfigFromMap(m map[string]any, file string) (Config, error) {
	var cfg Config
	var err error

	if cfg.Prompt, err = stringValue(m, "prompt", file); err != nil {
		return Config{}, err
	}
	if cfg.GenerationModel, err = stringValue(m, "generation_model", file); err != nil {
		return Config{}, err
	}
	if cfg.EvaluationModel, err = stringValue(m, "evaluation_model", file); err != nil {
		return Config{}, err
	}
	if cfg.GenerationTemperature, err = floatValue(m, "generation_temperature", file); err != nil {
		return Config{}, err
	}
	if cfg.EvaluationTemperature, err = floatValue(m, "evaluation_temperature", file); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stringValue(m map[string]any, key, file string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigurationError{File: file, Key: key, Want: "string", Value: v}
	}
	return s, nil
}

func floatValue(m map[string]any, key, file string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, &ConfigurationError{File: file, Key: key, Want: "number", Value: v}
}
