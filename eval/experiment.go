// Package eval runs stratified k fold cross validation experiments over the
// configured model pipelines and reports per fold metrics.
package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SmoteConfig controls oversampling of the training folds.
type SmoteConfig struct {
	Enabled bool `yaml:"enabled"`
	K       int  `yaml:"k"`
}

// Experiment is the top level configuration for a cross validation run,
// normally loaded from a yaml file.
type Experiment struct {
	Name    string      `yaml:"name"`
	DataSet string      `yaml:"dataset"`
	Folds   int         `yaml:"folds"`
	Seed    int64       `yaml:"seed"`
	Scale   bool        `yaml:"scale"`
	Smote   SmoteConfig `yaml:"smote"`
	OutDir  string      `yaml:"outDir"`
	Store   string      `yaml:"store"`
}

// LoadExperiment reads and validates a yaml experiment file.
func LoadExperiment(path string) (Experiment, error) {
	exp := Experiment{Folds: 5, Scale: true, Smote: SmoteConfig{Enabled: true, K: 5}}
	data, err := os.ReadFile(path)
	if err != nil {
		return exp, err
	}
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return exp, fmt.Errorf("eval: parse %s: %w", path, err)
	}
	return exp, exp.Validate()
}

// Validate checks the experiment settings are usable.
func (e Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("eval: experiment name is required")
	}
	if e.DataSet == "" {
		return fmt.Errorf("eval: dataset path is required")
	}
	if e.Folds < 2 {
		return fmt.Errorf("eval: need at least 2 folds, have %d", e.Folds)
	}
	if e.Smote.Enabled && e.Smote.K < 1 {
		return fmt.Errorf("eval: smote k must be at least 1")
	}
	return nil
}
