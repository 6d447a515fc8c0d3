package testplan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML test plan file, unmarshals it, and validates it.
// Mirrors internal/performance/v2/config.LoadConfig's load-then-validate
// shape, generalized from TestConfig to TestPlan.
func Load(path string) (*TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test plan: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates YAML bytes into a TestPlan.
func Parse(data []byte) (*TestPlan, error) {
	var plan TestPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse test plan: %w", err)
	}
	applyDefaults(&plan)
	if err := Validate(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// applyDefaults fills in the auto-assigned step names spec.md leaves
// implicit. Scenario weight and loop are left as loaded;
// WeightOrDefault and LoopOrDefault apply their defaults when read.
func applyDefaults(plan *TestPlan) {
	for si := range plan.Scenarios {
		sc := &plan.Scenarios[si]
		for i := range sc.Steps {
			if sc.Steps[i].Name == "" {
				sc.Steps[i].Name = fmt.Sprintf("%s_step_%d", sc.Name, i+1)
			}
		}
	}
}
