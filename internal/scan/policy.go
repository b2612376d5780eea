package scan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is an optional repo-level scan policy file (askrepo-scan.yaml).
// Its patterns and keywords are merged into the per-run options so teams
// can pin defaults without passing flags.
type Policy struct {
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	RiskKeywords []string `yaml:"riskKeywords"`
}

// LoadPolicy reads a policy file. A missing file returns an empty policy,
// not an error.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Policy{}, nil
		}
		return nil, fmt.Errorf("read scan policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse scan policy: %w", err)
	}
	return &p, nil
}

// Apply merges the policy into opts. Explicit option values win; policy
// entries are appended.
func (p *Policy) Apply(opts Options) Options {
	opts.Include = append(opts.Include, p.Include...)
	opts.Exclude = append(opts.Exclude, p.Exclude...)
	opts.ExtraRiskKeywords = append(opts.ExtraRiskKeywords, p.RiskKeywords...)
	return opts
}
