package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/trustflow/internal/ledger"
)

// Default for SequenceProbability when a profile document omits it.
const defaultSequenceProbability = 0.5

// Wire formats. Probability and cooldown are pointers so a missing field is
// distinguishable from an explicit zero — missing is a configuration error
// on declared actions.
type actionDoc struct {
	Probability   *float64       `yaml:"probability"`
	Cooldown      *uint64        `yaml:"cooldown"`
	MaxExecutions int            `yaml:"max_executions"`
	Constraints   map[string]any `yaml:"constraints"`
}

type stepDoc struct {
	Action      string         `yaml:"action"`
	Repeat      int            `yaml:"repeat"`
	Cooldown    uint64         `yaml:"cooldown"`
	Constraints map[string]any `yaml:"constraints"`
}

type sequenceDoc struct {
	Name          string    `yaml:"name"`
	Steps         []stepDoc `yaml:"steps"`
	MaxExecutions int       `yaml:"max_executions"`
}

type profileDoc struct {
	Name                  string               `yaml:"name"`
	Description           string               `yaml:"description"`
	TargetAccountCount    *int                 `yaml:"target_account_count"`
	SequenceProbability   *float64             `yaml:"sequence_probability"`
	MaxSequenceIterations int                  `yaml:"max_sequence_iterations_per_address"`
	Actions               map[string]actionDoc `yaml:"actions"`
	Sequences             []sequenceDoc        `yaml:"sequences"`
	PresetAddresses       []string             `yaml:"preset_addresses"`
}

// Parse builds a finalized profile from a YAML document.
func Parse(data []byte) (*Profile, error) {
	var doc profileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Field: "yaml", Reason: err.Error()}
	}

	p := Profile{
		Name:                  doc.Name,
		Description:           doc.Description,
		TargetAccountCount:    1,
		SequenceProbability:   defaultSequenceProbability,
		MaxSequenceIterations: doc.MaxSequenceIterations,
		Actions:               make(map[string]*ActionSpec, len(doc.Actions)),
	}
	if doc.TargetAccountCount != nil {
		p.TargetAccountCount = *doc.TargetAccountCount
	}
	if doc.SequenceProbability != nil {
		p.SequenceProbability = *doc.SequenceProbability
	}

	for name, a := range doc.Actions {
		if a.Probability == nil {
			return nil, &ConfigError{Profile: doc.Name, Field: "actions." + name + ".probability", Reason: "missing"}
		}
		if a.Cooldown == nil {
			return nil, &ConfigError{Profile: doc.Name, Field: "actions." + name + ".cooldown", Reason: "missing"}
		}
		p.Actions[name] = &ActionSpec{
			Name:          name,
			Probability:   *a.Probability,
			Cooldown:      *a.Cooldown,
			MaxExecutions: a.MaxExecutions,
			Constraints:   a.Constraints,
		}
	}

	for _, s := range doc.Sequences {
		seq := &Sequence{Name: s.Name, MaxExecutions: s.MaxExecutions}
		for _, st := range s.Steps {
			seq.Steps = append(seq.Steps, SequenceStep{
				Action:      st.Action,
				Repeat:      st.Repeat,
				Cooldown:    st.Cooldown,
				Constraints: st.Constraints,
			})
		}
		p.Sequences = append(p.Sequences, seq)
	}

	for _, addr := range doc.PresetAddresses {
		p.PresetAddresses = append(p.PresetAddresses, ledger.Address(addr))
	}

	return New(p)
}

// LoadFile reads and finalizes one profile document.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// LoadDir loads every .yaml/.yml profile in a directory, keyed by name.
func LoadDir(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	profiles := make(map[string]*Profile, len(names))
	for _, name := range names {
		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, &ConfigError{Profile: p.Name, Field: "name", Reason: "duplicate profile name"}
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}
