package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/upgrade"
)

// Scenario is one simulated run with assertions on its trace and final
// state.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// RunID fixes the run ID stamped on every event. Empty uses
	// testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Steps is the number of driver steps to run.
	Steps int `yaml:"steps"`

	// Config overrides configuration fields by their CUE/JSON name.
	Config map[string]any `yaml:"config,omitempty"`

	// Pool creates an in-memory shared pool that nodes with network: true
	// connect to.
	Pool *PoolDef `yaml:"pool,omitempty"`

	Recipes    []RecipeDef `yaml:"recipes"`
	Nodes      []NodeDef   `yaml:"nodes"`
	Assertions []Assertion `yaml:"assertions"`
}

// PoolDef seeds the shared pool.
type PoolDef struct {
	// Capacity is the total item capacity; omitted is unlimited.
	Capacity *int64  `yaml:"capacity,omitempty"`
	Energy   float64 `yaml:"energy"`
}

// StackDef is a kind and a count.
type StackDef struct {
	Kind  string `yaml:"kind"`
	Count int64  `yaml:"count"`
}

// RequirementDef is one recipe input.
type RequirementDef struct {
	Accepts []string `yaml:"accepts"`
	Count   int64    `yaml:"count"`
}

// RecipeDef is one recipe repetition.
type RecipeDef struct {
	ID     string           `yaml:"id"`
	Inputs []RequirementDef `yaml:"inputs"`
	Output StackDef         `yaml:"output"`
	Energy float64          `yaml:"energy"`
	Steps  int64            `yaml:"steps"`
}

// NodeDef describes a node.
type NodeDef struct {
	ID      string `yaml:"id"`
	Machine string `yaml:"machine"`

	// Recipes restricts the node to these recipe IDs, in order. Empty
	// means every scenario recipe.
	Recipes []string `yaml:"recipes,omitempty"`

	Inputs  []StackDef `yaml:"inputs"`
	Output  StackDef   `yaml:"output,omitempty"`
	Energy  float64    `yaml:"energy"`
	Cards   []string   `yaml:"cards,omitempty"`
	Network bool       `yaml:"network,omitempty"`
}

// Assertion checks the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node limits trace assertions to one node and names the node for
	// final_state.
	Node string `yaml:"node,omitempty"`

	// Kind is the event kind for trace_contains and trace_count.
	Kind string `yaml:"kind,omitempty"`

	// Fields is a subset match against the event's canonical fields
	// (trace_contains).
	Fields map[string]any `yaml:"fields,omitempty"`

	// Kinds is the expected order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect is a subset match against the final state (final_state,
	// pool_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertPoolState     = "pool_state"
)

var eventKinds = []string{
	string(ir.EventArmed),
	string(ir.EventInstant),
	string(ir.EventExtra),
	string(ir.EventAborted),
	string(ir.EventExpired),
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files in dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}

	recipes := make(map[string]bool)
	for i, r := range s.Recipes {
		if err := validateRecipe(i, r); err != nil {
			return err
		}
		if recipes[r.ID] {
			return fmt.Errorf("recipes[%d]: duplicate id %q", i, r.ID)
		}
		recipes[r.ID] = true
	}

	nodes := make(map[string]bool)
	for i, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if nodes[n.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		nodes[n.ID] = true
		if n.Machine == "" {
			return fmt.Errorf("nodes[%d]: machine is required", i)
		}
		for _, id := range n.Recipes {
			if !recipes[id] {
				return fmt.Errorf("nodes[%d]: unknown recipe %q", i, id)
			}
		}
		for _, c := range n.Cards {
			if _, err := upgrade.ParseCard(c); err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
		}
		if n.Network && s.Pool == nil {
			return fmt.Errorf("nodes[%d]: network requires a pool", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, nodes); err != nil {
			return err
		}
	}
	return nil
}

func validateRecipe(index int, r RecipeDef) error {
	if r.ID == "" {
		return fmt.Errorf("recipes[%d]: id is required", index)
	}
	if len(r.Inputs) == 0 {
		return fmt.Errorf("recipes[%d]: at least one input is required", index)
	}
	for j, in := range r.Inputs {
		if len(in.Accepts) == 0 || in.Count <= 0 {
			return fmt.Errorf("recipes[%d].inputs[%d]: accepts and a positive count are required", index, j)
		}
	}
	if r.Energy < 0 {
		return fmt.Errorf("recipes[%d]: energy must be non-negative", index)
	}
	return nil
}

func validateAssertion(index int, a Assertion, nodes map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Node != "" && !nodes[a.Node] {
		return fmt.Errorf("assertions[%d]: unknown node %q", index, a.Node)
	}

	switch a.Type {
	case AssertTraceContains:
		if !slices.Contains(eventKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: trace_contains needs a kind, one of %v", index, eventKinds)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if !slices.Contains(eventKinds, k) {
				return fmt.Errorf("assertions[%d]: unknown event kind %q", index, k)
			}
		}
	case AssertTraceCount:
		if !slices.Contains(eventKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: trace_count needs a kind, one of %v", index, eventKinds)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertPoolState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for pool_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// recipeUnits converts the recipe definitions, keyed by ID.
func (s *Scenario) recipeUnits() map[string]ir.RecipeUnit {
	out := make(map[string]ir.RecipeUnit, len(s.Recipes))
	for _, r := range s.Recipes {
		unit := ir.RecipeUnit{
			ID:     r.ID,
			Output: ir.Stack{Kind: ir.Kind(r.Output.Kind), Count: r.Output.Count},
			Energy: r.Energy,
			Steps:  r.Steps,
		}
		for _, in := range r.Inputs {
			req := ir.Requirement{Count: in.Count}
			for _, k := range in.Accepts {
				req.Accepts = append(req.Accepts, ir.Kind(k))
			}
			unit.Inputs = append(unit.Inputs, req)
		}
		out[r.ID] = unit
	}
	return out
}
