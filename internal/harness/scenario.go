package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario. A scenario drives one
// circuit layout and asserts on the resulting trace. The drive script
// comes either from a puzzle definition or from inline per-tick inputs -
// exactly one of Puzzle and Ticks must be set.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Layout is the path to the circuit layout YAML file.
	// Relative paths resolve against the scenario file location.
	Layout string `yaml:"layout"`

	// Puzzle is the path to a puzzle definition CUE file. When set, the
	// scenario runs the verifier and records its verdict.
	Puzzle string `yaml:"puzzle,omitempty"`

	// Ticks is an inline drive script, one entry per tick. When set, the
	// scenario runs the evaluator directly with no expectations.
	Ticks []TickStep `yaml:"ticks,omitempty"`

	// Assertions validate the trace after the run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TickStep is one tick of an inline drive script.
type TickStep struct {
	// Inputs assigns external input values, keyed by "chip.port"
	// reference to a source chip output. May be empty for ticks that
	// drive nothing.
	Inputs map[string]any `yaml:"inputs,omitempty"`
}

// Assertion validates the trace or verdict.
type Assertion struct {
	// Type specifies the assertion type:
	// - "verdict": Check the puzzle verdict
	// - "output_at_tick": Check one output port's value on one tick
	// - "fault_at_tick": Check a chip fault was reported on one tick
	// - "tick_count": Check how many ticks were recorded
	Type string `yaml:"type"`

	// Verdict is the expected verdict (used by verdict).
	Verdict string `yaml:"verdict,omitempty"`

	// Tick is the tick index (used by output_at_tick, fault_at_tick).
	Tick int64 `yaml:"tick,omitempty"`

	// Port is a "chip.port" reference (used by output_at_tick).
	Port string `yaml:"port,omitempty"`

	// Value is the expected scalar value (used by output_at_tick).
	// Null means an absent event.
	Value any `yaml:"value,omitempty"`

	// Chip is the expected faulting chip name (used by fault_at_tick).
	// Empty matches any chip.
	Chip string `yaml:"chip,omitempty"`

	// Cause is a substring the fault cause must contain (used by
	// fault_at_tick). Empty matches any cause.
	Cause string `yaml:"cause,omitempty"`

	// Count is the expected tick count (used by tick_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertVerdict      = "verdict"
	AssertOutputAtTick = "output_at_tick"
	AssertFaultAtTick  = "fault_at_tick"
	AssertTickCount    = "tick_count"
)

// LoadScenario reads and parses a scenario YAML file. Relative layout and
// puzzle paths resolve against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if scenario.Layout != "" && !filepath.IsAbs(scenario.Layout) {
		scenario.Layout = filepath.Join(base, scenario.Layout)
	}
	if scenario.Puzzle != "" && !filepath.IsAbs(scenario.Puzzle) {
		scenario.Puzzle = filepath.Join(base, scenario.Puzzle)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Layout == "" {
		return fmt.Errorf("layout is required")
	}
	if s.Puzzle == "" && len(s.Ticks) == 0 {
		return fmt.Errorf("either puzzle or ticks is required")
	}
	if s.Puzzle != "" && len(s.Ticks) > 0 {
		return fmt.Errorf("puzzle and ticks are mutually exclusive")
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertVerdict:
			if s.Puzzle == "" {
				return fmt.Errorf("assertion %d: verdict requires a puzzle", i)
			}
			if a.Verdict == "" {
				return fmt.Errorf("assertion %d: verdict value is required", i)
			}
		case AssertOutputAtTick:
			if a.Port == "" {
				return fmt.Errorf("assertion %d: port is required", i)
			}
		case AssertFaultAtTick, AssertTickCount:
			// no required fields beyond type
		case "":
			return fmt.Errorf("assertion %d: type is required", i)
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
