package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/mitchellh/mapstructure"
)

//go:embed schema.cue
var schemaCUE string

// FEPerAE converts the FE figure of the super energy card into AE.
const FEPerAE = 2.0

// Defaults.
const (
	DefaultCapacityCardSlotLimit        = math.MaxInt32
	DefaultSuperEnergyCardBufferFE      = 2_000_000_000.0
	DefaultParallelCardMaxMultiplier    = math.MaxInt32
	DefaultBreakProtectionItemThreshold = 1000
	DefaultBaseEnergyBuffer             = 1600.0
	DefaultBaseSlotLimit                = 64
)

// Config is the engine configuration. Read values through the getters,
// which clamp.
type Config struct {
	CapacityCardSlotLimit        int64   `json:"capacity_card_slot_limit"`
	SuperEnergyCardBufferFE      float64 `json:"super_energy_card_buffer_fe"`
	ParallelCardMaxMultiplier    int64   `json:"parallel_card_max_multiplier"`
	BreakProtectionItemThreshold int64   `json:"break_protection_item_threshold"`
	BaseEnergyBuffer             float64 `json:"base_energy_buffer"`
	BaseSlotLimit                int64   `json:"base_slot_limit"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CapacityCardSlotLimit:        DefaultCapacityCardSlotLimit,
		SuperEnergyCardBufferFE:      DefaultSuperEnergyCardBufferFE,
		ParallelCardMaxMultiplier:    DefaultParallelCardMaxMultiplier,
		BreakProtectionItemThreshold: DefaultBreakProtectionItemThreshold,
		BaseEnergyBuffer:             DefaultBaseEnergyBuffer,
		BaseSlotLimit:                DefaultBaseSlotLimit,
	}
}

// SlotLimit is the output slot limit with a capacity card, at least 64.
func (c Config) SlotLimit() int64 {
	return max(c.CapacityCardSlotLimit, 64)
}

// SuperEnergyBufferAE is the local buffer in AE with a super energy card,
// at least 1.
func (c Config) SuperEnergyBufferAE() float64 {
	fe := max(c.SuperEnergyCardBufferFE, 2.0)
	return max(fe/FEPerAE, 1.0)
}

// MaxFactor is the acceleration factor of the max parallel card, at least 2.
func (c Config) MaxFactor() int64 {
	return max(c.ParallelCardMaxMultiplier, 2)
}

// BreakProtectionThreshold is the internal item count above which a machine
// refuses to be dismantled without force, at least 1.
func (c Config) BreakProtectionThreshold() int64 {
	return max(c.BreakProtectionItemThreshold, 1)
}

// EnergyBuffer is the local buffer in AE without a super energy card.
func (c Config) EnergyBuffer() float64 {
	return max(c.BaseEnergyBuffer, 0)
}

// BaseSlot is the output slot limit without a capacity card, at least 1.
func (c Config) BaseSlot() int64 {
	return max(c.BaseSlotLimit, 1)
}

// Load reads a CUE configuration file and applies it over Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and applies it over
// Default(). The returned error wraps a *ValidationError when the source is
// invalid.
func Parse(data []byte, filename string) (Config, error) {
	v, errs := compile(data, filename)
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid config: %w", errs[0])
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return Default().Apply(fields)
}

// Validate returns every schema violation in the CUE source. An empty
// result means the source is valid.
func Validate(data []byte, filename string) []ValidationError {
	_, errs := compile(data, filename)
	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		out = append(out, *e)
	}
	return out
}

// Apply decodes overrides (keys are the JSON field names) onto a copy of c
// and checks the result against the schema.
func (c Config) Apply(overrides map[string]any) (Config, error) {
	out := c
	if len(overrides) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return c, fmt.Errorf("apply overrides: %w", err)
	}
	if err := dec.Decode(overrides); err != nil {
		return c, fmt.Errorf("apply overrides: %w", err)
	}
	if err := out.Check(); err != nil {
		return c, fmt.Errorf("apply overrides: %w", err)
	}
	return out, nil
}

// Check validates c against the schema.
func (c Config) Check() error {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return err
	}
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fromCUE(err)[0]
	}
	return nil
}

// schema compiles the embedded schema and returns the #Config definition.
func schema(ctx *cue.Context) (cue.Value, error) {
	s := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := s.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema: %w", err)
	}
	return s.LookupPath(cue.ParsePath("#Config")), nil
}

func compile(data []byte, filename string) (cue.Value, []*ValidationError) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return cue.Value{}, []*ValidationError{{Field: "schema", Message: err.Error(), Code: ErrCodeSchema}}
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return cue.Value{}, withCode(fromCUE(err), ErrCodeSyntax)
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, fromCUE(err)
	}
	return v, nil
}

func withCode(errs []*ValidationError, code string) []*ValidationError {
	for _, e := range errs {
		e.Code = code
	}
	return errs
}
