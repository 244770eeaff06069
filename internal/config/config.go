// Package config loads the TOML-backed configuration that tunes a
// deployment of the expression evaluator: slab capacities, parse limits,
// and feature gates. Default, and Load for every key a file omits,
// reproduce the evaluator's built-in defaults exactly; a zero Config does
// not (its capacities and limits are all zero).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dekarrin/exprlang"
	"github.com/dekarrin/exprlang/internal/slab"
)

// Limits bounds both the slab arena a parse/compile/eval cycle runs
// against and the raw input the parser will accept.
type Limits struct {
	ExprCap  int `toml:"expr_cap"`
	ValueCap int `toml:"value_cap"`
	InstrCap int `toml:"instr_cap"`

	MaxInputBytes int `toml:"max_input_bytes"`
	MaxDepth      int `toml:"max_depth"`
}

// Features toggles grammar extensions that are off unless a config
// explicitly turns them on.
type Features struct {
	KeywordAndOr     bool `toml:"keyword_and_or"`
	KeywordConstants bool `toml:"keyword_constants"`
	UnsafeVars       bool `toml:"unsafe_vars"`
}

// Config is the full set of tunables a TOML file may specify.
type Config struct {
	Limits   Limits   `toml:"limits"`
	Features Features `toml:"features"`
}

// Default returns the evaluator's built-in defaults: a 64/32/128 slab, a
// 4096-byte/32-deep parse limit, and every feature gate off.
func Default() Config {
	def := exprlang.DefaultOptions()
	return Config{
		Limits: Limits{
			ExprCap:       def.SlabLimits.Exprs,
			ValueCap:      def.SlabLimits.Values,
			InstrCap:      def.SlabLimits.Instrs,
			MaxInputBytes: def.ParseLimits.MaxInputBytes,
			MaxDepth:      def.ParseLimits.MaxDepth,
		},
	}
}

// Load reads and decodes the TOML file at path, filling in any key a
// caller omitted with the value Default would have used for it.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Options converts cfg into the Options value the exprlang package's
// Parser/Compiler/Evaluator constructors expect.
func (c Config) Options() exprlang.Options {
	return exprlang.Options{
		SlabLimits: slab.Limits{
			Exprs:  c.Limits.ExprCap,
			Values: c.Limits.ValueCap,
			Instrs: c.Limits.InstrCap,
		},
		ParseLimits: exprlang.ParseLimits{
			MaxInputBytes: c.Limits.MaxInputBytes,
			MaxDepth:      c.Limits.MaxDepth,
		},
		Features: exprlang.Features{
			KeywordAndOr:     c.Features.KeywordAndOr,
			KeywordConstants: c.Features.KeywordConstants,
			UnsafeVars:       c.Features.UnsafeVars,
		},
	}
}
