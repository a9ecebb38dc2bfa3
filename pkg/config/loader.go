package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by configs that check their own invariants. Load
// calls it once every field is parsed.
type Validator interface {
	Validate() error
}

// Load fills cfg from the environment using its `env` and `envDefault` tags.
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadWithPrefix is Load with every key prefixed, so `env:"HTTP_PORT"` reads
// BABO_HTTP_PORT for prefix "BABO_".
func LoadWithPrefix(cfg any, prefix string) error {
	return load(cfg, env.Options{Prefix: prefix})
}

func load(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
