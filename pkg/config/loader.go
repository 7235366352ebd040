// Package config parses environment variables into tagged structs. The
// checkout service keeps all of its configuration in one struct under
// internal/config; this package only provides the parsing primitive.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using `env`
// tags. Defaults come from `envDefault`; list values split on the tag's
// `envSeparator`.
//
// Example:
//
//	type Config struct {
//	    HTTPPort     int      `env:"CHECKOUT_HTTP_PORT" envDefault:"8010"`
//	    KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
