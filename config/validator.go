package config

import (
	"fmt"

	"github.com/unkn0wn-root/mongocache"
	"github.com/unkn0wn-root/mongocache/resource"
)

func applyDefaults(cfg *Config) {
	if cfg.ResourceID == "" {
		cfg.ResourceID = mongocache.DefaultResourceID
	}
	if cfg.NamespaceSeparator == "" {
		cfg.NamespaceSeparator = mongocache.DefaultNamespaceSeparator
	}
}

// Validate checks the configuration without dialing anything. Every
// resource block is run through the option validators of a scratch
// manager, so a config that validates also applies.
func Validate(cfg *Config) error {
	if cfg.ResourceID == "" {
		return fmt.Errorf("resource_id is required")
	}
	if cfg.NamespaceSeparator == "" {
		return fmt.Errorf("namespace_separator must not be empty")
	}
	if cfg.TTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}
	if len(cfg.Resources) > 0 {
		if _, ok := cfg.Resources[cfg.ResourceID]; !ok {
			return fmt.Errorf("resource_id %q has no entry under resources", cfg.ResourceID)
		}
	}

	if err := cfg.Apply(resource.NewManager()); err != nil {
		return err
	}
	for _, id := range cfg.ResourceIDs() {
		_, raw := split(cfg.Resources[id])
		d, err := ParseTTL(raw)
		if err != nil {
			return fmt.Errorf("resources.%s.ttl: %w", id, err)
		}
		if d < 0 {
			return fmt.Errorf("resources.%s.ttl must not be negative", id)
		}
	}
	return nil
}
