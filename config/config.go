// Package config loads adapter and resource settings from a file and the
// environment.
//
// Example YAML:
//
//	resource_id: main
//	namespace: app
//	ttl: 5m
//	resources:
//	  main:
//	    servers: ["db1:27017", ["db2", 27018]]
//	    database: cache
//	    replicaSet: rs0
//	    w: majority
//	    ttl: 60
//
// A ttl is either a duration string or a whole number of seconds. The
// per-resource ttl wins over the top-level one for the selected resource.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/unkn0wn-root/mongocache"
	"github.com/unkn0wn-root/mongocache/resource"
)

// ttlKey is carried inside a resource block but is not a resource option.
const ttlKey = "ttl"

type Config struct {
	ResourceID         string                    `mapstructure:"resource_id"`
	Namespace          string                    `mapstructure:"namespace"`
	NamespaceSeparator string                    `mapstructure:"namespace_separator"`
	TTL                time.Duration             `mapstructure:"ttl"`
	Resources          map[string]map[string]any `mapstructure:"resources"`
}

// ResourceIDs returns the configured resource ids in sorted order.
func (c *Config) ResourceIDs() []string {
	ids := make([]string, 0, len(c.Resources))
	for id := range c.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply registers every configured resource on m. Resources are applied in
// id order; the first failure stops the walk.
func (c *Config) Apply(m *resource.Manager) error {
	for _, id := range c.ResourceIDs() {
		opts, _ := split(c.Resources[id])
		if err := coerceBools(id, opts); err != nil {
			return err
		}
		if err := m.SetResource(id, opts); err != nil {
			return fmt.Errorf("resources.%s: %w", id, err)
		}
	}
	return nil
}

// Options registers the resources on m and returns an Options facade
// selecting ResourceID with the configured namespace and TTL.
func (c *Config) Options(m *resource.Manager) (*mongocache.Options, error) {
	if err := c.Apply(m); err != nil {
		return nil, err
	}
	ttl, err := c.EffectiveTTL()
	if err != nil {
		return nil, err
	}

	o := mongocache.NewOptions()
	o.SetResourceManager(m)
	if err := o.SetResourceID(c.ResourceID); err != nil {
		return nil, err
	}
	if err := o.SetNamespaceSeparator(c.NamespaceSeparator); err != nil {
		return nil, err
	}
	o.SetNamespace(c.Namespace)
	if err := o.SetTTL(ttl); err != nil {
		return nil, err
	}
	return o, nil
}

// EffectiveTTL is the selected resource's ttl when present, else the
// top-level one.
func (c *Config) EffectiveTTL() (time.Duration, error) {
	_, raw := split(c.Resources[c.ResourceID])
	if raw == nil {
		return c.TTL, nil
	}
	d, err := ParseTTL(raw)
	if err != nil {
		return 0, fmt.Errorf("resources.%s.ttl: %w", c.ResourceID, err)
	}
	return d, nil
}

// split separates the ttl entry from the resource options. Keys arrive
// lowercased from viper, so the match is case-insensitive.
func split(block map[string]any) (map[string]any, any) {
	opts := make(map[string]any, len(block))
	var ttl any
	for k, v := range block {
		if strings.EqualFold(k, ttlKey) {
			ttl = v
			continue
		}
		opts[k] = v
	}
	return opts, ttl
}

// boolOptions are the resource options that arrive as strings when set
// through the environment.
var boolOptions = map[string]bool{"ssl": true, "tls": true, "journal": true, "fsync": true, "connect": true}

// coerceBools converts string values of boolean options in place. Other
// types are left for the option validators.
func coerceBools(id string, opts map[string]any) error {
	for k, v := range opts {
		s, ok := v.(string)
		if !ok || !boolOptions[strings.ToLower(k)] {
			continue
		}
		b, err := cast.ToBoolE(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("resources.%s.%s: %w", id, k, err)
		}
		opts[k] = b
	}
	return nil
}
