package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/mongocache/provider"
)

// Canonical option names. Lookups are case-insensitive.
const (
	OptServers            = "servers"
	OptDatabase           = "database"
	OptCollection         = "collection"
	OptReplicaSet         = "replicaSet"
	OptUsername           = "username"
	OptPassword           = "password"
	OptConnectTimeout     = "connectTimeoutMS"
	OptSocketTimeout      = "socketTimeoutMS"
	OptWriteTimeout       = "wTimeoutMS"
	OptFSync              = "fsync"
	OptJournal            = "journal"
	OptTLS                = "ssl"
	OptWriteConcern       = "w"
	OptReadPreference     = "readPreference"
	OptReadPreferenceTags = "readPreferenceTags"
	OptConnect            = "connect"
)

// Read preference modes.
const (
	ReadNearest            = "nearest"
	ReadPrimary            = "primary"
	ReadPrimaryPreferred   = "primaryPreferred"
	ReadSecondary          = "secondary"
	ReadSecondaryPreferred = "secondaryPreferred"
)

// Default values merged under the first SetResource for an id.
const (
	DefaultDatabase   = "cache"
	DefaultCollection = "cache"
)

type normalizeFunc func(name string, v any) (any, error)

// optionRule is one entry of the option table: the canonical name and the
// validator that also normalizes the accepted value to its stored type.
type optionRule struct {
	name      string
	normalize normalizeFunc
}

var optionTable = buildOptionTable(
	optionRule{OptServers, func(_ string, v any) (any, error) { return NormalizeServers(v) }},
	optionRule{OptDatabase, nonEmptyString},
	optionRule{OptCollection, nonEmptyString},
	optionRule{OptReplicaSet, nonEmptyString},
	optionRule{OptUsername, nonEmptyString},
	optionRule{OptPassword, nonEmptyString},
	optionRule{OptConnectTimeout, millis},
	optionRule{OptSocketTimeout, millis},
	optionRule{OptWriteTimeout, millis},
	optionRule{OptFSync, strictBool},
	optionRule{OptJournal, strictBool},
	optionRule{OptTLS, strictBool},
	optionRule{OptConnect, strictBool},
	optionRule{OptWriteConcern, writeConcern},
	optionRule{OptReadPreference, readPreference},
	optionRule{OptReadPreferenceTags, stringList},
)

var optionAliases = map[string]string{
	"db":  OptDatabase,
	"tls": OptTLS,
}

func buildOptionTable(rules ...optionRule) map[string]optionRule {
	m := make(map[string]optionRule, len(rules))
	for _, r := range rules {
		m[strings.ToLower(r.name)] = r
	}
	return m
}

func lookupOption(name string) (optionRule, error) {
	k := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := optionAliases[k]; ok {
		k = strings.ToLower(alias)
	}
	r, ok := optionTable[k]
	if !ok {
		return optionRule{}, &UnknownOptionError{Option: name}
	}
	return r, nil
}

// Options returns the canonical names of every supported option.
func Options() []string {
	out := make([]string, 0, len(optionTable))
	for _, r := range optionTable {
		out = append(out, r.name)
	}
	return out
}

func nonEmptyString(name string, v any) (any, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, invalid(name, v, "non-empty string required")
	}
	return s, nil
}

func strictBool(name string, v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	case int64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	case float64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	}
	return nil, invalid(name, v, "boolean or 0/1 required")
}

// millis accepts an integer, an integral float (as produced by JSON/YAML
// decoders) or an integer-valued string. Negative values are rejected.
func millis(name string, v any) (any, error) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		n = int64(t)
	case float64:
		if t != float64(int64(t)) {
			return nil, invalid(name, v, "integer required")
		}
		n = int64(t)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, invalid(name, v, "integer required")
		}
		n = i
	default:
		return nil, invalid(name, v, "integer required")
	}
	if n < 0 {
		return nil, invalid(name, v, "must not be negative")
	}
	return int(n), nil
}

var readPreferenceModes = map[string]string{
	"nearest":             ReadNearest,
	"primary":             ReadPrimary,
	"primarypreferred":    ReadPrimaryPreferred,
	"primary-preferred":   ReadPrimaryPreferred,
	"secondary":           ReadSecondary,
	"secondarypreferred":  ReadSecondaryPreferred,
	"secondary-preferred": ReadSecondaryPreferred,
}

func readPreference(name string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, invalid(name, v, "read preference mode required")
	}
	mode, ok := readPreferenceModes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return nil, invalid(name, v, "must be one of nearest, primary, primaryPreferred, secondary, secondaryPreferred")
	}
	return mode, nil
}

func stringList(name string, v any) (any, error) {
	var in []string
	switch t := v.(type) {
	case []string:
		in = t
	case []any:
		in = make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(name, v, "list of strings required")
			}
			in = append(in, s)
		}
	default:
		return nil, invalid(name, v, "list of strings required")
	}
	if len(in) == 0 {
		return nil, invalid(name, v, "list must not be empty")
	}
	out := make([]string, len(in))
	for i, s := range in {
		if s == "" {
			return nil, invalid(name, v, fmt.Sprintf("entry %d is empty", i))
		}
		out[i] = s
	}
	return out, nil
}

func writeConcern(name string, v any) (any, error) {
	switch t := v.(type) {
	case provider.WriteConcern:
		if t.IsZero() {
			return nil, invalid(name, v, "empty write concern")
		}
		return t, nil
	case string:
		if t == "majority" {
			return provider.WriteConcern{Majority: true}, nil
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, invalid(name, v, `integer >= 1, "majority" or tag list required`)
		}
		return writeConcernN(name, v, int64(n))
	case int:
		return writeConcernN(name, v, int64(t))
	case int64:
		return writeConcernN(name, v, t)
	case float64:
		if t != float64(int64(t)) {
			return nil, invalid(name, v, "integer required")
		}
		return writeConcernN(name, v, int64(t))
	case []string, []any:
		tags, err := stringList(name, v)
		if err != nil {
			return nil, err
		}
		return provider.WriteConcern{Tags: tags.([]string)}, nil
	}
	return nil, invalid(name, v, `integer >= 1, "majority" or tag list required`)
}

func writeConcernN(name string, v any, n int64) (any, error) {
	if n < 1 {
		return nil, invalid(name, v, "must be >= 1")
	}
	return provider.WriteConcern{N: int(n)}, nil
}
