package mongocache

import "time"

// Datatype names a value shape a backend can round-trip.
type Datatype string

const (
	TypeNull     Datatype = "null"
	TypeBool     Datatype = "boolean"
	TypeInt      Datatype = "integer"
	TypeFloat    Datatype = "double"
	TypeString   Datatype = "string"
	TypeArray    Datatype = "array"
	TypeObject   Datatype = "object"
	TypeBinary   Datatype = "binary"
	TypeResource Datatype = "resource"
)

// Capabilities describes what the adapter supports. MinTTL and MaxTTL of 0
// mean unbounded. ExpiredRead is false: records past their expiry are never
// returned.
type Capabilities struct {
	SupportedDatatypes map[Datatype]bool
	SupportedMetadata  []string
	MinTTL             time.Duration
	MaxTTL             time.Duration
	StaticTTL          bool
	TTLPrecision       time.Duration
	ExpiredRead        bool
	MaxKeyLength       int
	NamespaceIsPrefix  bool
	NamespaceSeparator string
}

// Supports reports whether values of type t survive a round trip.
func (c Capabilities) Supports(t Datatype) bool { return c.SupportedDatatypes[t] }

// MaxKeyLength bounds the namespaced storage key.
const MaxKeyLength = 255

func newCapabilities(separator string) Capabilities {
	return Capabilities{
		SupportedDatatypes: map[Datatype]bool{
			TypeNull:     true,
			TypeBool:     true,
			TypeInt:      true,
			TypeFloat:    true,
			TypeString:   true,
			TypeArray:    true,
			TypeObject:   true,
			TypeBinary:   false,
			TypeResource: false,
		},
		SupportedMetadata:  []string{"_id", "created", "modified", "ttl"},
		StaticTTL:          true,
		TTLPrecision:       time.Second,
		ExpiredRead:        false,
		MaxKeyLength:       MaxKeyLength,
		NamespaceIsPrefix:  true,
		NamespaceSeparator: separator,
	}
}
