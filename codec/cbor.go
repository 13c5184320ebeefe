package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR serializes values with fxamacker/cbor. Construct with NewCBOR or
// MustCBOR; the zero value has no modes and panics.
//
// Pass deterministic=true (RFC 8949 Core Deterministic) whenever values
// contain maps and the payload is compared by CheckAndSet. Times encode as
// RFC3339Nano. Maps decoded into interface values come back as
// map[string]any, matching the JSON and BSON codecs.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

var stringMapType = reflect.TypeOf(map[string]any(nil))

// NewCBOR builds the codec. Decoding caps nesting at 32 levels and rejects
// duplicate map keys.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	dm, err := cbor.DecOptions{
		MaxNestedLevels: 32,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		DefaultMapType:  stringMapType,
	}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics where NewCBOR would fail. Meant for package-level vars.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
