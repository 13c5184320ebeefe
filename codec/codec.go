// Package codec turns cache values into the payload bytes stored in a
// record's value field and back.
//
// A codec must be deterministic enough for check-and-set: the adapter
// compares stored payloads byte for byte, so a value re-encoded without
// change should produce the same bytes.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
