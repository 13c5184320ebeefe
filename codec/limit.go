package codec

import "fmt"

// Limit wraps another codec and bounds payload size in both directions.
// Records larger than MaxEncode are refused before they reach the backend
// (MongoDB rejects documents over 16 MiB); records larger than MaxDecode
// are refused before Inner sees them. A bound <= 0 disables that check.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

// ErrTooLarge is wrapped by Limit errors; test with errors.As.
type ErrTooLarge struct {
	Op   string
	Size int
	Max  int
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("codec: %s payload too large: %d > %d", e.Op, e.Size, e.Max)
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, &ErrTooLarge{Op: "encode", Size: len(b), Max: c.MaxEncode}
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, &ErrTooLarge{Op: "decode", Size: len(b), Max: c.MaxDecode}
	}
	return c.Inner.Decode(b)
}
