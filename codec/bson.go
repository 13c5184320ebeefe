package codec

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// BSON encodes with the MongoDB driver's bson package. BSON documents must
// be objects, so every value is wrapped as {v: value}; scalars, slices and
// nil round-trip like any other V.
//
// Values decoded into an interface come back as plain Go types: documents
// as map[string]any, arrays as []any, int32 and int64 as int, datetimes as
// time.Time in UTC.
//
// Map iteration order is random: values holding Go maps with more than one
// key do not re-encode to identical bytes. Prefer structs or bson.D when
// the payload feeds CheckAndSet.
type BSON[V any] struct{}

type bsonEnvelope[V any] struct {
	V V `bson:"v"`
}

var bsonRegistry = newBSONRegistry()

func newBSONRegistry() *bsoncodec.Registry {
	r := bson.NewRegistry()
	r.RegisterTypeMapEntry(bsontype.EmbeddedDocument, reflect.TypeOf(map[string]any(nil)))
	r.RegisterTypeMapEntry(bsontype.Array, reflect.TypeOf([]any(nil)))
	r.RegisterTypeMapEntry(bsontype.Int32, reflect.TypeOf(0))
	r.RegisterTypeMapEntry(bsontype.Int64, reflect.TypeOf(0))
	r.RegisterTypeMapEntry(bsontype.DateTime, reflect.TypeOf(time.Time{}))
	return r
}

func (BSON[V]) Encode(v V) ([]byte, error) {
	return bson.Marshal(bsonEnvelope[V]{V: v})
}

func (BSON[V]) Decode(b []byte) (V, error) {
	var env bsonEnvelope[V]
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(b))
	if err != nil {
		return env.V, err
	}
	if err := dec.SetRegistry(bsonRegistry); err != nil {
		return env.V, err
	}
	err = dec.Decode(&env)
	return env.V, err
}
