// Package wire frames provider.Record values for byte-oriented stores
// (Redis, BigCache, Ristretto).
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	pr "github.com/unkn0wn-root/mongocache/provider"
)

const (
	version    byte = 1
	flagExpire byte = 1 << 0
)

var (
	ErrCorrupt = errors.New("mongocache: corrupt record")
	magic4     = [...]byte{'M', 'C', 'R', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record layout:
//
//	magic(4) | ver(1) | flags(1) | id(12) | mtime(i64 be, unix nanos) | ttl(i64 be)
//	| [expire(i64 be, unix nanos) if flagExpire]
//	| uidLen(u16 be) | uid(uidLen) | vlen(u32 be) | value(vlen)
const fixedHdr = 4 + 1 + 1 + 12 + 8 + 8

// EncodeRecord frames rec. It panics on uids longer than 65535 bytes; callers
// bound key length well below that.
func EncodeRecord(rec pr.Record) []byte {
	if len(rec.UID) > 0xFFFF {
		panic("mongocache: uid too long for wire record")
	}
	size := fixedHdr + 2 + len(rec.UID) + 4 + len(rec.Value)
	var flags byte
	if rec.Expire != nil {
		flags |= flagExpire
		size += 8
	}

	var buf bytes.Buffer
	buf.Grow(size)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(flags)
	buf.Write(rec.ID[:])

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(rec.MTime.UnixNano()))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(rec.TTL))
	buf.Write(u8[:])
	if rec.Expire != nil {
		binary.BigEndian.PutUint64(u8[:], uint64(rec.Expire.UnixNano()))
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint16(u2[:], uint16(len(rec.UID)))
	buf.Write(u2[:])
	buf.WriteString(rec.UID)

	binary.BigEndian.PutUint32(u4[:], uint32(len(rec.Value)))
	buf.Write(u4[:])
	buf.Write(rec.Value)
	return buf.Bytes()
}

// DecodeRecord parses a framed record. The returned Value aliases b.
func DecodeRecord(b []byte) (pr.Record, error) {
	var rec pr.Record
	if len(b) < fixedHdr+2+4 || !hasMagic(b) || b[4] != version {
		return rec, ErrCorrupt
	}
	flags := b[5]
	off := 6

	var id primitive.ObjectID
	copy(id[:], b[off:off+12])
	rec.ID = id
	off += 12

	rec.MTime = time.Unix(0, int64(binary.BigEndian.Uint64(b[off:off+8])))
	off += 8
	rec.TTL = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	if flags&flagExpire != 0 {
		if off+8 > len(b) {
			return pr.Record{}, ErrCorrupt
		}
		exp := time.Unix(0, int64(binary.BigEndian.Uint64(b[off:off+8])))
		rec.Expire = &exp
		off += 8
	}

	// uid
	if off+2 > len(b) {
		return pr.Record{}, ErrCorrupt
	}
	ulen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if ulen > len(b)-off {
		return pr.Record{}, ErrCorrupt
	}
	rec.UID = string(b[off : off+ulen])
	off += ulen

	// value
	if off+4 > len(b) {
		return pr.Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact: trailing bytes are corruption
		return pr.Record{}, ErrCorrupt
	}
	if vlen > 0 {
		rec.Value = b[off : off+vlen]
	}
	return rec, nil
}
