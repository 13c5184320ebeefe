// Package sloghooks reports adapter events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/mongocache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredReadEvery uint64
	AddConflictEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr  atomic.Uint64
	conflictCtr atomic.Uint64
}

var _ mongocache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ExpiredRead(key string) {
	if h.l == nil || !sample(h.opts.ExpiredReadEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("mongocache.expired_read", "key", h.redact(key))
}

func (h *Hooks) AddConflict(key string) {
	if h.l == nil || !sample(h.opts.AddConflictEvery, &h.conflictCtr) {
		return
	}
	h.l.Debug("mongocache.add_conflict", "key", h.redact(key))
}

func (h *Hooks) BackendError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("mongocache.backend_error",
		"op", op,
		"err", err)
}

func (h *Hooks) Resolved(resourceID string, version uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("mongocache.resolved",
		"resource", resourceID,
		"version", version)
}
