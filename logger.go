package mongocache

import mclog "github.com/unkn0wn-root/mongocache/log"

// Fields is a minimal structured field map for logs.
type Fields = mclog.Fields

// Logger is a tiny leveled logger. Provide an adapter around logging stack.
// If Logger is nil in Config, logging is disabled.
type Logger = mclog.Logger

type NopLogger = mclog.Nop
