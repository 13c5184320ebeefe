package util

import (
	"fmt"
	"strings"
)

// ScopePrefix returns the key prefix owned by one (database, collection)
// scope in a flat keyspace. Components are length-prefixed so that no
// database/collection pair can produce another pair's prefix.
func ScopePrefix(database, collection string) string {
	return fmt.Sprintf("mc:%d:%s:%d:%s:", len(database), database, len(collection), collection)
}

// ScopeKey returns the storage key of uid inside a scope.
func ScopeKey(database, collection, uid string) string {
	return ScopePrefix(database, collection) + uid
}

// GlobEscape escapes Redis glob metacharacters in s.
func GlobEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
