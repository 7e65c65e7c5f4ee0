// Package config defines the resolved generation configuration consumed by
// the mapping engine. The CLI layers defaults, file, environment, and flags
// with koanf; this package snapshots the result into an immutable view and
// answers per-table lookups. It is decoupled from CLI concerns so the
// engine can be driven by any configuration source.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Resolved is an immutable snapshot of the merged configuration. It is
// constructed once, before generation begins, and injected into the
// engine; nothing can reload or mutate it mid-run.
type Resolved struct {
	k *koanf.Koanf
}

// NewResolved deep-copies the given koanf tree into a fresh snapshot.
func NewResolved(k *koanf.Koanf) (*Resolved, error) {
	if k == nil {
		return ResolvedFromMap(nil)
	}
	return ResolvedFromMap(k.Raw())
}

// ResolvedFromMap builds a snapshot straight from a nested map. Useful for
// tests and for driving the engine without the CLI loader.
func ResolvedFromMap(m map[string]any) (*Resolved, error) {
	k := koanf.New(".")
	if m != nil {
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to snapshot configuration: %w", err)
		}
	}
	return &Resolved{k: k}, nil
}

// MissingKeyError reports a configuration key with no value and no default
// anywhere in the layered configuration.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing configuration key %q: set it in modelgen.yaml, with the matching flag, or with a MODELGEN_ environment variable", e.Key)
}

// overridePath derives the per-table override path for a key: the first
// segment gains an Override suffix and the table name becomes the second
// segment. "generate.columnDefault" resolved for "orders" is looked up at
// "generateOverride.orders.columnDefault"; "tableOptions" at
// "tableOptionsOverride.orders".
func overridePath(table, key string) string {
	first, rest, found := strings.Cut(key, ".")
	if !found {
		return first + "Override." + table
	}
	return first + "Override." + table + "." + rest
}

// path returns the key path to read for table: the override path when a
// value exists there, the general path otherwise.
func (r *Resolved) path(table, key string) string {
	if table != "" {
		if p := overridePath(table, key); r.k.Exists(p) {
			return p
		}
	}
	return key
}

// Lookup resolves key for table. The second return reports whether any
// value (override or general) exists.
func (r *Resolved) Lookup(table, key string) (any, bool) {
	p := r.path(table, key)
	if !r.k.Exists(p) {
		return nil, false
	}
	return r.k.Get(p), true
}

// Require resolves key for table, failing with a MissingKeyError when no
// value exists.
func (r *Resolved) Require(table, key string) (any, error) {
	v, ok := r.Lookup(table, key)
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	return v, nil
}

// Bool resolves key for table as a boolean. Absent keys read as false
// (feature disabled).
func (r *Resolved) Bool(table, key string) bool {
	return r.k.Bool(r.path(table, key))
}

// String resolves key for table as a string. Absent keys read as "".
func (r *Resolved) String(table, key string) string {
	return r.k.String(r.path(table, key))
}

// Int resolves key for table as an integer. Absent keys read as 0.
func (r *Resolved) Int(table, key string) int {
	return r.k.Int(r.path(table, key))
}

// Strings resolves key for table as a string slice. Absent keys read as
// empty.
func (r *Resolved) Strings(table, key string) []string {
	return r.k.Strings(r.path(table, key))
}

// TableOptions merges the option maps for table: per-table override
// entries win, general tableOptions entries fill the gaps. The result is
// a fresh map on every call.
func (r *Resolved) TableOptions(table string) map[string]any {
	out := make(map[string]any)
	if m, ok := r.k.Get(overridePath(table, KeyTableOptions)).(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	if m, ok := r.k.Get(KeyTableOptions).(map[string]any); ok {
		for k, v := range m {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}
