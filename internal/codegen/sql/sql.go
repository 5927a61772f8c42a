// Package sql assembles the metadata-bootstrap scripts and the
// <model>.sqlite artifact: create-model/create-tables/views scripts, the
// OM_* aggregation-function rewriter, workset construction, and a SQLite
// writer. Per-provider SQL text differences are isolated behind the
// Generator interface, the same registry-of-strategies shape the teacher
// uses for its migration dialects.
package sql

import (
	"fmt"
	"sync"
)

// Provider identifies a target SQL dialect for generated scripts.
type Provider string

const (
	ProviderMySQL    Provider = "mysql"
	ProviderSQLite   Provider = "sqlite"
	ProviderPostgres Provider = "postgresql"
)

// Generator produces dialect-specific SQL text for the handful of
// constructs the metadata/SQL emitter needs: identifier quoting and the
// idempotent "insert/update only if absent" upsert pattern used throughout
// the create-model script.
type Generator interface {
	Provider() Provider
	QuoteIdentifier(name string) string
	QuoteString(value string) string
	// UpsertIfAbsent returns a statement that inserts (col=values) into
	// table only when no row with the given key columns already exists.
	UpsertIfAbsent(table string, columns, values []string, keyColumns []string) string
	// UpsertWithHid returns the id_lst Hid-counter sequence: seed the
	// counter row for hidKey if it doesn't exist yet, increment it only
	// when no row keyed by keyColumns already exists in table, then insert
	// (hidColumn, columns...) = (the counter's current value, values...)
	// under that same guard. hidColumn receives the model-wide unique
	// numeric id a _dic row needs (type_hid, parameter_hid, table_hid); the
	// rest of columns/values are the row's own descriptive fields.
	UpsertWithHid(table, hidKey, hidColumn string, columns, values []string, keyColumns []string) string
}

var (
	registryMu sync.RWMutex
	registry   = map[Provider]func() Generator{}
)

// RegisterGenerator registers a constructor for provider, called lazily by
// GeneratorFor. Mirrors the teacher's dialect.RegisterDialect registry.
func RegisterGenerator(p Provider, ctor func() Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p] = ctor
}

// GeneratorFor returns a fresh Generator for provider, or an error if none
// is registered.
func GeneratorFor(p Provider) (Generator, error) {
	registryMu.RLock()
	ctor, ok := registry[p]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sql: no generator registered for provider %q", p)
	}
	return ctor(), nil
}

func init() {
	RegisterGenerator(ProviderMySQL, func() Generator { return mysqlGenerator{} })
	RegisterGenerator(ProviderSQLite, func() Generator { return sqliteGenerator{} })
}
