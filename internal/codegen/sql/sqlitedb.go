package sql

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
)

// bootstrapSchema is the fixed set of metadata tables every generated
// <model>.sqlite artifact starts from, before the model-specific
// create-model/create-tables scripts run against it.
const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS model_dic (
	model_name   TEXT NOT NULL,
	model_digest TEXT NOT NULL PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS workset_lst (
	set_name    TEXT NOT NULL PRIMARY KEY,
	is_readonly INTEGER NOT NULL DEFAULT 0
);
`

// WriteSQLiteArtifact creates (overwriting any existing file) the
// <model>.sqlite artifact at path: bootstrap schema, then the model's
// create-model and create-tables scripts, run inside one transaction.
func WriteSQLiteArtifact(path string, createModelScript, createTablesScript string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sqlitedb: removing existing artifact: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("sqlitedb: open %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlitedb: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, script := range []string{bootstrapSchema, createModelScript, createTablesScript} {
		if _, err := tx.Exec(script); err != nil {
			return fmt.Errorf("sqlitedb: executing script: %w", err)
		}
	}
	return tx.Commit()
}
