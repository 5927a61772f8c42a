package sql

import "strings"

type mysqlGenerator struct{}

func (mysqlGenerator) Provider() Provider { return ProviderMySQL }

func (mysqlGenerator) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlGenerator) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// UpsertIfAbsent follows the create-model script's idempotent pattern:
// "INSERT INTO tbl (cols) SELECT values WHERE NOT EXISTS (SELECT 1 FROM
// tbl WHERE key = value AND ...)" so re-running the script against an
// already-populated database is a no-op rather than a duplicate-key error.
func (g mysqlGenerator) UpsertIfAbsent(table string, columns, values []string, keyColumns []string) string {
	return upsertIfAbsent(g, table, columns, values, keyColumns)
}

func (g mysqlGenerator) UpsertWithHid(table, hidKey, hidColumn string, columns, values []string, keyColumns []string) string {
	return upsertWithHid(g, table, hidKey, hidColumn, columns, values, keyColumns)
}

type sqliteGenerator struct{}

func (sqliteGenerator) Provider() Provider { return ProviderSQLite }

func (sqliteGenerator) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteGenerator) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (g sqliteGenerator) UpsertIfAbsent(table string, columns, values []string, keyColumns []string) string {
	return upsertIfAbsent(g, table, columns, values, keyColumns)
}

func (g sqliteGenerator) UpsertWithHid(table, hidKey, hidColumn string, columns, values []string, keyColumns []string) string {
	return upsertWithHid(g, table, hidKey, hidColumn, columns, values, keyColumns)
}

// upsertIfAbsent is shared by every Generator: the WHERE NOT EXISTS pattern
// itself is standard SQL, only identifier/string quoting differs by
// provider.
func upsertIfAbsent(g Generator, table string, columns, values []string, keyColumns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(g.QuoteIdentifier(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(g.QuoteIdentifier(c))
	}
	b.WriteString(")\nSELECT ")
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v)
	}
	b.WriteString("\nWHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(g.QuoteIdentifier(table))
	b.WriteString(" WHERE ")
	for i, kc := range keyColumns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(g.QuoteIdentifier(kc))
		b.WriteString(" = ")
		b.WriteString(values[indexOf(columns, kc)])
	}
	b.WriteString(");\n")
	return b.String()
}

// upsertWithHid assigns a model-wide unique id out of the id_lst counter
// row keyed by hidKey, the Hid-counter pattern the create-model script uses
// for every _dic table (type_dic, parameter_dic, table_dic): seed the
// counter, advance it only when the row doesn't exist yet, then insert the
// row reading back whatever the counter now holds. Idempotent end to end —
// running it again against an already-populated database advances nothing
// and inserts nothing.
func upsertWithHid(g Generator, table, hidKey, hidColumn string, columns, values []string, keyColumns []string) string {
	notExists := notExistsClause(g, table, columns, values, keyColumns)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(g.QuoteIdentifier("id_lst"))
	b.WriteString(" (")
	b.WriteString(g.QuoteIdentifier("id_key"))
	b.WriteString(", ")
	b.WriteString(g.QuoteIdentifier("id_value"))
	b.WriteString(")\nSELECT ")
	b.WriteString(g.QuoteString(hidKey))
	b.WriteString(", 0\nWHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(g.QuoteIdentifier("id_lst"))
	b.WriteString(" WHERE ")
	b.WriteString(g.QuoteIdentifier("id_key"))
	b.WriteString(" = ")
	b.WriteString(g.QuoteString(hidKey))
	b.WriteString(");\n\n")

	b.WriteString("UPDATE ")
	b.WriteString(g.QuoteIdentifier("id_lst"))
	b.WriteString(" SET ")
	b.WriteString(g.QuoteIdentifier("id_value"))
	b.WriteString(" = CASE WHEN ")
	b.WriteString(notExists)
	b.WriteString(" THEN ")
	b.WriteString(g.QuoteIdentifier("id_value"))
	b.WriteString(" + 1 ELSE ")
	b.WriteString(g.QuoteIdentifier("id_value"))
	b.WriteString(" END\nWHERE ")
	b.WriteString(g.QuoteIdentifier("id_key"))
	b.WriteString(" = ")
	b.WriteString(g.QuoteString(hidKey))
	b.WriteString(";\n\n")

	allColumns := append([]string{hidColumn}, columns...)
	allValues := append([]string{"IL." + g.QuoteIdentifier("id_value")}, values...)

	b.WriteString("INSERT INTO ")
	b.WriteString(g.QuoteIdentifier(table))
	b.WriteString(" (")
	for i, c := range allColumns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(g.QuoteIdentifier(c))
	}
	b.WriteString(")\nSELECT ")
	for i, v := range allValues {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v)
	}
	b.WriteString("\nFROM ")
	b.WriteString(g.QuoteIdentifier("id_lst"))
	b.WriteString(" IL\nWHERE IL.")
	b.WriteString(g.QuoteIdentifier("id_key"))
	b.WriteString(" = ")
	b.WriteString(g.QuoteString(hidKey))
	b.WriteString(" AND ")
	b.WriteString(notExists)
	b.WriteString(";\n")
	return b.String()
}

// notExistsClause renders the "NOT EXISTS (SELECT 1 FROM table WHERE
// keyColumns = values)" guard shared by upsertIfAbsent and upsertWithHid.
func notExistsClause(g Generator, table string, columns, values []string, keyColumns []string) string {
	var b strings.Builder
	b.WriteString("NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(g.QuoteIdentifier(table))
	b.WriteString(" WHERE ")
	for i, kc := range keyColumns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(g.QuoteIdentifier(kc))
		b.WriteString(" = ")
		b.WriteString(values[indexOf(columns, kc)])
	}
	b.WriteString(")")
	return b.String()
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return 0
}
