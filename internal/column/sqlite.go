package column

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/funvibe/coludf/internal/typesystem"
)

// OpenSQLite opens a database file with the pure-Go sqlite driver.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(t typesystem.Type) string {
	switch t.Class() {
	case typesystem.ClassFloat:
		return "REAL"
	case typesystem.ClassStringView, typesystem.ClassDynamicString:
		return "TEXT"
	}
	return "INTEGER"
}

// ReadSQLite reads one column of a table in rowid order. SQL NULL becomes a
// missing row.
func ReadSQLite(ctx context.Context, db *sql.DB, table, column string, t typesystem.Type) (*Column, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", quoteIdent(column), quoteIdent(table))
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	c := newColumn(t, 0)
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("reading %s.%s row %d: %w", table, column, c.Len(), err)
		}
		if v == nil {
			c.appendMissing()
			continue
		}
		if err := c.appendGo(fromSQL(t, v)); err != nil {
			return nil, fmt.Errorf("reading %s.%s row %d: %w", table, column, c.Len(), err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", table, column, err)
	}
	return c, nil
}

// fromSQL maps a scanned driver value onto what the column type accepts.
func fromSQL(t typesystem.Type, v any) any {
	switch t.Class() {
	case typesystem.ClassBoolean:
		if i, ok := v.(int64); ok {
			return i != 0
		}
	case typesystem.ClassFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case typesystem.ClassStringView, typesystem.ClassDynamicString:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return v
}

// WriteSQLite stores c as column of table, creating the table when it does
// not exist. Missing rows are written as NULL.
func WriteSQLite(ctx context.Context, db *sql.DB, table, column string, c *Column) error {
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s %s)", quoteIdent(table), quoteIdent(column), sqlType(c.Type))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", quoteIdent(table), quoteIdent(column)))
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		switch x := v.(type) {
		case uint64:
			v = int64(x)
		case float32:
			v = float64(x)
		}
		if _, err := stmt.ExecContext(ctx, v); err != nil {
			return fmt.Errorf("writing %s.%s row %d: %w", table, column, i, err)
		}
	}
	return tx.Commit()
}
