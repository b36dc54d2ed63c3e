// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DefaultListColumns are the columns whose text holds ";" or "|"
// separated lists.
var DefaultListColumns = []string{"authors", "subjects", "isbn"}

// likeEscaper escapes LIKE wildcards typed by the user; statements use
// ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SQLCatalog searches a holdings table in PostgreSQL or SQLite. The table
// needs title, authors, subjects and isbn text columns; every selected
// column is returned as a catalog document key.
type SQLCatalog struct {
	db          *sql.DB
	driver      string
	table       string
	listColumns map[string]bool
}

// OpenSQLCatalog opens the database and returns a catalog over table.
func OpenSQLCatalog(driver, dsn, table string) (*SQLCatalog, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s catalog: %w", driver, err)
	}
	c, err := NewSQLCatalog(db, driver, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCatalog wraps an open database.
func NewSQLCatalog(db *sql.DB, driver, table string) (*SQLCatalog, error) {
	if table == "" {
		table = "records"
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	c := &SQLCatalog{db: db, driver: driver, table: table}
	c.SetListColumns(DefaultListColumns)
	return c, nil
}

// SetListColumns replaces the columns split into lists. Other text
// columns are returned verbatim.
func (c *SQLCatalog) SetListColumns(cols []string) {
	c.listColumns = make(map[string]bool, len(cols))
	for _, col := range cols {
		if col = strings.ToLower(strings.TrimSpace(col)); col != "" {
			c.listColumns[col] = true
		}
	}
}

// Ping checks the connection.
func (c *SQLCatalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database.
func (c *SQLCatalog) Close() error {
	return c.db.Close()
}

// Search runs one parameterized SELECT.
func (c *SQLCatalog) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	stmt, args, err := c.buildQuery(query, limit(opts, 1000))
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var records []types.RawRecord
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		doc := make(types.CatalogDocument, len(cols))
		for i, col := range cols {
			key := strings.ToLower(col)
			doc[key] = sqlValue(values[i], c.listColumns[key])
		}
		records = append(records, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}

func (c *SQLCatalog) buildQuery(q types.Query, n int) (string, []any, error) {
	var conds []string
	var args []any
	like := func(cols ...string) {
		v := likePattern(q.Text)
		var ors []string
		for _, col := range cols {
			args = append(args, v)
			ors = append(ors, "LOWER("+col+") LIKE "+c.placeholder(len(args))+likeEscape)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if strings.TrimSpace(q.Text) != "" {
		switch q.EffectiveType() {
		case types.SearchTitle:
			like("title")
		case types.SearchAuthor:
			like("authors")
		case types.SearchSubject:
			like("subjects")
		case types.SearchISBN:
			isbn, _ := normalize.NormalizeISBN(q.Text)
			args = append(args, isbn)
			conds = append(conds, "isbn = "+c.placeholder(len(args)))
		default:
			like("title", "authors", "subjects")
		}
	}
	for _, f := range [][2]string{{"title", q.Fields.Title}, {"authors", q.Fields.Author}} {
		if v := strings.TrimSpace(f[1]); v != "" {
			args = append(args, likePattern(v))
			conds = append(conds, "LOWER("+f[0]+") LIKE "+c.placeholder(len(args))+likeEscape)
		}
	}
	if v := strings.TrimSpace(q.Fields.ISBN); v != "" {
		isbn, _ := normalize.NormalizeISBN(v)
		args = append(args, isbn)
		conds = append(conds, "isbn = "+c.placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil, errors.New("empty SQL catalog query")
	}

	stmt := "SELECT * FROM " + c.table + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY title LIMIT " + strconv.Itoa(n)
	return stmt, args, nil
}

const likeEscape = ` ESCAPE '\'`

// likePattern is a case-insensitive substring pattern for s.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func (c *SQLCatalog) placeholder(n int) string {
	if c.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// sqlValue converts driver values to JSON-friendly ones. Text in list
// columns is split on ";" or "|".
func sqlValue(v any, list bool) any {
	switch t := v.(type) {
	case []byte:
		return textValue(string(t), list)
	case string:
		return textValue(t, list)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return t
	}
}

func textValue(s string, list bool) any {
	if !list {
		return s
	}
	return splitList(s)
}

func splitList(s string) any {
	for _, sep := range []string{";", "|"} {
		if strings.Contains(s, sep) {
			var out []any
			for _, p := range strings.Split(s, sep) {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return s
}
