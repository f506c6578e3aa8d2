package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name       string
	driverName string
	idColumn   string
	textType   string
	keyType    string
	// inlineIndexes puts index definitions inside CREATE TABLE (MySQL has no
	// CREATE INDEX IF NOT EXISTS).
	inlineIndexes bool
	numbered      bool
}

var (
	postgresDialect = dialect{
		name:       "postgres",
		driverName: "postgres",
		idColumn:   "id BIGSERIAL PRIMARY KEY",
		textType:   "TEXT",
		keyType:    "TEXT",
		numbered:   true,
	}
	mysqlDialect = dialect{
		name:          "mysql",
		driverName:    "mysql",
		idColumn:      "id BIGINT AUTO_INCREMENT PRIMARY KEY",
		textType:      "LONGTEXT",
		keyType:       "VARCHAR(191)",
		inlineIndexes: true,
	}
	sqliteDialect = dialect{
		name:       "sqlite",
		driverName: "sqlite",
		idColumn:   "id INTEGER PRIMARY KEY AUTOINCREMENT",
		textType:   "TEXT",
		keyType:    "TEXT",
	}
)

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var indexedColumns = []string{"rule", "severity", "scan_id", "ingested_at"}

func (d dialect) schema(table string) []string {
	cols := []string{
		d.idColumn,
		"rule " + d.keyType + " NOT NULL",
		"severity " + d.keyType + " NOT NULL",
		"scan_id " + d.keyType + " NOT NULL",
		"ingested_at BIGINT NOT NULL",
		"doc " + d.textType + " NOT NULL",
	}
	if d.inlineIndexes {
		for _, c := range indexedColumns {
			cols = append(cols, fmt.Sprintf("INDEX idx_%s_%s (%s)", table, c, c))
		}
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))}
	if !d.inlineIndexes {
		for _, c := range indexedColumns {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", table, c, table, c))
		}
	}
	return stmts
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQLStore keeps alerts in one table. The filter columns are broken out and
// indexed; the full alert is stored as a JSON document in doc.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	clock   Clock
}

// newSQLStore wraps an open handle and creates the table if needed.
func newSQLStore(ctx context.Context, db *sql.DB, d dialect, table string, opts ...Option) (*SQLStore, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrStore, table)
	}
	o := buildOptions(opts)
	s := &SQLStore{db: db, dialect: d, table: table, clock: o.clock}
	for _, stmt := range d.schema(table) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, wrapErr("create schema", err)
		}
	}
	return s, nil
}

// openSQL opens cfg.URI with the dialect's driver and prepares the alerts table.
func openSQL(ctx context.Context, d dialect, cfg config.StoreCfg, opts ...Option) (*SQLStore, error) {
	dsn := cfg.URI
	if dsn == "" {
		if d.name != sqliteDialect.name {
			return nil, fmt.Errorf("%w: %s driver requires store.uri", ErrStore, d.name)
		}
		dsn = cfg.Path
	}
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, wrapErr("open "+d.name, err)
	}
	if d.name == sqliteDialect.name {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else if cfg.MaxPoolSize > 0 {
		db.SetMaxOpenConns(int(cfg.MaxPoolSize))
	}

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, wrapErr("ping "+d.name, err)
	}

	table := cfg.Collection
	if table == "" {
		table = "alerts"
	}
	s, err := newSQLStore(pingCtx, db, d, table, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Infow("connected to sql store", "driver", d.name, "table", table)
	return s, nil
}

func (s *SQLStore) Insert(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	stampAll(alerts, s.clock())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin insert", err)
	}
	defer tx.Rollback()

	p := s.dialect.placeholder
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (rule, severity, scan_id, ingested_at, doc) VALUES (%s, %s, %s, %s, %s)",
		s.table, p(1), p(2), p(3), p(4), p(5)))
	if err != nil {
		return wrapErr("prepare insert", err)
	}
	defer stmt.Close()

	for i := range alerts {
		a := alerts[i]
		a.ID = ""
		doc, err := json.Marshal(a)
		if err != nil {
			return wrapErr("encode alert", err)
		}
		if _, err := stmt.ExecContext(ctx, a.Rule, string(a.Severity), a.ScanID, a.IngestedAt.UnixNano(), string(doc)); err != nil {
			return wrapErr("insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit insert", err)
	}
	return nil
}

func (s *SQLStore) Query(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildQuery(f, s.clock())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query", err)
	}
	defer rows.Close()

	out := make([]alert.Alert, 0)
	for rows.Next() {
		var (
			id         int64
			ingestedAt int64
			doc        string
		)
		if err := rows.Scan(&id, &ingestedAt, &doc); err != nil {
			return nil, wrapErr("scan row", err)
		}
		var a alert.Alert
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, wrapErr("decode alert", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		a.IngestedAt = time.Unix(0, ingestedAt).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate rows", err)
	}
	return out, nil
}

// buildQuery renders f as a parameterized SELECT in the store's dialect.
func (s *SQLStore) buildQuery(f alert.Filter, now time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		op := "="
		if col == "ingested_at" {
			op = ">="
		}
		where = append(where, fmt.Sprintf("%s %s %s", col, op, s.dialect.placeholder(len(args))))
	}

	if f.Severity != "" {
		add("severity", f.Severity)
	}
	if f.Rule != "" {
		add("rule", f.Rule)
	}
	if f.ScanID != "" {
		add("scan_id", f.ScanID)
	}
	if cutoff, ok := f.Cutoff(now); ok {
		add("ingested_at", cutoff.UnixNano())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, ingested_at, doc FROM %s", s.table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ingested_at DESC, id ASC")
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
	}
	return b.String(), args
}

func (s *SQLStore) Close(context.Context) error {
	if err := s.db.Close(); err != nil {
		return wrapErr("close", err)
	}
	return nil
}
