package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gigapi/compactor/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Session is the single DuckDB handle shared by the compactor and any
// administrative caller. Every statement runs under the session mutex.
type Session struct {
	mtx sync.Mutex
	db  *sql.DB
	log *zap.Logger
}

// NewSession opens the database at path and runs the setup statements in
// order. Any failure here is reported as an Init error.
func NewSession(ctx context.Context, path string, log *zap.Logger, setup ...string) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := ConnectDuckDB(path)
	if err != nil {
		return nil, status.Init("open "+path, err)
	}
	// settings applied with SET must be seen by every statement
	conn.SetMaxOpenConns(1)

	s := &Session{db: conn, log: log}
	for i, query := range setup {
		// setup carries credentials: neither the statement nor its literals may reach the error
		if _, err := conn.ExecContext(ctx, query); err != nil {
			conn.Close()
			return nil, status.Init(fmt.Sprintf("setup statement %d", i+1),
				status.Duckdb("", errors.New(redactLiterals(err.Error()))))
		}
	}
	log.Info("duckdb session ready", zap.String("path", path), zap.Int("setup_statements", len(setup)))
	return s, nil
}

// Exec runs an arbitrary statement under the session lock.
func (s *Session) Exec(ctx context.Context, query string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.exec(ctx, query)
}

func (s *Session) exec(ctx context.Context, query string) error {
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return status.Duckdb(query, err)
	}
	return nil
}

// CreateTableFromRemoteFile creates table from all rows of the parquet file at path.
func (s *Session) CreateTableFromRemoteFile(ctx context.Context, table, path string) error {
	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM read_parquet(%s)",
		quoteIdent(table), quoteLiteral(path))
	s.log.Debug("create table", zap.String("table", table), zap.String("path", path))
	return s.Exec(ctx, query)
}

// AppendRemoteFile inserts all rows of the parquet file at path into table.
// Columns are matched by position.
func (s *Session) AppendRemoteFile(ctx context.Context, table, path string) error {
	query := fmt.Sprintf("INSERT INTO %s SELECT * FROM read_parquet(%s)",
		quoteIdent(table), quoteLiteral(path))
	s.log.Debug("append file", zap.String("table", table), zap.String("path", path))
	return s.Exec(ctx, query)
}

// ExportTable writes table to out as parquet. Exporting an empty table is an error.
func (s *Session) ExportTable(ctx context.Context, table, out string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	rows, err := s.rowCount(ctx, table)
	if err != nil {
		return err
	}
	if rows == 0 {
		return status.Duckdb(fmt.Sprintf("table %s is empty", table), nil)
	}
	query := fmt.Sprintf("COPY %s TO %s (FORMAT 'parquet')", quoteIdent(table), quoteLiteral(out))
	s.log.Debug("export table", zap.String("table", table), zap.String("out", out), zap.Int64("rows", rows))
	return s.exec(ctx, query)
}

// DropTable removes table. Dropping a missing table is an error.
func (s *Session) DropTable(ctx context.Context, table string) error {
	return s.Exec(ctx, "DROP TABLE "+quoteIdent(table))
}

func (s *Session) DropTableIfExists(ctx context.Context, table string) error {
	return s.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table))
}

func (s *Session) TableExists(ctx context.Context, table string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM duckdb_tables() WHERE table_name = ?", table).Scan(&n)
	if err != nil {
		return false, status.Duckdb("lookup table "+table, err)
	}
	return n > 0, nil
}

func (s *Session) RowCount(ctx context.Context, table string) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.rowCount(ctx, table)
}

func (s *Session) rowCount(ctx context.Context, table string) (int64, error) {
	query := "SELECT count(*) FROM " + quoteIdent(table)
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, status.Duckdb(query, err)
	}
	return n, nil
}

// Close checkpoints and closes the database.
func (s *Session) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, err := s.db.Exec("CHECKPOINT")
	return multierr.Append(err, s.db.Close())
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(val string) string {
	return "'" + strings.ReplaceAll(val, "'", "''") + "'"
}

var quotedLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)

// redactLiterals drops the query excerpt DuckDB appends to errors and masks quoted literals.
func redactLiterals(msg string) string {
	if i := strings.Index(msg, "\nLINE "); i >= 0 {
		msg = msg[:i]
	}
	return quotedLiteral.ReplaceAllString(msg, "'***'")
}
