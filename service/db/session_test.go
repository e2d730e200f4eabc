package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gigapi/compactor/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeParquet(t *testing.T, s *Session, path string, rows int) {
	t.Helper()
	err := s.Exec(context.Background(), fmt.Sprintf(
		"COPY (SELECT range AS id, 'row_' || range AS name FROM range(%d)) TO %s (FORMAT 'parquet')",
		rows, quoteLiteral(path)))
	require.NoError(t, err)
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.parquet"), filepath.Join(dir, "b.parquet")
	writeParquet(t, s, a, 3)
	writeParquet(t, s, b, 5)

	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "r", a))
	n, err := s.RowCount(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, s.AppendRemoteFile(ctx, "r", b))
	n, err = s.RowCount(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	out := filepath.Join(dir, "file_2.parquet")
	require.NoError(t, s.ExportTable(ctx, "r", out))
	require.NoError(t, s.DropTable(ctx, "r"))

	exists, err := s.TableExists(ctx, "r")
	require.NoError(t, err)
	assert.False(t, exists)

	err = s.AppendRemoteFile(ctx, "r", a)
	assert.True(t, errors.Is(err, status.ErrDuckdb))

	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "check", out))
	n, err = s.RowCount(ctx, "check")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
}

func TestCreateTableTwiceFails(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	a := filepath.Join(t.TempDir(), "a.parquet")
	writeParquet(t, s, a, 1)

	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "r", a))
	err := s.CreateTableFromRemoteFile(ctx, "r", a)
	assert.True(t, errors.Is(err, status.ErrDuckdb))

	require.NoError(t, s.DropTableIfExists(ctx, "r"))
	require.NoError(t, s.DropTableIfExists(ctx, "r"))
	assert.True(t, errors.Is(s.DropTable(ctx, "r"), status.ErrDuckdb))
}

func TestUnreadableAndMismatchedFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	dir := t.TempDir()

	err := s.CreateTableFromRemoteFile(ctx, "r", filepath.Join(dir, "missing.parquet"))
	assert.True(t, errors.Is(err, status.ErrDuckdb))

	a := filepath.Join(dir, "a.parquet")
	writeParquet(t, s, a, 2)
	other := filepath.Join(dir, "other.parquet")
	require.NoError(t, s.Exec(ctx, fmt.Sprintf(
		"COPY (SELECT 1 AS x, 2 AS y, 3 AS z) TO %s (FORMAT 'parquet')", quoteLiteral(other))))

	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "r", a))
	err = s.AppendRemoteFile(ctx, "r", other)
	assert.True(t, errors.Is(err, status.ErrDuckdb))
}

func TestExportEmptyOrMissingTableFails(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	dir := t.TempDir()

	err := s.ExportTable(ctx, "nope", filepath.Join(dir, "x.parquet"))
	assert.True(t, errors.Is(err, status.ErrDuckdb))

	require.NoError(t, s.Exec(ctx, "CREATE TABLE empty_t (id BIGINT)"))
	err = s.ExportTable(ctx, "empty_t", filepath.Join(dir, "y.parquet"))
	assert.True(t, errors.Is(err, status.ErrDuckdb))
}

func TestExportIdempotence(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.parquet")
	writeParquet(t, s, a, 4)
	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "r", a))

	first, second := filepath.Join(dir, "file_1.parquet"), filepath.Join(dir, "file_2.parquet")
	require.NoError(t, s.ExportTable(ctx, "r", first))
	require.NoError(t, s.ExportTable(ctx, "r", second))

	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "first", first))
	require.NoError(t, s.CreateTableFromRemoteFile(ctx, "second", second))
	n1, err := s.RowCount(ctx, "first")
	require.NoError(t, err)
	n2, err := s.RowCount(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	var diff int64
	err = s.db.QueryRow(`SELECT count(*) FROM (
		SELECT column_name, data_type FROM information_schema.columns WHERE table_name = 'first'
		EXCEPT
		SELECT column_name, data_type FROM information_schema.columns WHERE table_name = 'second')`).Scan(&diff)
	require.NoError(t, err)
	assert.Zero(t, diff)
}

func TestStatementsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	require.NoError(t, s.Exec(ctx, "CREATE TABLE counter (id BIGINT)"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Exec(ctx, fmt.Sprintf("INSERT INTO counter VALUES (%d)", i)))
		}(i)
	}
	wg.Wait()

	n, err := s.RowCount(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(16), n)
}

func TestSetupFailureIsInit(t *testing.T) {
	_, err := NewSession(context.Background(), "", nil, "SET definitely_not_a_setting=1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInit))
}

func TestSetupFailureHidesSecrets(t *testing.T) {
	_, err := NewSession(context.Background(), "", nil,
		"SELECT 1",
		"SET s3_secret_access_key='topsecret'; SELECT nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInit))
	assert.True(t, errors.Is(err, status.ErrDuckdb))
	assert.Contains(t, err.Error(), "setup statement 2")
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestRedactLiterals(t *testing.T) {
	assert.Equal(t, "near '***' at '***'", redactLiterals("near 'it''s' at 'x'"))
	assert.Equal(t, "no literals", redactLiterals("no literals"))
	assert.Equal(t, "Binder Error: column not found", redactLiterals("Binder Error: column not found\nLINE 1: SET k='v'; SELECT nope"))
}

func TestS3Setup(t *testing.T) {
	stmts := S3Setup("localhost:8000", "AKIA", "it's-secret")
	assert.Equal(t, []string{
		"INSTALL httpfs",
		"LOAD httpfs",
		"SET s3_endpoint='localhost:8000'",
		"SET s3_region='us-east-1'",
		"SET s3_use_ssl=false",
		"SET s3_url_style='path'",
		"SET s3_access_key_id='AKIA'",
		"SET s3_secret_access_key='it''s-secret'",
	}, stmts)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"my""table"`, quoteIdent(`my"table`))
	assert.Equal(t, `'s3://r/o''k.parquet'`, quoteLiteral("s3://r/o'k.parquet"))
}
