package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	cause := errors.New("Catalog Error: Table with name r does not exist!")
	err := fmt.Errorf("drop table: %w", Duckdb("DROP TABLE \"r\"", cause))

	assert.True(t, errors.Is(err, ErrDuckdb))
	assert.False(t, errors.Is(err, ErrLakefs))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindDuckdb, KindOf(err))
	assert.Contains(t, err.Error(), "duckdb error")
}

func TestNoFilesAvailable(t *testing.T) {
	err := fmt.Errorf("seed: %w", ErrNoFilesAvailable)

	assert.True(t, errors.Is(err, ErrNoFilesAvailable))
	assert.True(t, errors.Is(err, ErrUnknown))
	assert.False(t, errors.Is(Unknown("other", nil), ErrNoFilesAvailable))
	assert.EqualError(t, ErrNoFilesAvailable, "unknown error: no files in lakefs")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("main/x.parquet", nil)))
}
