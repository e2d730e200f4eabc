package lakefs

import (
	"errors"
	"testing"
	"time"

	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	f, err := CompileFilter(`Path endsWith ".parquet" && SizeBytes > 0`)
	require.NoError(t, err)

	ok, err := f.Match(model.ObjectItem{Path: "a.parquet", SizeBytes: 10, Mtime: time.Now()})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match(model.ObjectItem{Path: "a.parquet"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.Match(model.ObjectItem{Path: "_SUCCESS", SizeBytes: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyFilterMatchesAll(t *testing.T) {
	f, err := CompileFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)
	ok, err := f.Match(model.ObjectItem{Path: "anything"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", f.String())
}

func TestInvalidFilter(t *testing.T) {
	_, err := CompileFilter(`Path +`)
	assert.True(t, errors.Is(err, status.ErrValidation))

	_, err = CompileFilter(`SizeBytes`)
	assert.True(t, errors.Is(err, status.ErrValidation))
}
