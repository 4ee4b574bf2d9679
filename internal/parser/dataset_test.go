package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *DatasetLoader {
	return NewDatasetLoader(DatasetOptions{TempDir: t.TempDir()}, nil)
}

func TestDatasetLoader_ValuesUnchanged(t *testing.T) {
	loader := newTestLoader(t)
	csv := "name,score\nalice,01\nbob,2.50\ncarol,1e3\n"

	ds, err := loader.Load(context.Background(), "scores.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "scores.csv", ds.FileName)
	assert.Equal(t, []string{"name", "score"}, ds.Columns)
	require.Equal(t, 3, ds.RowCount())
	assert.Equal(t, [][]string{
		{"alice", "01"},
		{"bob", "2.50"},
		{"carol", "1e3"},
	}, ds.Rows)
}

func TestDatasetLoader_QuotedAndEmptyCells(t *testing.T) {
	loader := newTestLoader(t)
	csv := "author,title\n\"Smith, J\",\nDoe,\"Say \"\"hi\"\"\"\n"

	ds, err := loader.Load(context.Background(), "books.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Smith, J", ""},
		{"Doe", `Say "hi"`},
	}, ds.Rows)
}

func TestDatasetLoader_EmptyFile(t *testing.T) {
	loader := newTestLoader(t)

	_, err := loader.Load(context.Background(), "none.csv", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyDataset))
}
