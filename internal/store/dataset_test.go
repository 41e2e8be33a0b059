package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
)

func TestDatasetState(t *testing.T) {
	t.Parallel()

	three := 3
	tests := []struct {
		name     string
		ds       Dataset
		wantLast int
	}{
		{name: "last_page wins", ds: Dataset{LastPage: &three, Jerseys: []crawler.Jersey{{Page: 7}}}, wantLast: 3},
		{name: "derived from last jersey", ds: Dataset{Jerseys: []crawler.Jersey{{Page: 2}, {Page: 5}}}, wantLast: 4},
		{name: "jersey on first page", ds: Dataset{Jerseys: []crawler.Jersey{{Page: 0}}}, wantLast: 0},
		{name: "empty", ds: Dataset{}, wantLast: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantLast, tt.ds.State().LastCompletedPage)
		})
	}
}

func TestEncodeDecodeKeepsFileShape(t *testing.T) {
	t.Parallel()

	state := crawler.CrawlState{
		Jerseys: []crawler.Jersey{
			crawler.NewJersey("Retro <1998> & Home", "https://huahetian.x.yupoo.com/albums/1",
				[]string{"https://photo.yupoo.com/a/big.jpg"}, "球衣", 1),
		},
		LastCompletedPage: 1,
		TotalPages:        59,
	}
	data, err := EncodeDataset(NewDataset(state))
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, `"total": 1`)
	assert.Contains(t, raw, `"total_pages": 59`)
	assert.Contains(t, raw, `"last_page": 1`)
	assert.Contains(t, raw, `"title": "Retro <1998> & Home"`)
	assert.Contains(t, raw, `"description": "球衣"`)
	assert.Contains(t, raw, "\n  \"jerseys\": [")

	ds, err := DecodeDataset(data)
	require.NoError(t, err)
	if diff := cmp.Diff(state, ds.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEmptyStateWritesEmptyList(t *testing.T) {
	t.Parallel()
	data, err := EncodeDataset(NewDataset(crawler.CrawlState{}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"jerseys": []`)
}

func TestDecodeDatasetToleratesBOM(t *testing.T) {
	t.Parallel()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"total":0,"jerseys":[]}`)...)
	ds, err := DecodeDataset(data)
	require.NoError(t, err)
	assert.Empty(t, ds.Jerseys)
	assert.Nil(t, ds.LastPage)
}

func TestDecodeDatasetReportsLocation(t *testing.T) {
	t.Parallel()

	_, err := DecodeDataset([]byte("{\n  \"total\": 1,\n  \"jerseys\": [x]\n}"))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 3, decodeErr.Line)
	assert.Equal(t, 15, decodeErr.Column)
	assert.Contains(t, decodeErr.Error(), "line 3, column 15")
}

func TestDecodeDatasetTruncatedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		line, col int
	}{
		{name: "open brace", input: "{", line: 1, col: 2},
		{name: "after comma", input: "{\n  \"total\": 1,", line: 2, col: 14},
		{name: "trailing newline", input: "{\n", line: 2, col: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeDataset([]byte(tc.input))
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tc.line, decodeErr.Line)
			assert.Equal(t, tc.col, decodeErr.Column)
		})
	}
}

func TestPosition(t *testing.T) {
	t.Parallel()
	data := []byte("ab\ncd\nef")
	tests := []struct {
		offset    int64
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{7, 3, 2},
		{100, 3, 3},
		{-4, 1, 1},
	}
	for _, tt := range tests {
		line, col := position(data, tt.offset)
		assert.Equal(t, tt.line, line, "offset %d", tt.offset)
		assert.Equal(t, tt.col, col, "offset %d", tt.offset)
	}
}

func TestReadDatasetMissingFile(t *testing.T) {
	t.Parallel()
	_, err := ReadDataset(filepath.Join(t.TempDir(), "missing.json"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadDatasetFromDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "jerseys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"total":1,"total_pages":59,"last_page":2,"jerseys":[{"title":"A","url":"u","images":["i"],"thumbnail":"i","description":"","page":2}]}`), 0o600))

	ds, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Jerseys, 1)
	assert.Equal(t, "A", ds.Jerseys[0].Title)
	assert.Equal(t, 2, *ds.LastPage)
}
