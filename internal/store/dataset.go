// Package store persists the jersey dataset: a JSON file replaced atomically
// on every checkpoint, optionally mirrored to Google Cloud Storage.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const unexpectedEOF = "unexpected end of JSON input"

// Dataset is the on-disk shape of the jersey file.
type Dataset struct {
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	LastPage   *int             `json:"last_page,omitempty"`
	Jerseys    []crawler.Jersey `json:"jerseys"`
}

// DecodeError locates malformed JSON in the dataset file. Line and Column
// are 1-based.
type DecodeError struct {
	Line   int
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (line %d, column %d)", e.Err, e.Line, e.Column)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDataset snapshots state into its file representation.
func NewDataset(state crawler.CrawlState) Dataset {
	jerseys := state.Jerseys
	if jerseys == nil {
		jerseys = []crawler.Jersey{}
	}
	lastPage := state.LastCompletedPage
	return Dataset{
		Total:      len(jerseys),
		TotalPages: state.TotalPages,
		LastPage:   &lastPage,
		Jerseys:    jerseys,
	}
}

// State converts the dataset back into crawl progress. Files written without
// last_page resume on the page of their final jersey.
func (d Dataset) State() crawler.CrawlState {
	state := crawler.CrawlState{
		Jerseys:    d.Jerseys,
		TotalPages: d.TotalPages,
	}
	switch {
	case d.LastPage != nil:
		state.LastCompletedPage = *d.LastPage
	case len(d.Jerseys) > 0:
		state.LastCompletedPage = d.Jerseys[len(d.Jerseys)-1].Page - 1
	}
	if state.LastCompletedPage < 0 {
		state.LastCompletedPage = 0
	}
	return state
}

// ReadDataset loads the dataset at path. A missing file yields an error
// matching fs.ErrNotExist; malformed JSON yields a *DecodeError.
func ReadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return DecodeDataset(data)
}

// DecodeDataset parses dataset bytes, tolerating a leading UTF-8 BOM.
func DecodeDataset(data []byte) (Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, newDecodeError(data, err)
	}
	return ds, nil
}

// EncodeDataset renders the dataset as indented JSON without HTML escaping.
func EncodeDataset(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

func newDecodeError(data []byte, err error) error {
	offset := int64(len(data))
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr) && syntaxErr.Error() == unexpectedEOF:
		// Truncated input points just past the last byte.
		offset = syntaxErr.Offset
	case errors.As(err, &syntaxErr):
		// Offset counts the offending byte.
		offset = syntaxErr.Offset - 1
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	line, column := position(data, offset)
	return &DecodeError{Line: line, Column: column, Err: err}
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line := bytes.Count(prefix, []byte("\n")) + 1
	column := len(prefix) - bytes.LastIndexByte(prefix, '\n')
	return line, column
}
