package dicom

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mwantia/dicomweb/data"
	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	preambleLength = 128
	magicWord      = "DICM"
)

// TagTable gives typed access to the attributes of one decoded object.
type TagTable struct {
	dataset dcm.Dataset
}

// Decode parses a Part 10 object. Pixel data is skipped, only attributes are kept.
// Any parser failure is reported as data.ErrDecode.
func Decode(r io.Reader, size int64) (table *TagTable, err error) {
	// The parser may panic on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = newDecodeError(fmt.Errorf("parser panic: %v", r))
		}
	}()

	// Only Part 10 objects are accepted: 128 byte preamble followed by "DICM"
	header := make([]byte, preambleLength+len(magicWord))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, newDecodeError(err)
	}
	if string(header[preambleLength:]) != magicWord {
		return nil, newDecodeError(fmt.Errorf("missing '%s' magic word", magicWord))
	}

	dataset, err := dcm.Parse(io.MultiReader(bytes.NewReader(header), r), size, nil, dcm.SkipPixelData())
	if err != nil {
		return nil, newDecodeError(err)
	}

	return &TagTable{dataset: dataset}, nil
}

// DecodeBytes is Decode over an in-memory object.
func DecodeBytes(content []byte) (*TagTable, error) {
	return Decode(bytes.NewReader(content), int64(len(content)))
}

// NewTagTable wraps an already parsed dataset.
func NewTagTable(dataset dcm.Dataset) *TagTable {
	return &TagTable{dataset: dataset}
}

// Lookup returns the attribute rendered as a string. String values are tried
// first, integer values are converted to their decimal form. Multiple values
// are joined with a backslash. Padding is removed.
func (t *TagTable) Lookup(tg tag.Tag) (string, bool) {
	if value, ok := t.String(tg); ok {
		return value, true
	}
	if value, ok := t.Int(tg); ok {
		return strconv.Itoa(value), true
	}
	return "", false
}

// String returns a string-typed attribute.
func (t *TagTable) String(tg tag.Tag) (string, bool) {
	element, err := t.dataset.FindElementByTag(tg)
	if err != nil || element.Value == nil {
		return "", false
	}

	values, ok := element.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return "", false
	}

	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		trimmed = append(trimmed, trimPadding(value))
	}

	return strings.Join(trimmed, `\`), true
}

// Int returns the first value of an integer-typed attribute.
func (t *TagTable) Int(tg tag.Tag) (int, bool) {
	element, err := t.dataset.FindElementByTag(tg)
	if err != nil || element.Value == nil {
		return 0, false
	}

	values, ok := element.Value.GetValue().([]int)
	if !ok || len(values) == 0 {
		return 0, false
	}

	return values[0], true
}

// Len returns the number of attributes in the table.
func (t *TagTable) Len() int {
	return len(t.dataset.Elements)
}

func trimPadding(value string) string {
	return strings.Trim(value, " \x00")
}

func newDecodeError(cause error) error {
	return fmt.Errorf("%w: %w", data.ErrDecode, cause)
}
