package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParsedCSV is the raw, unvalidated result of parsing a CSV upload.
type ParsedCSV struct {
	Headers []string
	Rows    [][]string
}

// ParseCSV implements spec.md §4.7 step 1 and the CSV input contract in
// §6: delimiter auto-detected as ',' or ';' from the first non-empty line
// (the delimiter that splits it into more fields wins, mirroring the
// teacher's calculateTableScore column-count-signal approach); UTF-8
// preferred, falling back to fallbackEncoding on decode error; a leading
// BOM is tolerated and stripped; rowLimit bounds row count to guard memory.
func ParseCSV(data []byte, fallbackEncoding string, rowLimit int) (*ParsedCSV, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	text, err := decodeText(data, fallbackEncoding)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindParseFailed, "csv decode", err)
	}

	delimiter := detectDelimiter(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindParseFailed, "csv parse", err)
	}
	if len(records) == 0 {
		return nil, coreerr.New(coreerr.KindParseFailed, "csv has no rows")
	}

	headers := records[0]
	rows := records[1:]
	if len(rows) > rowLimit {
		return nil, coreerr.New(coreerr.KindParseTooLarge, "row count exceeds configured ingest_row_limit")
	}

	return &ParsedCSV{Headers: headers, Rows: rows}, nil
}

// decodeText returns data as UTF-8 text, falling back to the configured
// Latin-based encoding when data isn't valid UTF-8.
func decodeText(data []byte, fallbackEncoding string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	enc := encodingByName(fallbackEncoding)
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func encodingByName(name string) *charmap.Charmap {
	switch strings.ToLower(name) {
	case "latin1", "iso-8859-1", "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		return charmap.ISO8859_1
	}
}

// detectDelimiter scores ',' and ';' by how many fields they split the
// first non-empty line into, preferring whichever yields more columns (the
// same "consistent column count wins" heuristic the teacher's
// calculateTableScore applies to distinguish CSV from prose).
func detectDelimiter(text string) rune {
	firstLine := ""
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			firstLine = line
			break
		}
	}

	commaFields := len(strings.Split(firstLine, ","))
	semicolonFields := len(strings.Split(firstLine, ";"))

	if semicolonFields > commaFields {
		return ';'
	}
	return ','
}
