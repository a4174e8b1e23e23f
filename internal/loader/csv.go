package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVSheetName is the table name given to CSV input.
const CSVSheetName = "main"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV decodes data to UTF-8, guesses the delimiter and reads every
// record into a single sheet.
func readCSV(data []byte, limits Limits) (rawSheet, string, error) {
	text, encoding, err := decodeText(data)
	if err != nil {
		return rawSheet{}, "", err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	budget := &rowBudget{max: limits.MaxRows}
	var grid [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rawSheet{}, "", newLoadError(KindCorrupt, "", fmt.Errorf("csv: %w", err))
		}
		if blankRow(record) {
			continue
		}
		if err := budget.take(); err != nil {
			return rawSheet{}, "", err
		}
		grid = append(grid, record)
	}

	return rawSheet{name: CSVSheetName, rows: grid}, encoding, nil
}

// decodeText returns data as UTF-8 together with the detected charset.
func decodeText(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return string(data[len(utf8BOM):]), "UTF-8", nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), data, "UTF-16LE")
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), data, "UTF-16BE")
	}

	if utf8.Valid(data) {
		return string(data), "UTF-8", nil
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return "", "", newLoadError(KindEncoding, "", fmt.Errorf("detect charset: %w", err))
	}

	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return "", "", newLoadError(KindEncoding, "", fmt.Errorf("charset %q: %w", result.Charset, err))
	}

	return decodeWith(enc.NewDecoder(), data, result.Charset)
}

func decodeWith(t transform.Transformer, data []byte, charset string) (string, string, error) {
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", "", newLoadError(KindEncoding, "", fmt.Errorf("decode %s: %w", charset, err))
	}
	if !utf8.Valid(out) {
		return "", "", newLoadError(KindEncoding, "", fmt.Errorf("decode %s: invalid output", charset))
	}
	return string(out), charset, nil
}

var delimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate that occurs most often outside quotes
// in the first non-empty line. Comma wins ties and the empty case.
func sniffDelimiter(text string) rune {
	var line string
	for _, l := range strings.SplitN(text, "\n", 20) {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
