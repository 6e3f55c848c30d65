package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"attraction-insights/models"
)

var (
	// ErrUnreadableSource means the source could not be decoded in any
	// supported encoding or is not a well-formed table.
	ErrUnreadableSource = errors.New("unreadable source")
	// ErrUnsupportedFormat means the file extension is neither .csv nor .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported source format")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExpandSources replaces every directory in paths by the .csv and .xlsx
// files it contains, sorted by name. Plain files are kept as given.
func ExpandSources(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("source dir %q: %w", p, err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".csv", ".xlsx":
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}

// ReadRecords loads one .csv or .xlsx file into raw records keyed by the
// header row.
func ReadRecords(path string) ([]models.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		recs, err := DecodeCSV(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return recs, nil
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		defer f.Close()
		recs, err := DecodeXLSX(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// DecodeCSV parses CSV bytes. UTF-8 (with or without BOM) is tried first and
// GB18030 second; if neither yields clean text the source is unreadable.
func DecodeCSV(data []byte) ([]models.RawRecord, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	return rowsToRecords(rows), nil
}

func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: gb18030: %v", ErrUnreadableSource, err)
	}
	// The decoder substitutes U+FFFD for byte sequences it cannot map.
	if !utf8.Valid(decoded) || bytes.ContainsRune(decoded, utf8.RuneError) {
		return nil, fmt.Errorf("%w: neither utf-8 nor gb18030", ErrUnreadableSource)
	}
	return decoded, nil
}

// DecodeXLSX reads the first sheet of a workbook.
func DecodeXLSX(r io.Reader) ([]models.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	return rowsToRecords(rows), nil
}

// rowsToRecords maps data rows onto the header row. Blank rows are skipped
// and short rows leave the missing columns out.
func rowsToRecords(rows [][]string) []models.RawRecord {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(models.RawRecord, len(header))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
