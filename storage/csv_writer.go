package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"attraction-insights/models"
)

// RawHeader is the column order of raw scrape exports.
var RawHeader = []string{
	models.FieldName, models.FieldLink, models.FieldAddress, models.FieldDescription,
	models.FieldOpeningHours, models.FieldImageURL, models.FieldRating, models.FieldDuration,
	models.FieldSeason, models.FieldPrice, models.FieldTips, models.FieldLongitude,
	models.FieldLatitude, models.FieldSource,
}

// Cleaned exports carry the raw columns, so they can be re-imported, plus
// the derived location.
const (
	columnProvince = "省份"
	columnCity     = "城市"
	columnDistrict = "区县"
)

var cleanHeader = append(append([]string{}, RawHeader...), columnProvince, columnCity, columnDistrict)

// CSVWriter writes records to a UTF-8 CSV file with a BOM so spreadsheet
// tools detect the encoding. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	header []string
}

// NewRawCSVWriter creates (or truncates) a raw-record CSV at path.
func NewRawCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, RawHeader)
}

// NewCleanCSVWriter creates (or truncates) a cleaned-record CSV at path.
func NewCleanCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, cleanHeader)
}

// newCSVWriter creates the file, writes the BOM and the header row.
// Intermediate directories are created automatically.
func newCSVWriter(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if _, err := f.Write(utf8BOM); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, header: header}, nil
}

// WriteRaw appends raw records in RawHeader order.
func (c *CSVWriter) WriteRaw(records []models.RawRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := make([]string, len(c.header))
		for i, col := range c.header {
			row[i] = r.Get(col)
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// WriteAttractions appends cleaned records.
func (c *CSVWriter) WriteAttractions(records []*models.Attraction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range records {
		raw := a.ToRaw()
		raw[columnProvince] = a.Province
		raw[columnCity] = a.City
		raw[columnDistrict] = a.District

		row := make([]string, len(c.header))
		for i, col := range c.header {
			row[i] = raw[col]
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
