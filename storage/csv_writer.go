package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

var csvHeader = []string{
	"url", "status", "error_kind", "error", "title", "price", "currency", "address",
	"bedrooms", "bathrooms", "parking", "built_area", "land_area", "extras", "images",
	"extracted_at",
}

// CSVWriter writes batch extraction results to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per result. Absent optional values are empty cells;
// extras and images are joined with " | ".
func (c *CSVWriter) Write(results []*models.ExtractionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range results {
		if err := c.writer.Write(resultRow(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func resultRow(r *models.ExtractionResult) []string {
	row := make([]string, len(csvHeader))
	row[0] = r.URL
	row[15] = r.ExtractedAt.Format(time.RFC3339)
	if !r.OK() {
		row[1], row[2], row[3] = "error", r.ErrorKind, r.Error
		return row
	}

	p := r.Payload
	row[1] = "ok"
	row[4] = p.Title
	row[5] = formatFloat(p.Price)
	if p.Currency != nil {
		row[6] = *p.Currency
	}
	row[7] = p.Address
	row[8] = formatInt(p.Bedrooms)
	row[9] = formatInt(p.Bathrooms)
	row[10] = formatInt(p.Parking)
	row[11] = formatFloat(p.BuiltArea)
	row[12] = formatFloat(p.LandArea)
	row[13] = strings.Join(p.Extras, " | ")
	row[14] = strings.Join(p.Images, " | ")
	return row
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
