package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSink writes the dataset as a CSV file. An existing file at the
// same path is overwritten.
type CSVSink struct {
	file *os.File
	w    *csv.Writer
}

// NewCSVSink creates or truncates the destination file.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.UseCRLF = true
	return &CSVSink{file: f, w: w}, nil
}

func (s *CSVSink) WriteHeader(columns []string) error {
	return s.w.Write(columns)
}

func (s *CSVSink) WriteRow(row []string) error {
	return s.w.Write(row)
}

func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
