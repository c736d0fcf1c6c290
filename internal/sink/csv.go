// Package sink provides Sink implementations that persist extracted product
// records: a CSV file sink (the default) and a Postgres sink.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/pricefeed/webcrawler/internal/crawler"
)

var csvHeader = []string{"name", "price", "link"}

// CSVSink streams product records into a delimiter-separated file, one row
// per product with a header row. The file is created fresh at run start and
// each record is flushed on write so partial results survive an abort.
// CSVSink serializes internally and is safe for concurrent Emit calls.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	closed bool
	logger *zap.Logger
}

// NewCSVSink creates (or truncates) the file at path and writes the header.
// An unwritable path is a setup failure and surfaces immediately.
func NewCSVSink(path string, logger *zap.Logger) (*CSVSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file %s: %w", path, err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	return &CSVSink{
		file:   file,
		writer: writer,
		logger: logger,
	}, nil
}

// Emit appends one record. A write failure is returned to the caller and is
// expected to abort the crawl.
func (s *CSVSink) Emit(ctx context.Context, record crawler.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("csv sink is closed")
	}
	if err := s.writer.Write([]string{record.Name, record.Price, record.Link}); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush csv record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Safe to call more than once.
func (s *CSVSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("flush csv output: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close csv output: %w", err)
	}
	return nil
}
