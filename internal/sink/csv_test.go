package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pricefeed/webcrawler/internal/crawler"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkWritesHeaderAndRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.csv")
	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Emit(ctx, crawler.Product{Name: "Boots", Price: "$59.99", Link: "https://example.com/item/a"}))
	require.NoError(t, sink.Emit(ctx, crawler.Product{Name: "Sandals, Red", Price: "$19.99", Link: "https://example.com/item/b"}))
	require.NoError(t, sink.Close(ctx))

	rows := readCSV(t, path)
	require.Equal(t, [][]string{
		{"name", "price", "link"},
		{"Boots", "$59.99", "https://example.com/item/a"},
		{"Sandals, Red", "$19.99", "https://example.com/item/b"},
	}, rows)
}

func TestCSVSinkHeaderSurvivesEmptyRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.csv")
	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	rows := readCSV(t, path)
	require.Equal(t, [][]string{{"name", "price", "link"}}, rows)
}

func TestCSVSinkFlushesPerRecord(t *testing.T) {
	t.Parallel()

	// Partial results must be readable before Close, as if the run had been
	// aborted.
	path := filepath.Join(t.TempDir(), "partial.csv")
	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)
	defer sink.Close(context.Background())

	require.NoError(t, sink.Emit(context.Background(), crawler.Product{Name: "Boots", Price: "$59.99", Link: "https://example.com/a"}))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
}

func TestCSVSinkTruncatesExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0o644))

	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	rows := readCSV(t, path)
	require.Equal(t, [][]string{{"name", "price", "link"}}, rows)
}

func TestCSVSinkRejectsUnwritablePath(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSink(filepath.Join(t.TempDir(), "missing-dir", "out.csv"), nil)
	require.Error(t, err)
}

func TestCSVSinkEmitAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "closed.csv")
	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Close(ctx))
	require.NoError(t, sink.Close(ctx), "close is idempotent")
	require.Error(t, sink.Emit(ctx, crawler.Product{Name: "X", Price: "$1", Link: "https://example.com/"}))
}

func TestCSVSinkHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ctx.csv")
	sink, err := NewCSVSink(path, nil)
	require.NoError(t, err)
	defer sink.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, sink.Emit(ctx, crawler.Product{Name: "X", Price: "$1", Link: "https://example.com/"}))
}
