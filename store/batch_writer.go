package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams training rows straight into a parquet file, one
// game at a time, so a long-running generator never holds a whole batch
// in memory. The file is written under outDir/tmp and only renamed into
// outDir by Finalize, so readers never observe a partial batch.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TrainingRow]

	games int
	rows  int
}

// NewBatchWriter opens a fresh timestamped batch file under outDir/tmp.
func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	if err := os.MkdirAll(filepath.Join(outDir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	b := &BatchWriter{
		tmpPath: filepath.Join(outDir, "tmp", name),
		outPath: filepath.Join(outDir, name),
	}

	f, err := os.OpenFile(b.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	b.file = f
	b.writer = parquet.NewGenericWriter[TrainingRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("features"),
	)
	b.writer.SetKeyValueMetadata("schema", SchemaVersion)
	return b, nil
}

// Games reports how many games this batch holds so far.
func (b *BatchWriter) Games() int { return b.games }

// Rows reports how many rows this batch holds so far.
func (b *BatchWriter) Rows() int { return b.rows }

// WriteGame appends one finished game's rows to the batch.
func (b *BatchWriter) WriteGame(rows []TrainingRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return err
	}
	b.games++
	b.rows += len(rows)
	return nil
}

// Finalize closes the parquet writer and renames the file from tmp/
// into the output directory. An empty batch is deleted instead, with
// outPath returned empty.
func (b *BatchWriter) Finalize() (outPath string, rows int, games int, err error) {
	if b.writer == nil {
		return "", 0, 0, nil
	}

	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	if err := b.file.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	b.file = nil
	if closeErr != nil {
		return "", 0, 0, fmt.Errorf("close parquet batch: %w", closeErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, b.games, nil
}
