// Package store persists self-play training data as parquet batches.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const SchemaVersion = "azul_training_row_v1"

// TrainingRow is a single supervised training sample: one drafting
// decision from one self-play game.
//
// Features is the flat encoded state from the acting player's
// perspective (see executor/convert). Policy is the normalized visit
// distribution over policy slots. Value is the outcome target in
// [-1..1] from the acting player's perspective, back-filled once the
// game finishes.
type TrainingRow struct {
	GameID          string    `parquet:"game_id,dict"`
	Turn            int32     `parquet:"turn"`
	Player          int32     `parquet:"player"`
	Players         int32     `parquet:"players"`
	Round           int32     `parquet:"round"`
	EncodingVersion string    `parquet:"encoding_version,dict"`
	Features        []float32 `parquet:"features"`
	Policy          []float32 `parquet:"policy"`
	Value           float32   `parquet:"value"`
	Source          string    `parquet:"source,dict"`
	// ModelPath records which ONNX model generated this game, empty for
	// heuristic-evaluated games.
	ModelPath string `parquet:"model_path,dict,optional"`
}

// WriteGameParquet writes rows to outPath via a temp file and atomic
// rename.
func WriteGameParquet(outPath string, rows []TrainingRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	// Feature blobs make useless page bounds; skip them.
	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("features"),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// WriteBatchParquetAtomic writes a timestamped batch file into
// outDir/tmp and atomically moves it into outDir, so readers never
// observe partially-written parquet files. Returns the final path.
func WriteBatchParquetAtomic(outDir string, rows []TrainingRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("features"),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}

	return finalPath, nil
}

// ReadBatchParquet loads every row from a batch file. Used by tests and
// dataset inspection tooling.
func ReadBatchParquet(path string) ([]TrainingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	reader := parquet.NewGenericReader[TrainingRow](pf)
	defer reader.Close()

	rows := make([]TrainingRow, 0, reader.NumRows())
	buf := make([]TrainingRow, 256)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
}
