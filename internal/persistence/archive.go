package persistence

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/storytown/internal/story"
)

// ExportArchive writes a story record as zstd-compressed JSON. The archive
// is self-contained; importing it on another instance recreates the story.
func ExportArchive(w io.Writer, rec story.Record) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create archive writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(rec); err != nil {
		zw.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}

// ImportArchive reads a story record from a zstd-compressed JSON archive.
func ImportArchive(r io.Reader) (story.Record, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return story.Record{}, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var rec story.Record
	if err := json.NewDecoder(zr).Decode(&rec); err != nil {
		return story.Record{}, fmt.Errorf("decode archive: %w", err)
	}
	rec.Scene.Structure.PruneConnections()
	return rec, nil
}
