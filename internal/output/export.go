package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ExportJSON writes v as indented JSON to path. A path ending in .zst is
// zstd-compressed on the way out.
func ExportJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	data = append(data, '\n')

	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("failed to create compressor: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		_ = enc.Close()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export to %s: %w", path, err)
	}
	return nil
}

// ReadExport reads an export written by ExportJSON into v, transparently
// decompressing .zst files.
func ReadExport(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read export from %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("failed to create decompressor: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode export: %w", err)
	}
	return nil
}
