// internal/storage/memory/export.go
package memory

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Export formats
const (
	FormatJSON       = "json"
	FormatJSONGz     = "json.gz"
	FormatMsgpack    = "msgpack"
	FormatMsgpackZst = "msgpack.zst"
)

// ExportVersion is written into every export file.
const ExportVersion = 1

// EpisodeExport is the root structure of an exported episode file
type EpisodeExport struct {
	Version int `json:"version" msgpack:"version"`
	EpisodeRecord
}

// export writes the episode to OutputDir in the configured format
func (b *Backend) export(record *EpisodeRecord) error {
	ext, err := extension(b.cfg.Format)
	if err != nil {
		return err
	}

	envID := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(record.Episode.EnvID)
	timestamp := record.Episode.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%04d_%s.%s", envID, record.Episode.ID, timestamp, ext)
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	data := EpisodeExport{Version: ExportVersion, EpisodeRecord: *record}
	if err := encode(f, b.cfg.Format, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	b.lastExportPath = outputPath
	return nil
}

func extension(format string) (string, error) {
	switch format {
	case FormatJSON, FormatJSONGz, FormatMsgpack, FormatMsgpackZst:
		return format, nil
	default:
		return "", fmt.Errorf("unknown export format: %s", format)
	}
}

func encode(w io.Writer, format string, data EpisodeExport) error {
	switch format {
	case FormatJSONGz:
		gzWriter := gzip.NewWriter(w)
		if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
			gzWriter.Close()
			return err
		}
		return gzWriter.Close()
	case FormatMsgpack:
		bw := bufio.NewWriter(w)
		if err := msgpack.NewEncoder(bw).Encode(data); err != nil {
			return err
		}
		return bw.Flush()
	case FormatMsgpackZst:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := msgpack.NewEncoder(zw).Encode(data); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	default:
		return json.NewEncoder(w).Encode(data)
	}
}

// ReadExport loads an exported episode, picking the decoder from the file extension.
func ReadExport(path string) (EpisodeExport, error) {
	var data EpisodeExport

	f, err := os.Open(path)
	if err != nil {
		return data, err
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(path, "."+FormatJSONGz):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return data, err
		}
		defer gzReader.Close()
		err = json.NewDecoder(gzReader).Decode(&data)
		return data, err
	case strings.HasSuffix(path, "."+FormatMsgpackZst):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return data, err
		}
		defer zr.Close()
		err = msgpack.NewDecoder(zr).Decode(&data)
		return data, err
	case strings.HasSuffix(path, "."+FormatMsgpack):
		err = msgpack.NewDecoder(bufio.NewReader(f)).Decode(&data)
		return data, err
	default:
		err = json.NewDecoder(f).Decode(&data)
		return data, err
	}
}
