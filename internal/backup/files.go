package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

const (
	filePrefix      = "inventory_"
	fileExt         = ".json"
	fileStampLayout = "20060102T150405Z"

	// MaxSnapshotBytes caps a snapshot read from a request or a file.
	MaxSnapshotBytes = 64 << 20

	ContentType = "application/json"
)

// FileInfo describes a snapshot file on disk.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// FileName is the name Export files are written under, e.g. inventory_20260304T153000Z.json.
func FileName(at time.Time) string {
	return filePrefix + at.UTC().Format(fileStampLayout) + fileExt
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Marshal is Encode into a byte slice.
func Marshal(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one snapshot, rejecting unknown fields and anything past
// MaxSnapshotBytes.
func Decode(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(io.LimitReader(r, MaxSnapshotBytes+1))
	dec.DisallowUnknownFields()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "snapshot is truncated or larger than the limit").
				WithDetails(map[string]any{"max_bytes": MaxSnapshotBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "snapshot is not valid JSON")
	}
	return &snap, nil
}

// WriteFile stores snap under dir and returns the file path. The file is
// written next to its final name and renamed, so a crash never leaves half a
// snapshot behind.
func WriteFile(dir string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(dir, FileName(snap.ExportedAt))
	tmp, err := os.CreateTemp(dir, ".inventory-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish snapshot: %w", err)
	}
	return path, nil
}

// ReadFile loads the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ListFiles returns the snapshot files in dir, newest first. A missing dir
// holds no snapshots.
func ListFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		files = append(files, FileInfo{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		})
	}
	// The timestamp in the name sorts lexically.
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}
