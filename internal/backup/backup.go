// Package backup snapshots the plugin's runtime files and environment so a
// bad rollout can be reverted to a known-good configuration.
package backup

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Entry statuses recorded in snapshot metadata.
const (
	StatusBackedUp = "backed_up"
	StatusMissing  = "missing"
)

// Entry describes one source path captured (or skipped) by a snapshot.
type Entry struct {
	SourcePath     string `json:"source_path"`
	ResolvedPath   string `json:"resolved_path"`
	Status         string `json:"status"`
	Kind           string `json:"kind,omitempty"`
	StorageRelPath string `json:"storage_rel_path,omitempty"`
}

// Metadata is the snapshot manifest, stored as metadata.json in the
// snapshot directory.
type Metadata struct {
	CreatedAtUTC string            `json:"created_at_utc"`
	SnapshotDir  string            `json:"snapshot_dir"`
	Entries      []Entry           `json:"entries"`
	EnvVars      map[string]string `json:"env_vars"`
}

// Result points at the artifacts a snapshot produced.
type Result struct {
	SnapshotDir  string
	MetadataPath string
	ArchivePath  string
}

// CreateOptions controls snapshot creation.
type CreateOptions struct {
	SourcePaths   []string
	OutputDir     string
	AllowMissing  bool
	CreateArchive bool
	EnvVars       []string
}

// CreateSnapshot copies the configured source paths into a timestamped
// snapshot directory, writes the metadata manifest, and optionally packs
// the snapshot into a tar.gz archive.
func CreateSnapshot(opts CreateOptions) (*Result, error) {
	if len(opts.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source paths provided for backup")
	}

	output, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	snapshotDir := filepath.Join(output, "openclaw-runtime-backup-"+stamp)
	filesRoot := filepath.Join(snapshotDir, "files")
	if err := os.MkdirAll(filesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	var entries []Entry
	for _, raw := range opts.SourcePaths {
		resolved, err := filepath.Abs(raw)
		if err != nil {
			return nil, fmt.Errorf("resolve source path %s: %w", raw, err)
		}
		info, err := os.Stat(resolved)
		if os.IsNotExist(err) {
			if opts.AllowMissing {
				entries = append(entries, Entry{
					SourcePath:   raw,
					ResolvedPath: resolved,
					Status:       StatusMissing,
				})
				continue
			}
			return nil, fmt.Errorf("source path does not exist: %s", raw)
		}
		if err != nil {
			return nil, fmt.Errorf("stat source path %s: %w", raw, err)
		}

		storageRel := storageRelPath(resolved)
		kind, err := copyPath(resolved, filepath.Join(filesRoot, storageRel), info)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			SourcePath:     raw,
			ResolvedPath:   resolved,
			Status:         StatusBackedUp,
			Kind:           kind,
			StorageRelPath: storageRel,
		})
	}

	envDump := make(map[string]string)
	for _, name := range opts.EnvVars {
		if value, ok := os.LookupEnv(name); ok {
			envDump[name] = value
		}
	}

	metadata := Metadata{
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		SnapshotDir:  snapshotDir,
		Entries:      entries,
		EnvVars:      envDump,
	}
	metadataPath := filepath.Join(snapshotDir, "metadata.json")
	if err := writeJSON(metadataPath, metadata); err != nil {
		return nil, err
	}

	result := &Result{SnapshotDir: snapshotDir, MetadataPath: metadataPath}
	if opts.CreateArchive {
		archivePath := filepath.Join(output, filepath.Base(snapshotDir)+".tar.gz")
		if err := packSnapshot(snapshotDir, archivePath); err != nil {
			return nil, err
		}
		result.ArchivePath = archivePath
	}
	return result, nil
}

// storageRelPath maps an absolute source path to its location under the
// snapshot's files/ tree by stripping the leading separator.
func storageRelPath(resolved string) string {
	return strings.TrimPrefix(resolved, string(filepath.Separator))
}

func copyPath(source, destination string, info os.FileInfo) (string, error) {
	if info.IsDir() {
		if err := copyTree(source, destination); err != nil {
			return "", err
		}
		return "dir", nil
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("unsupported path kind (not file/dir): %s", source)
	}
	if err := copyFile(source, destination, info.Mode()); err != nil {
		return "", err
	}
	return "file", nil
}

func copyFile(source, destination string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", source, err)
	}
	return nil
}

func copyTree(source, destination string) error {
	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("unsupported path kind (not file/dir): %s", path)
		}
		return copyFile(path, target, info.Mode())
	})
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// packSnapshot writes the snapshot directory into a gzip-compressed tar
// archive rooted at the snapshot's base name.
func packSnapshot(snapshotDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	base := filepath.Base(snapshotDir)
	return filepath.Walk(snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(snapshotDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(base, rel))

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
