package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RestoreAction describes one path a restore would (or did) write.
type RestoreAction struct {
	Source      string
	Destination string
	Kind        string
	Applied     bool
}

// RestoreOptions controls snapshot restoration. With Apply false the
// restore is a dry run that only reports the actions it would take.
type RestoreOptions struct {
	SnapshotDir        string
	TargetRoot         string
	Apply              bool
	IncludeSourcePaths []string
}

// RestoreSnapshot replays a snapshot's backed-up entries onto the target
// root, honoring the include filter and refusing to restore a file over a
// directory or vice versa.
func RestoreSnapshot(opts RestoreOptions) ([]RestoreAction, error) {
	metadata, err := LoadMetadata(opts.SnapshotDir)
	if err != nil {
		return nil, err
	}

	include := make(map[string]struct{}, len(opts.IncludeSourcePaths))
	for _, p := range opts.IncludeSourcePaths {
		include[p] = struct{}{}
	}

	target := opts.TargetRoot
	if target == "" {
		target = string(filepath.Separator)
	}

	var actions []RestoreAction
	for _, entry := range metadata.Entries {
		if entry.Status != StatusBackedUp {
			continue
		}
		if len(include) > 0 {
			if _, ok := include[entry.SourcePath]; !ok {
				continue
			}
		}
		if entry.StorageRelPath == "" || (entry.Kind != "file" && entry.Kind != "dir") {
			return nil, fmt.Errorf("invalid entry in metadata: %s", entry.SourcePath)
		}

		src := filepath.Join(opts.SnapshotDir, "files", entry.StorageRelPath)
		if _, err := os.Stat(src); err != nil {
			return nil, fmt.Errorf("snapshot data missing for entry: %s", entry.StorageRelPath)
		}
		dest := filepath.Join(target, strings.TrimPrefix(entry.SourcePath, string(filepath.Separator)))

		if opts.Apply {
			if err := applyRestore(src, dest, entry.Kind); err != nil {
				return nil, err
			}
		}
		actions = append(actions, RestoreAction{
			Source:      src,
			Destination: dest,
			Kind:        entry.Kind,
			Applied:     opts.Apply,
		})
	}
	return actions, nil
}

func applyRestore(src, dest, kind string) error {
	info, err := os.Stat(dest)
	switch {
	case err == nil && kind == "file" && info.IsDir():
		return fmt.Errorf("cannot restore file over directory: %s", dest)
	case err == nil && kind == "dir" && !info.IsDir():
		return fmt.Errorf("cannot restore directory over file: %s", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if kind == "dir" {
		return copyTree(src, dest)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyFile(src, dest, srcInfo.Mode())
}

// LoadMetadata reads and validates a snapshot's metadata manifest.
func LoadMetadata(snapshotDir string) (*Metadata, error) {
	path := filepath.Join(snapshotDir, "metadata.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot metadata missing: %s", path)
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parse snapshot metadata: %w", err)
	}
	return &metadata, nil
}

// WriteEnvRestoreFile writes a shell script exporting the environment
// values captured in the snapshot. Only sh-family shells are supported.
func WriteEnvRestoreFile(snapshotDir, outputPath, shell string) error {
	switch shell {
	case "sh", "bash", "zsh":
	default:
		return fmt.Errorf("unsupported shell format: %s", shell)
	}

	metadata, err := LoadMetadata(snapshotDir)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(metadata.EnvVars))
	for k := range metadata.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("#!/usr/bin/env sh\n")
	for _, k := range keys {
		escaped := strings.ReplaceAll(metadata.EnvVars[k], "'", `'"'"'`)
		fmt.Fprintf(&b, "export %s='%s'\n", k, escaped)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(outputPath, []byte(b.String()), 0o700)
}
