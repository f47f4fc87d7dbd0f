package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic writes through a temp file in the target directory and
// renames it into place, so readers never observe a partial artifact.
func writeAtomic(path, pattern string, fill func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move artifact into place: %w", err)
	}
	return nil
}

// WriteJSONAtomic writes v to path as indented JSON.
func WriteJSONAtomic(path string, v any) error {
	return writeAtomic(path, "tmp-*.json", func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode artifact json: %w", err)
		}
		return nil
	})
}

// WriteTextAtomic writes content to path.
func WriteTextAtomic(path, content string) error {
	return writeAtomic(path, "tmp-*.txt", func(f *os.File) error {
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("write artifact text: %w", err)
		}
		return nil
	})
}
