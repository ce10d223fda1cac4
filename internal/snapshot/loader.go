package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"PcapSpectra/internal/model"
)

// Load reads every capture snapshot below rootPath. Directories without a
// capture.gob are ignored; unreadable snapshots are logged and skipped. A
// missing rootPath yields no captures. Captures are returned newest first.
func Load(rootPath string) ([]*model.Capture, error) {
	entries, err := os.ReadDir(rootPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var captures []*model.Capture
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(rootPath, entry.Name(), captureFile)
		capture, err := ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Printf("Warning: skipping snapshot %s: %v", path, err)
			continue
		}
		captures = append(captures, capture)
	}

	sort.Slice(captures, func(i, j int) bool {
		return captures[i].AnalyzedAt.After(captures[j].AnalyzedAt)
	})
	log.Printf("Loaded %d capture snapshots from %s", len(captures), rootPath)
	return captures, nil
}

// ReadFile decodes a single capture.gob file.
func ReadFile(path string) (*model.Capture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var capture model.Capture
	if err := gob.NewDecoder(file).Decode(&capture); err != nil {
		return nil, fmt.Errorf("failed to decode gob data: %w", err)
	}
	if capture.Result == nil {
		capture.Result = &model.Result{}
	}
	return &capture, nil
}
