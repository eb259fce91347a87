package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelFile represents a discovered model file
type ModelFile struct {
	FilePath string
}

// Discovery handles discovering model files from the filesystem
type Discovery struct {
	paths []string
}

// NewDiscovery creates a new model discovery instance
func NewDiscovery(paths []string) *Discovery {
	if len(paths) == 0 {
		paths = []string{"./models"}
	}
	return &Discovery{paths: paths}
}

// DiscoverAll discovers all model files in the configured paths
func (d *Discovery) DiscoverAll() ([]ModelFile, error) {
	var files []ModelFile

	for _, path := range d.paths {
		discovered, err := d.discoverInPath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to discover models in %s: %w", path, err)
		}
		files = append(files, discovered...)
	}

	return files, nil
}

func (d *Discovery) discoverInPath(basePath string) ([]ModelFile, error) {
	var files []ModelFile

	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // Skip if directory doesn't exist
			}
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".sql" || ext == ".yaml" || ext == ".yml" {
			files = append(files, ModelFile{FilePath: path})
		}

		return nil
	})

	return files, err
}
