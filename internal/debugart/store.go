// Package debugart keeps the disposable per-page diagnostics: the
// rasterized page image and the raw model response, grouped in one
// directory per source file. Nothing here is consistent with the master
// dataset and nothing here may fail a merge.
package debugart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes artifacts under <root>/<file-stem>/.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// SavePage persists the page image and raw response, either may be nil.
// It returns the image path ("" when no image was written).
func (s *Store) SavePage(sourceFile string, page int, image, response []byte) (string, error) {
	dir := s.SourceDir(sourceFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	imagePath := ""
	if len(image) > 0 {
		imagePath = filepath.Join(dir, fmt.Sprintf("page_%03d.png", page))
		if err := os.WriteFile(imagePath, image, 0o644); err != nil {
			return "", fmt.Errorf("write page image: %w", err)
		}
	}
	if len(response) > 0 {
		respPath := filepath.Join(dir, fmt.Sprintf("page_%03d.txt", page))
		if err := os.WriteFile(respPath, response, 0o644); err != nil {
			return imagePath, fmt.Errorf("write model response: %w", err)
		}
	}
	return imagePath, nil
}

// DeleteSource removes every artifact of one source file. Missing
// directories are not an error.
func (s *Store) DeleteSource(sourceFile string) error {
	return os.RemoveAll(s.SourceDir(sourceFile))
}

// Files lists the artifact paths of one source file, for the optional
// remote mirror.
func (s *Store) Files(sourceFile string) ([]string, error) {
	entries, err := os.ReadDir(s.SourceDir(sourceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(s.SourceDir(sourceFile), e.Name()))
	}
	return out, nil
}

func (s *Store) SourceDir(sourceFile string) string {
	return filepath.Join(s.root, stem(sourceFile))
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
