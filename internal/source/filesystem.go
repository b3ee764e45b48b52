package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stackdocs/docrag/internal/storage"
)

// FilesystemSource loads documents from a local directory tree.
type FilesystemSource struct {
	root string
}

// NewFilesystemSource creates a source rooted at dir.
func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{root: dir}
}

// FetchAll walks the tree and loads every ingestible file. Paths in the
// returned documents are relative to the source root.
func (s *FilesystemSource) FetchAll() ([]*storage.Document, error) {
	var docs []*storage.Document

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingestibleExt(d.Name()) {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			rel = p
		}

		docs = append(docs, &storage.Document{
			SourcePath: rel,
			Content:    string(content),
			Metadata:   map[string]string{"origin": "filesystem"},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
