package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

// Line length guard for scanner buffers; embedding arrays make taxonomy
// lines far longer than bufio's default token size.
const maxLineBytes = 16 * 1024 * 1024

// Store reads the taxonomy corpus from newline-delimited JSON files: one
// index file of sub-category records plus one flattened descendant file
// per sub-category. The corpus is immutable for the process lifetime, so
// loads are cached per id and never invalidated.
type Store struct {
	dir       string
	indexFile string

	mu          sync.Mutex
	indexCache  []domain.TaxonomyNode
	branchCache map[int64][]domain.TaxonomyNode
	branchFiles map[int64]string
}

func New(dir, indexFile string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("taxonomy dir is required")
	}
	if indexFile == "" {
		indexFile = "sub-category-embedding.jsonl"
	}
	return &Store{
		dir:         dir,
		indexFile:   indexFile,
		branchCache: make(map[int64][]domain.TaxonomyNode),
	}, nil
}

func (s *Store) LoadSubCategoryIndex(ctx context.Context) ([]domain.TaxonomyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexCache != nil {
		return s.indexCache, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes, err := readNodeFile(filepath.Join(s.dir, s.indexFile))
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "load sub-category index", err)
	}
	s.indexCache = nodes
	return nodes, nil
}

func (s *Store) LoadDescendants(ctx context.Context, subCategoryID int64) ([]domain.TaxonomyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nodes, ok := s.branchCache[subCategoryID]; ok {
		return nodes, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename, err := s.branchFile(subCategoryID)
	if err != nil {
		return nil, err
	}

	nodes, err := readNodeFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable,
			fmt.Sprintf("load descendants of %d", subCategoryID), err)
	}
	s.branchCache[subCategoryID] = nodes
	return nodes, nil
}

// branchFile resolves a descendant file by numeric id prefix only. The
// construction pipeline names files {id}-{sanitized name}.jsonl; the name
// part is a display label and never a lookup key.
func (s *Store) branchFile(subCategoryID int64) (string, error) {
	if s.branchFiles == nil {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return "", domain.WrapError(domain.ErrStoreUnavailable, "list taxonomy dir", err)
		}

		files := make(map[int64]string, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if name == s.indexFile || !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			id, ok := leadingID(name)
			if !ok {
				continue
			}
			if _, exists := files[id]; !exists {
				files[id] = name
			}
		}
		s.branchFiles = files
	}

	filename, ok := s.branchFiles[subCategoryID]
	if !ok {
		return "", domain.WrapError(domain.ErrBranchNotFound,
			"resolve branch file", fmt.Errorf("no descendant file for id %d", subCategoryID))
	}
	return filename, nil
}

// leadingID parses the numeric id that prefixes a branch filename, i.e.
// the digits before the first '-' or '.'.
func leadingID(filename string) (int64, bool) {
	var id int64
	digits := 0
	for _, r := range filename {
		if r < '0' || r > '9' {
			break
		}
		id = id*10 + int64(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	rest := filename[digits:]
	if rest != ".jsonl" && !strings.HasPrefix(rest, "-") {
		return 0, false
	}
	return id, true
}

func readNodeFile(path string) ([]domain.TaxonomyNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		nodes     []domain.TaxonomyNode
		dimension int
		lineNo    int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var node domain.TaxonomyNode
		if err := json.Unmarshal([]byte(line), &node); err != nil {
			return nil, fmt.Errorf("corrupt record at line %d: %w", lineNo, err)
		}

		// D is fixed across the corpus; a mixed dimension means the file
		// was built against a different embedding model.
		if len(node.Embedding) > 0 {
			if dimension == 0 {
				dimension = len(node.Embedding)
			} else if len(node.Embedding) != dimension {
				return nil, fmt.Errorf("embedding dimension mismatch at line %d: got %d, want %d",
					lineNo, len(node.Embedding), dimension)
			}
		}
		nodes = append(nodes, node)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("record exceeds %d bytes", maxLineBytes)
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nodes, nil
}
