package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

// Store reads the taxonomy corpus from the construction pipeline's
// database instead of exported JSONL files. The resolver never writes;
// schema and rows are owned by the pipeline.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) LoadSubCategoryIndex(ctx context.Context) ([]domain.TaxonomyNode, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, COALESCE(description, ''), embedding
FROM sub_categories
ORDER BY position, id
`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query sub-category index", err)
	}
	defer rows.Close()

	nodes, err := scanNodes(rows, func(node *domain.TaxonomyNode) []any {
		return []any{&node.ID, &node.Name, &node.Description}
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "scan sub-category index", err)
	}
	return nodes, nil
}

func (s *Store) LoadDescendants(ctx context.Context, subCategoryID int64) ([]domain.TaxonomyNode, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, COALESCE(description, ''), COALESCE(parent_id, 0), embedding
FROM taxonomy_nodes
WHERE sub_category_id = $1
ORDER BY position, id
`, subCategoryID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query descendants", err)
	}
	defer rows.Close()

	nodes, err := scanNodes(rows, func(node *domain.TaxonomyNode) []any {
		return []any{&node.ID, &node.Name, &node.Description, &node.ParentID}
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "scan descendants", err)
	}
	if len(nodes) == 0 {
		return nil, domain.WrapError(domain.ErrBranchNotFound,
			"load descendants", fmt.Errorf("no rows for sub-category %d", subCategoryID))
	}
	return nodes, nil
}

// scanNodes reads node rows whose last column is the JSONB embedding.
// Dimension must be uniform within one result set.
func scanNodes(rows *sql.Rows, dest func(*domain.TaxonomyNode) []any) ([]domain.TaxonomyNode, error) {
	var (
		nodes     []domain.TaxonomyNode
		dimension int
	)
	for rows.Next() {
		var node domain.TaxonomyNode
		var embeddingRaw []byte

		if err := rows.Scan(append(dest(&node), &embeddingRaw)...); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		if len(embeddingRaw) > 0 {
			if err := json.Unmarshal(embeddingRaw, &node.Embedding); err != nil {
				return nil, fmt.Errorf("unmarshal embedding for node %d: %w", node.ID, err)
			}
		}

		if len(node.Embedding) > 0 {
			if dimension == 0 {
				dimension = len(node.Embedding)
			} else if len(node.Embedding) != dimension {
				return nil, fmt.Errorf("embedding dimension mismatch for node %d: got %d, want %d",
					node.ID, len(node.Embedding), dimension)
			}
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nodes, nil
		}
		return nil, fmt.Errorf("iterate node rows: %w", err)
	}
	return nodes, nil
}
