package ports

import (
	"context"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

// TaxonomyStore reads the immutable pre-computed taxonomy corpus.
type TaxonomyStore interface {
	// LoadSubCategoryIndex returns every second-level node with its
	// embedding. A missing or corrupt index is an error, never an empty
	// result.
	LoadSubCategoryIndex(ctx context.Context) ([]domain.TaxonomyNode, error)

	// LoadDescendants returns the flattened descendant subtree of one
	// sub-category, addressed by its numeric id.
	LoadDescendants(ctx context.Context, subCategoryID int64) ([]domain.TaxonomyNode, error)
}

// InterestClassifier proposes a taxonomy branch for free text.
type InterestClassifier interface {
	Classify(ctx context.Context, text string) ([]domain.BranchGuess, error)
}

// Embedder builds vectors for query and description text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ResolveQueue carries resolution jobs between producers and workers.
type ResolveQueue interface {
	PublishResolveRequest(ctx context.Context, req domain.ResolveRequest) error
	PublishResolveResult(ctx context.Context, res domain.ResolveResult) error
	SubscribeResolveRequests(ctx context.Context, handler func(context.Context, domain.ResolveRequest) error) error
}
