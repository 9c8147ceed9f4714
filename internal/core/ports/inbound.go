package ports

import (
	"context"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

// InterestResolver is the inbound contract for taxonomy resolution.
type InterestResolver interface {
	Resolve(ctx context.Context, text string) ([]domain.Match, error)
}
