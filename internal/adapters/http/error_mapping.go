package httpadapter

import (
	"net/http"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrEmptyGuess):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrClassifier), domain.IsKind(err, domain.ErrEmbedder):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrBranchNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStoreUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
