package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a taxonomy file or table that is missing or
	// corrupt at load time. Fatal for the sub-category index, branch-local
	// for descendant loads.
	ErrStoreUnavailable = errors.New("taxonomy store unavailable")

	// ErrBranchNotFound marks a descendant lookup for which no storage
	// location exists.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrClassifier marks a failed or unparseable classifier call.
	ErrClassifier = errors.New("classifier failure")

	// ErrEmbedder marks a failed embedding call.
	ErrEmbedder = errors.New("embedder failure")

	// ErrEmptyGuess marks a classifier response without a usable
	// sub-category guess.
	ErrEmptyGuess = errors.New("empty classifier guess")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
