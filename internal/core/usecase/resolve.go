package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
	"github.com/dx-junkyard/interest-category-matching/internal/core/ports"
)

// ResolveOptions carries the funnel widths. All three limits must be
// positive; non-positive values are a configuration error.
type ResolveOptions struct {
	// TopSubCategories is how many index candidates survive stage 2.
	TopSubCategories int
	// TopLeaves is how many leaf candidates survive per branch in stage 3.
	TopLeaves int
	// TopResults is the size of the final aggregated answer.
	TopResults int
	// AllGuessBranches expands every classifier-proposed sub-category
	// instead of only the first one of the first top category.
	AllGuessBranches bool
}

func (o ResolveOptions) validate() error {
	if o.TopSubCategories <= 0 {
		return fmt.Errorf("top sub-categories must be positive, got %d", o.TopSubCategories)
	}
	if o.TopLeaves <= 0 {
		return fmt.Errorf("top leaves must be positive, got %d", o.TopLeaves)
	}
	if o.TopResults <= 0 {
		return fmt.Errorf("top results must be positive, got %d", o.TopResults)
	}
	return nil
}

// ResolveUseCase narrows free text to the best-matching taxonomy leaves:
// classifier guess, sub-category shortlist by embedding similarity,
// per-branch leaf shortlist, deduplicated top-K.
type ResolveUseCase struct {
	store      ports.TaxonomyStore
	classifier ports.InterestClassifier
	embedder   ports.Embedder
	opts       ResolveOptions
	logger     *slog.Logger
}

func NewResolveUseCase(
	store ports.TaxonomyStore,
	classifier ports.InterestClassifier,
	embedder ports.Embedder,
	opts ResolveOptions,
	logger *slog.Logger,
) (*ResolveUseCase, error) {
	if err := opts.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolver options", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveUseCase{
		store:      store,
		classifier: classifier,
		embedder:   embedder,
		opts:       opts,
		logger:     logger,
	}, nil
}

func (uc *ResolveUseCase) Resolve(ctx context.Context, text string) ([]domain.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve", errors.New("empty input text"))
	}

	guesses, err := uc.guess(ctx, text)
	if err != nil {
		return nil, err
	}

	index, err := uc.store.LoadSubCategoryIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sub-category index: %w", err)
	}
	if len(index) == 0 {
		uc.logger.Warn("sub_category_index_empty")
		return []domain.Match{}, nil
	}

	branches, err := uc.shortlistBranches(ctx, index, guesses)
	if err != nil {
		return nil, err
	}
	if len(branches) == 0 {
		uc.logger.Warn("no_sub_category_candidates")
		return []domain.Match{}, nil
	}

	// The input embedding answers a different question than the guess
	// description embedding; it is computed once and shared by all branches.
	inputVector, err := uc.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed input text: %w", err)
	}

	perBranch := uc.expandBranches(ctx, branches, inputVector)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggregated := make([]domain.Candidate, 0, len(branches)*uc.opts.TopLeaves)
	for _, candidates := range perBranch {
		aggregated = append(aggregated, candidates...)
	}

	final := topCandidates(dedupeCandidates(aggregated), uc.opts.TopResults)
	if len(final) == 0 {
		uc.logger.Warn("no_leaf_candidates", "branches", len(branches))
		return []domain.Match{}, nil
	}

	matches := make([]domain.Match, 0, len(final))
	for _, candidate := range final {
		matches = append(matches, domain.Match{
			ID:          candidate.Node.ID,
			Name:        candidate.Node.Name,
			Description: candidate.Node.Description,
			Similarity:  candidate.Similarity,
		})
	}
	return matches, nil
}

// guess runs the classifier and extracts the working sub-category guesses.
func (uc *ResolveUseCase) guess(ctx context.Context, text string) ([]domain.SubCategoryGuess, error) {
	proposed, err := uc.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classify interests: %w", err)
	}

	var guesses []domain.SubCategoryGuess
	for _, top := range proposed {
		for _, sub := range top.SubCategories {
			name := strings.TrimSpace(sub.Name)
			description := strings.TrimSpace(sub.Description)
			if name == "" || description == "" {
				continue
			}
			guesses = append(guesses, domain.SubCategoryGuess{Name: name, Description: description})
			if !uc.opts.AllGuessBranches {
				return guesses, nil
			}
		}
	}
	if len(guesses) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyGuess, "extract guess", errors.New("classifier returned no usable sub-category"))
	}
	return guesses, nil
}

// branchJob is one stage-3 expansion: a surviving sub-category candidate
// plus the guessed name used for the exact-match short circuit.
type branchJob struct {
	node          domain.TaxonomyNode
	predictedName string
}

func (uc *ResolveUseCase) shortlistBranches(
	ctx context.Context,
	index []domain.TaxonomyNode,
	guesses []domain.SubCategoryGuess,
) ([]branchJob, error) {
	var jobs []branchJob
	for _, guess := range guesses {
		guessVector, err := uc.embedder.EmbedQuery(ctx, guess.Description)
		if err != nil {
			return nil, fmt.Errorf("embed guess description: %w", err)
		}

		ranked := rankSubCategories(index, guess.Name, guessVector, uc.opts.TopSubCategories)
		for _, candidate := range ranked {
			uc.logger.Info("sub_category_candidate",
				"id", candidate.Node.ID,
				"name", candidate.Node.Name,
				"similarity", candidate.Similarity,
			)
			jobs = append(jobs, branchJob{node: candidate.Node, predictedName: guess.Name})
		}
	}
	return jobs, nil
}

// expandBranches loads and ranks every branch concurrently. Each branch
// writes into its own slot, so the join preserves the stage-2 ranking
// order regardless of which worker finishes first; the final stage-4 sort
// is the sole ordering authority anyway.
func (uc *ResolveUseCase) expandBranches(
	ctx context.Context,
	branches []branchJob,
	inputVector []float32,
) [][]domain.Candidate {
	perBranch := make([][]domain.Candidate, len(branches))

	var wg sync.WaitGroup
	for i, job := range branches {
		wg.Add(1)
		go func(slot int, job branchJob) {
			defer wg.Done()
			perBranch[slot] = uc.expandBranch(ctx, job, inputVector)
		}(i, job)
	}
	wg.Wait()

	return perBranch
}

// expandBranch is stage 3 for one branch. Load failures are branch-local:
// the branch contributes zero candidates and resolution continues.
func (uc *ResolveUseCase) expandBranch(ctx context.Context, job branchJob, inputVector []float32) []domain.Candidate {
	descendants, err := uc.store.LoadDescendants(ctx, job.node.ID)
	if err != nil {
		uc.logger.Warn("branch_load_failed",
			"sub_category_id", job.node.ID,
			"sub_category", job.node.Name,
			"error", err,
		)
		return nil
	}

	ranked := rankLeaves(descendants, job.predictedName, inputVector, uc.opts.TopLeaves)
	for _, candidate := range ranked {
		uc.logger.Info("leaf_candidate",
			"id", candidate.Node.ID,
			"name", candidate.Node.Name,
			"similarity", candidate.Similarity,
		)
	}
	return ranked
}
