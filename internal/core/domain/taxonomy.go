package domain

// TaxonomyNode is one node of the pre-built category taxonomy. Nodes are
// produced offline by the taxonomy construction pipeline and are read-only
// for the lifetime of the resolver process.
type TaxonomyNode struct {
	ID          int64     `json:"id"`
	Name        string    `json:"categoryname"`
	Description string    `json:"description,omitempty"`
	Embedding   []float32 `json:"embedding"`

	// ParentID points at the containing node. Lookup only, never owned;
	// zero when the source record does not carry it.
	ParentID int64 `json:"parent_id,omitempty"`
}

// Candidate pairs a node with its similarity score during ranking.
// Candidates are ephemeral and never persisted.
type Candidate struct {
	Node       TaxonomyNode
	Similarity float64
}

// Match is one record of the final resolution result.
type Match struct {
	ID          int64   `json:"id"`
	Name        string  `json:"categoryname"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity"`
}

// SubCategoryGuess is one sub-category proposed by the classifier.
type SubCategoryGuess struct {
	Name        string `json:"categoryname"`
	Description string `json:"description"`
}

// BranchGuess is the structured classifier output for one top category.
type BranchGuess struct {
	TopCategory   string             `json:"categoryname"`
	SubCategories []SubCategoryGuess `json:"sub-category"`
}

// ResolveRequest is a resolution job carried over the message queue.
type ResolveRequest struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

// ResolveResult is the queue-side envelope for a finished resolution.
type ResolveResult struct {
	RequestID string  `json:"request_id"`
	Matches   []Match `json:"matches"`
	Error     string  `json:"error,omitempty"`
}
