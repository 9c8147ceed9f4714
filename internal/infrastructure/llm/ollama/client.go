package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
	"github.com/dx-junkyard/interest-category-matching/internal/infrastructure/resilience"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Classifier proposes taxonomy branches by prompting the generation model.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, text string) ([]domain.BranchGuess, error) {
	respText, err := c.client.generate(ctx, buildCategoryPrompt(text))
	if err != nil {
		return nil, domain.WrapError(domain.ErrClassifier, "ollama generate", err)
	}

	var guesses []domain.BranchGuess
	if err := json.Unmarshal([]byte(extractJSONArray(respText)), &guesses); err != nil {
		return nil, domain.WrapError(domain.ErrClassifier, "parse classifier json", err)
	}
	return guesses, nil
}

// Embedder turns text into fixed-length vectors via the embedding model.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, domain.WrapError(domain.ErrEmbedder, "ollama embed", err)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedder, "ollama embed", errors.New("empty embedding result"))
	}
	return vectors[0], nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":       c.genModel,
		"prompt":      prompt,
		"temperature": 0.2,
		"max_tokens":  512,
		"stream":      false,
	}

	// The generate endpoint wraps the model output in a response envelope.
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// extractJSONArray trims any prose the model emits around the JSON array.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
