package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
)

type Options struct {
	HTTPTimeout time.Duration

	// Executor guards translate calls. GenerateExecutor and EmbedExecutor
	// guard answer generation and embeddings; each falls back to Executor
	// when nil.
	Executor         *resilience.Executor
	GenerateExecutor *resilience.Executor
	EmbedExecutor    *resilience.Executor

	EmbedPool    *resilience.Limiter
	GeneratePool *resilience.Limiter
}

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client

	executor         *resilience.Executor
	generateExecutor *resilience.Executor
	embedExecutor    *resilience.Executor
	embedPool        *resilience.Limiter
	generatePool     *resilience.Limiter
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, opts Options) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 120 * time.Second
	}
	if opts.GenerateExecutor == nil {
		opts.GenerateExecutor = opts.Executor
	}
	if opts.EmbedExecutor == nil {
		opts.EmbedExecutor = opts.Executor
	}
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		genModel:         genModel,
		embedModel:       embedModel,
		httpClient:       &http.Client{Timeout: opts.HTTPTimeout},
		executor:         opts.Executor,
		generateExecutor: opts.GenerateExecutor,
		embedExecutor:    opts.EmbedExecutor,
		embedPool:        opts.EmbedPool,
		generatePool:     opts.GeneratePool,
	}
}

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
	err := e.client.call(ctx, "ollama_embed", e.client.embedExecutor, e.client.embedPool, func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// Generate completes prompt. maxTokens <= 0 leaves the model default.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return g.client.generate(ctx, "ollama_generate", g.client.generateExecutor, prompt, generateOptions{MaxTokens: maxTokens})
}

// Translator translates short query and answer texts with the generation model.
type Translator struct {
	client *Client
}

func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	out, err := t.client.generate(ctx, "ollama_translate", t.client.executor, buildTranslationPrompt(text, from, to), generateOptions{
		MaxTokens:   translationTokenBudget(text),
		Temperature: 0,
		Fixed:       true,
	})
	if err != nil {
		return "", err
	}
	out = cleanTranslation(out)
	if out == "" {
		return "", fmt.Errorf("empty translation for %s->%s", from, to)
	}
	return out, nil
}

type generateOptions struct {
	MaxTokens   int
	Temperature float64
	Fixed       bool
}

func (c *Client) generate(ctx context.Context, operation string, executor *resilience.Executor, prompt string, opts generateOptions) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	modelOptions := map[string]any{}
	if opts.MaxTokens > 0 {
		modelOptions["num_predict"] = opts.MaxTokens
	}
	if opts.Fixed {
		modelOptions["temperature"] = opts.Temperature
	}
	if len(modelOptions) > 0 {
		reqBody["options"] = modelOptions
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.call(ctx, operation, executor, c.generatePool, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// call runs one logical request. Each attempt takes its own pool slot so that
// backoff sleeps do not hold capacity.
func (c *Client) call(ctx context.Context, operation string, executor *resilience.Executor, pool *resilience.Limiter, fn func(context.Context) error) error {
	attempt := func(ctx context.Context) error {
		return pool.Do(ctx, fn)
	}
	if executor == nil {
		return asDomainError(operation, attempt(ctx))
	}
	return asDomainError(operation, executor.Execute(ctx, operation, attempt, classify))
}
