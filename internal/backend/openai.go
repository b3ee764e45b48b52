package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultEmbeddingModel is used when configuration does not name one.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultGenerationModel is used when configuration does not name one.
	DefaultGenerationModel = "gpt-4o"
)

// dimensionFor maps known embedding models to their vector dimension.
// Unknown models fall back to 1536.
func dimensionFor(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

// OpenAIProvider implements EmbeddingBackend and GenerationBackend against
// any OpenAI-compatible API. The remote OpenAI service and local servers
// such as Ollama differ only in base URL and key handling.
type OpenAIProvider struct {
	client          openai.Client
	embeddingModel  string
	generationModel string
	dimension       int
}

// ProviderConfig selects and parameterizes the provider.
type ProviderConfig struct {
	// Provider is "openai" for the hosted API or "local" for an
	// OpenAI-compatible endpoint reachable at BaseURL.
	Provider        string
	BaseURL         string
	APIKeyEnv       string
	EmbeddingModel  string
	GenerationModel string
}

// NewOpenAIProvider builds a provider from configuration. For the hosted
// API the key environment variable must be set; local endpoints accept a
// placeholder key.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	generationModel := cfg.GenerationModel
	if generationModel == "" {
		generationModel = DefaultGenerationModel
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}

	var opts []option.RequestOption
	switch cfg.Provider {
	case "", "openai":
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable not set", keyEnv)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	case "local":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		// Local OpenAI-compatible servers ignore the key but the client
		// requires one.
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			apiKey = "local"
		}
		opts = append(opts, option.WithBaseURL(baseURL), option.WithAPIKey(apiKey))
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return &OpenAIProvider{
		client:          openai.NewClient(opts...),
		embeddingModel:  embeddingModel,
		generationModel: generationModel,
		dimension:       dimensionFor(embeddingModel),
	}, nil
}

// EmbedBatch embeds all texts in one request. Rate limit responses are
// retried with exponential backoff; all other failures are classified and
// returned immediately.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(p.embeddingModel),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retried with backoff
			}
			return backoff.Permanent(classify(err))
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: got %d embeddings for %d texts",
				ErrBadResponse, len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if IsTransient(err) || errors.Is(err, ErrBadResponse) {
			return nil, err
		}
		return nil, classify(err)
	}
	return vectors, nil
}

// Generate runs a single chat completion. An empty choice list counts as a
// bad response so callers never see a silent empty answer.
func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(p.generationModel),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrBadResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embeddings returns the provider's embedding capability.
func (p *OpenAIProvider) Embeddings() EmbeddingBackend {
	return embeddingView{p}
}

// Generation returns the provider's generation capability.
func (p *OpenAIProvider) Generation() GenerationBackend {
	return generationView{p}
}

// The two capabilities report different model identifiers, so the provider
// is exposed through per-capability views rather than implementing both
// interfaces directly.
type embeddingView struct{ p *OpenAIProvider }

func (v embeddingView) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return v.p.EmbedBatch(ctx, texts)
}
func (v embeddingView) Model() string  { return v.p.embeddingModel }
func (v embeddingView) Dimension() int { return v.p.dimension }

type generationView struct{ p *OpenAIProvider }

func (v generationView) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return v.p.Generate(ctx, systemPrompt, userPrompt)
}
func (v generationView) Model() string { return v.p.generationModel }

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the provider's float64 vectors to float32 for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
