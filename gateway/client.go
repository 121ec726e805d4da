package gateway

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultFluxBaseURL      = "https://api.bfl.ai"
	defaultReplicateBaseURL = "https://api.replicate.com"
	defaultPollInterval     = 500 * time.Millisecond
	defaultMaxPollAttempts  = 240
)

// Config holds provider credentials and tuning for the production client.
// Base URLs are overridable so tests can point at a local server.
type Config struct {
	OpenAIAPIKey    string
	OpenAIModel     string
	FluxAPIKey      string
	FluxBaseURL     string
	ReplicateAPIKey string
	ReplicateBase   string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Client is the production Gateway backed by OpenAI (text), BFL Flux
// (image generation/editing) and Replicate (audio, video).
type Client struct {
	llm             openai.Client
	model           openai.ChatModel
	fluxKey         string
	fluxBaseURL     string
	replicateKey    string
	replicateBase   string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

func NewClient(cfg Config) *Client {
	if cfg.FluxBaseURL == "" {
		cfg.FluxBaseURL = defaultFluxBaseURL
	}
	if cfg.ReplicateBase == "" {
		cfg.ReplicateBase = defaultReplicateBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	model := openai.ChatModel(cfg.OpenAIModel)
	if cfg.OpenAIModel == "" {
		model = openai.ChatModelGPT4o
	}
	return &Client{
		llm:             openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		model:           model,
		fluxKey:         cfg.FluxAPIKey,
		fluxBaseURL:     cfg.FluxBaseURL,
		replicateKey:    cfg.ReplicateAPIKey,
		replicateBase:   cfg.ReplicateBase,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
	}
}

// imageDataURI reads the file at path and encodes it as a JPEG data URI, the
// inline image format all three providers accept.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func audioDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func bytesDataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

func providerErr(provider, op string, err error) *ProviderError {
	return &ProviderError{Op: op, Provider: provider, Err: err}
}

func timeoutErr(provider, op string, attempts int) *ProviderError {
	return &ProviderError{
		Op:       op,
		Provider: provider,
		Timeout:  true,
		Err:      fmt.Errorf("no terminal status after %d polls", attempts),
	}
}
