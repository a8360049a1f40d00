package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

const (
	// DefaultGoogleEndpoint is the synchronous Speech-to-Text recognize method
	DefaultGoogleEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

	googleScope = "https://www.googleapis.com/auth/cloud-platform"
)

// GoogleConfig configures the Google Speech-to-Text REST recognizer
type GoogleConfig struct {
	Endpoint string
	APIKey   string
	// Credentials is a service account JSON document or a path to one.
	// Used only when APIKey is empty.
	Credentials string
	Model       string
	UseEnhanced bool
	Timeout     time.Duration
}

// GoogleRecognizer calls Google Speech-to-Text with LINEAR16 audio
type GoogleRecognizer struct {
	cfg        GoogleConfig
	httpClient *http.Client
	logger     *slog.Logger
}

type googleRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleAudio             `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	AudioChannelCount          int    `json:"audioChannelCount,omitempty"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Model                      string `json:"model,omitempty"`
	UseEnhanced                bool   `json:"useEnhanced,omitempty"`
}

type googleAudio struct {
	Content string `json:"content"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *googleError `json:"error,omitempty"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGoogleRecognizer creates a recognizer authenticated by API key or service account
func NewGoogleRecognizer(ctx context.Context, cfg GoogleConfig, logger *slog.Logger) (*GoogleRecognizer, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "latest_long"
	}

	var client *http.Client
	switch {
	case cfg.APIKey != "":
		client = &http.Client{Timeout: cfg.Timeout}
	case cfg.Credentials != "":
		jsonData := []byte(strings.TrimSpace(cfg.Credentials))
		if !bytes.HasPrefix(jsonData, []byte("{")) {
			data, err := os.ReadFile(cfg.Credentials)
			if err != nil {
				return nil, fmt.Errorf("failed to read credentials file %s: %w", cfg.Credentials, err)
			}
			jsonData = data
		}
		creds, err := google.CredentialsFromJSON(ctx, jsonData, googleScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse google credentials: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
		client.Timeout = cfg.Timeout
	default:
		return nil, fmt.Errorf("google recognizer needs an API key or credentials")
	}

	return &GoogleRecognizer{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Name returns the engine identifier
func (g *GoogleRecognizer) Name() string {
	return "google"
}

// Recognize sends the buffer as base64 LINEAR16 and joins the best alternative of every result
func (g *GoogleRecognizer) Recognize(ctx context.Context, b *audio.Buffer, locale string) (*Recognition, error) {
	reqBody := googleRequest{
		Config: googleRecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            b.SampleRate,
			AudioChannelCount:          b.Channels,
			LanguageCode:               locale,
			EnableAutomaticPunctuation: true,
			Model:                      g.cfg.Model,
			UseEnhanced:                g.cfg.UseEnhanced,
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(b.Data)},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := g.cfg.Endpoint
	if g.cfg.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(g.cfg.APIKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ServiceError{Engine: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Engine: g.Name(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var parsed googleResponse
	jsonErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if jsonErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ServiceError{Engine: g.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}
	if jsonErr != nil {
		return nil, &ServiceError{Engine: g.Name(), StatusCode: resp.StatusCode,
			Err: fmt.Errorf("failed to parse response JSON: %w", jsonErr)}
	}
	if parsed.Error != nil {
		return nil, &ServiceError{Engine: g.Name(), StatusCode: parsed.Error.Code, Err: fmt.Errorf("%s", parsed.Error.Message)}
	}

	var parts []string
	var confidences []float64
	for _, result := range parsed.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		if t := strings.TrimSpace(best.Transcript); t != "" {
			parts = append(parts, t)
		}
		if best.Confidence > 0 {
			confidences = append(confidences, best.Confidence)
		}
	}

	text, err := cleanText(strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Google recognition complete",
		slog.Int("results", len(parsed.Results)),
		slog.Int("text_length", len(text)))

	return &Recognition{
		Text:          text,
		Confidence:    mean(confidences),
		HasConfidence: len(confidences) > 0,
	}, nil
}
