package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/config"
	"github.com/pdftranslate/client/internal/model"
)

// ErrMalformedDescriptor is returned when generate-url yields no usable target
var ErrMalformedDescriptor = errors.New("malformed upload descriptor")

// TranslationAPI defines the operations of the translation backend
type TranslationAPI interface {
	GenerateUploadURL(ctx context.Context) (*model.UploadDescriptor, error)
	UploadFile(ctx context.Context, uploadURL string, data []byte) error
	GetStatus(ctx context.Context, requestID string) (*model.StatusResponse, error)
}

// APIError is a non-2xx response from the backend or the storage target
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translation API error (status %d): %s", e.StatusCode, e.Body)
}

// TranslationClient implements TranslationAPI over HTTP
type TranslationClient struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewTranslationClient creates a new translation API client
func NewTranslationClient(cfg *config.APIConfig, logger zerolog.Logger) *TranslationClient {
	return &TranslationClient{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		baseURL: cfg.URL,
		logger:  logger,
	}
}

// GenerateUploadURL requests a pre-signed upload target
func (c *TranslationClient) GenerateUploadURL(ctx context.Context) (*model.UploadDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generate-url", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	return DecodeDescriptor(body)
}

// UploadFile transfers the raw PDF bytes to the pre-signed URL in one PUT
func (c *TranslationClient) UploadFile(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", model.ContentTypePDF)
	req.ContentLength = int64(len(data))

	_, err = c.doRequest(req)
	return err
}

// GetStatus retrieves the status of a translation job
func (c *TranslationClient) GetStatus(ctx context.Context, requestID string) (*model.StatusResponse, error) {
	endpoint := fmt.Sprintf("%s/status?request_id=%s", c.baseURL, url.QueryEscape(requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var result model.StatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &result, nil
}

// doRequest executes an HTTP request and returns the response body
func (c *TranslationClient) doRequest(req *http.Request) ([]byte, error) {
	target := req.URL.String()
	if req.Method == http.MethodPut {
		target = stripQuery(req.URL)
	}
	log := c.logger.With().Str("method", req.Method).Str("url", target).Logger()
	log.Debug().Msg("→ request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("✗ request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(respBody)).Msg("← response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// DecodeDescriptor unpacks the generate-url response. The envelope's body
// field is a JSON string that itself encodes {url, request_id}.
func DecodeDescriptor(raw []byte) (*model.UploadDescriptor, error) {
	var envelope model.DescriptorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal descriptor envelope: %w", err)
	}

	var descriptor model.UploadDescriptor
	if err := json.Unmarshal([]byte(envelope.Body), &descriptor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal descriptor body: %w", err)
	}

	if descriptor.URL == "" || descriptor.RequestID == "" {
		return nil, ErrMalformedDescriptor
	}

	return &descriptor, nil
}

// stripQuery drops the query string, which carries the pre-signed credentials
func stripQuery(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
