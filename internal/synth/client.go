// Package synth drives speech synthesis for a segmented script: it resolves
// each utterance to a voice, calls the synthesis provider one utterance at a
// time, and applies the caller's failure policy.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fablecast/story-pipeline/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesizePrefix = "/v1/text-to-speech/"
	apiHealth           = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Static errors.
var (
	ErrTextEmpty      = errors.New("text cannot be empty")
	ErrVoiceIDEmpty   = errors.New("voice id cannot be empty")
	ErrEmptyAudioData = errors.New("received empty audio data")
)

// Error message formats.
const (
	errFmtProviderWithCode = "synthesis provider error (%s): %s (code: %s)"
	errFmtProviderNonOK    = "synthesis provider returned non-OK status: %s, body: %s"
)

// HTTPSynthesizer is a client for an HTTP speech-synthesis provider. It
// implements the core.SpeechSynthesizer port.
type HTTPSynthesizer struct {
	httpClient *http.Client
	baseURL    string
}

// synthesizeRequest is the JSON payload for one synthesis call.
type synthesizeRequest struct {
	Text          string               `json:"text"`
	VoiceSettings core.SynthesisParams `json:"voice_settings"`
}

// providerErrorResponse is the structured error body returned by the
// provider on failure.
type providerErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPSynthesizer creates a synthesis client for the provider at baseURL.
// The baseURL should include protocol and port (e.g. "http://localhost:8000").
// The timeout applies to every request made by this client.
func NewHTTPSynthesizer(baseURL string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize converts one utterance of text to audio with the given voice
// and tone parameters. The returned bytes are a complete encoded audio clip.
func (c *HTTPSynthesizer) Synthesize(
	ctx context.Context,
	text, voiceID string,
	params core.SynthesisParams,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	if voiceID == "" {
		return nil, ErrVoiceIDEmpty
	}

	requestBody, err := json.Marshal(synthesizeRequest{
		Text:          text,
		VoiceSettings: params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := c.baseURL + apiSynthesizePrefix + voiceID

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to reach synthesis provider at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudioData
	}

	return audioData, nil
}

// HealthCheck verifies the synthesis provider is reachable. Batches perform
// this once up front to fail fast instead of failing on the first utterance.
func (c *HTTPSynthesizer) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for provider at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured provider error, falling back to
// the raw body so diagnostics are never lost.
func (c *HTTPSynthesizer) parseErrorResponse(resp *http.Response) error {
	var errorResp providerErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtProviderWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(errFmtProviderNonOK, resp.Status, string(body))
}
