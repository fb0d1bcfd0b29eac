package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCorrector talks to a grammar-correction service over HTTP. The service
// receives one word plus its context and returns the corrected form.
type HTTPCorrector struct {
	url    string
	client *http.Client
}

// NewHTTPCorrector creates a corrector client. A non-positive timeout selects
// 30 seconds per request.
func NewHTTPCorrector(url string, timeout time.Duration) *HTTPCorrector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCorrector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type correctionRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

type correctionResponse struct {
	Corrected string `json:"corrected"`
}

// Correct sends one word for correction.
func (c *HTTPCorrector) Correct(ctx context.Context, word, context string) (string, error) {
	payload, err := json.Marshal(correctionRequest{Word: word, Context: context})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("corrector http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed correctionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse corrector response: %w", err)
	}
	return parsed.Corrected, nil
}
