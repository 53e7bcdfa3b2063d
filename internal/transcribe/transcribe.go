// Package transcribe is the speech-to-text boundary: submit audio, get
// text back. No state is retained between calls.
package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Recognizer converts recorded audio into text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// HTTPRecognizer calls an external transcription service over HTTP.
// The service takes base64-encoded audio and returns the transcript,
// mirroring the cloud speech APIs this fronts.
type HTTPRecognizer struct {
	URL    string
	Client *http.Client
}

func NewHTTPRecognizer(url string) *HTTPRecognizer {
	return &HTTPRecognizer{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type recognizeRequest struct {
	Audio string `json:"audio"`
}

type recognizeResponse struct {
	Transcription string `json:"transcription"`
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	body, err := json.Marshal(recognizeRequest{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return "", fmt.Errorf("encode transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call transcription service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription service returned %s", resp.Status)
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return out.Transcription, nil
}
