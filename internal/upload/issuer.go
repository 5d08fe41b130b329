package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const userAgent = "gazerec/0.1.0"

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// ValidateFilename checks name against the characters the issuer accepts.
func ValidateFilename(name string) error {
	if !filenamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// Target is a presigned destination.
type Target struct {
	UploadURL string `json:"uploadUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// Issuer hands out presigned upload URLs.
type Issuer interface {
	Issue(ctx context.Context, sessionID, filename string) (Target, error)
}

// HTTPIssuer requests targets by POSTing {sessionId, filename} as JSON.
type HTTPIssuer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPIssuer returns an issuer for endpoint. A nil client gets a 30
// second timeout.
func NewHTTPIssuer(endpoint string, client *http.Client) *HTTPIssuer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPIssuer{endpoint: strings.TrimSpace(endpoint), client: client}
}

type issueRequest struct {
	SessionID string `json:"sessionId"`
	Filename  string `json:"filename"`
}

// Issue validates the request locally and then asks the endpoint for a URL.
func (i *HTTPIssuer) Issue(ctx context.Context, sessionID, filename string) (Target, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Target{}, errors.New("sessionId is required")
	}
	if err := ValidateFilename(filename); err != nil {
		return Target{}, err
	}
	if i.endpoint == "" {
		return Target{}, errors.New("upload issuer url is not configured")
	}

	body, err := json.Marshal(issueRequest{SessionID: sessionID, Filename: filename})
	if err != nil {
		return Target{}, fmt.Errorf("encode issue request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return Target{}, fmt.Errorf("build issue request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return Target{}, fmt.Errorf("request upload url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Target{}, fmt.Errorf("issuer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var target Target
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return Target{}, fmt.Errorf("decode issuer response: %w", err)
	}
	if target.UploadURL == "" {
		return Target{}, errors.New("issuer response missing uploadUrl")
	}
	return target, nil
}
