package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

// apiResponse is a raw API reply. Error is filled from the error body on
// non-2xx statuses.
type apiResponse struct {
	StatusCode int
	Body       []byte
	Error      string
}

func (r apiResponse) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DoJSON sends body as JSON (if non-nil) and returns the raw reply.
func DoJSON(ctx context.Context, client *http.Client, method, url string, body any) (apiResponse, error) {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return apiResponse{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to send %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	out := apiResponse{StatusCode: resp.StatusCode, Body: respBody}
	if !out.ok() {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			out.Error = errResp.Error
		} else {
			out.Error = string(respBody)
		}
	}
	return out, nil
}

// GetCharacter fetches one character's status.
func GetCharacter(ctx context.Context, client *http.Client, baseURL string, id int) (*world.CharacterStatus, error) {
	resp, err := DoJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/v1/characters/%d", baseURL, id), nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, fmt.Errorf("get character %d returned %d: %s", id, resp.StatusCode, resp.Error)
	}
	var cs world.CharacterStatus
	if err := json.Unmarshal(resp.Body, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode character: %w", err)
	}
	return &cs, nil
}
