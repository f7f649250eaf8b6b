package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

// apiClient talks to the npc-engine HTTP API.
type apiClient struct {
	http    *http.Client
	baseURL string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON (if non-nil) and decodes a successful response into out.
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listCharacters() ([]world.CharacterStatus, error) {
	var out []world.CharacterStatus
	err := c.do(http.MethodGet, "/v1/characters", nil, &out)
	return out, err
}

func (c *apiClient) getCharacter(id int) (*world.CharacterStatus, error) {
	var out world.CharacterStatus
	if err := c.do(http.MethodGet, fmt.Sprintf("/v1/characters/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) startDialogue(characterID int, tree string) (*handlers.DialogueResponse, error) {
	var out handlers.DialogueResponse
	req := handlers.StartDialogueRequest{CharacterID: characterID, Tree: tree}
	if err := c.do(http.MethodPost, "/v1/dialogue", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) selectOption(index int) (*handlers.DialogueResponse, error) {
	var out handlers.DialogueResponse
	if err := c.do(http.MethodPost, "/v1/dialogue/select", handlers.SelectOptionRequest{Option: index}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) endDialogue() error {
	return c.do(http.MethodDelete, "/v1/dialogue", nil, nil)
}

func (c *apiClient) save(slot string) error {
	return c.do(http.MethodPost, "/v1/saves/"+slot, nil, nil)
}

func (c *apiClient) load(slot string) error {
	return c.do(http.MethodPut, "/v1/saves/"+slot, nil, nil)
}
