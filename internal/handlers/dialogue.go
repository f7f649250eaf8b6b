package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

type StartDialogueRequest struct {
	CharacterID int    `json:"character_id"`
	Tree        string `json:"tree,omitempty"`
}

type SelectOptionRequest struct {
	Option int `json:"option"`
}

type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type DialogueResponse struct {
	Active    bool              `json:"active"`
	Session   *dialogue.Session `json:"session,omitempty"`
	Character string            `json:"character,omitempty"`
	Text      string            `json:"text,omitempty"`
	Emotion   string            `json:"emotion,omitempty"`
	Options   []OptionView      `json:"options,omitempty"`
	Outcome   *dialogue.Outcome `json:"outcome,omitempty"`
}

type DialogueHandler struct {
	world  *world.World
	logger *slog.Logger
}

func NewDialogueHandler(w *world.World, logger *slog.Logger) *DialogueHandler {
	return &DialogueHandler{world: w, logger: logger}
}

// ServeHTTP routes dialogue requests
// POST   /v1/dialogue        - start a conversation
// GET    /v1/dialogue        - current session and options
// POST   /v1/dialogue/select - choose an option by index
// DELETE /v1/dialogue        - end the conversation
func (h *DialogueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/dialogue"), "/")

	switch {
	case path == "select" && r.Method == http.MethodPost:
		h.handleSelect(w, r)
	case path == "" && r.Method == http.MethodPost:
		h.handleStart(w, r)
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, h.current(nil))
	case path == "" && r.Method == http.MethodDelete:
		ended := h.world.Dialogue.EndSession()
		h.logger.Debug("End dialogue requested", "ended", ended)
		writeJSON(w, h.logger, http.StatusOK, h.current(nil))
	case path == "" || path == "select":
		methodNotAllowed(w, h.logger, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *DialogueHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartDialogueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid start dialogue request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.world.Dialogue.StartSession(req.CharacterID, req.Tree); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, dialogue.ErrSessionActive):
			status = http.StatusConflict
		case errors.Is(err, dialogue.ErrUnknownCharacter):
			status = http.StatusNotFound
		case errors.Is(err, dialogue.ErrNoEligibleTree), errors.Is(err, dialogue.ErrNoEligibleNode):
			status = http.StatusUnprocessableEntity
		}
		h.logger.Info("Dialogue not started", "character_id", req.CharacterID, "tree", req.Tree, "error", err)
		writeError(w, h.logger, status, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, h.current(nil))
}

func (h *DialogueHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.world.Dialogue.SelectOption(req.Option)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, dialogue.ErrNoSession):
			status = http.StatusConflict
		case errors.Is(err, dialogue.ErrInvalidOption):
			status = http.StatusBadRequest
		}
		writeError(w, h.logger, status, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.current(&out))
}

func (h *DialogueHandler) current(out *dialogue.Outcome) DialogueResponse {
	resp := DialogueResponse{Outcome: out}
	session, ok := h.world.Dialogue.Session()
	if !ok {
		return resp
	}
	node, ok := h.world.Dialogue.CurrentNode()
	if !ok {
		return resp
	}
	resp.Active = true
	resp.Session = &session
	if c, ok := h.world.Registry.Get(session.CharacterID); ok {
		resp.Character = c.Name
	}
	resp.Text = node.Text
	resp.Emotion = node.Emotion
	for i, o := range node.Options {
		resp.Options = append(resp.Options, OptionView{Index: i, Text: o.Text})
	}
	return resp
}
