package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/world"
)

type CharactersHandler struct {
	world  *world.World
	logger *slog.Logger
}

func NewCharactersHandler(w *world.World, logger *slog.Logger) *CharactersHandler {
	return &CharactersHandler{world: w, logger: logger}
}

// ServeHTTP handles
// GET /v1/characters      - every character's status
// GET /v1/characters/{id} - one character's status
func (h *CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r)
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/characters"), "/")
	if idStr == "" {
		writeJSON(w, h.logger, http.StatusOK, h.world.Statuses())
		return
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid character ID")
		return
	}
	status, ok := h.world.Status(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Character not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, status)
}
