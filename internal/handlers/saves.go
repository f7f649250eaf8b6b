package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/snapshot"
	"github.com/jwebster45206/npc-engine/pkg/storage"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

type SaveResponse struct {
	Slot   string `json:"slot"`
	Status string `json:"status"`
}

type SavesHandler struct {
	world   *world.World
	storage storage.Storage
	logger  *slog.Logger
}

func NewSavesHandler(w *world.World, store storage.Storage, logger *slog.Logger) *SavesHandler {
	return &SavesHandler{world: w, storage: store, logger: logger}
}

// ServeHTTP handles
// GET    /v1/saves        - list slots
// POST   /v1/saves/{slot} - save the world to slot
// PUT    /v1/saves/{slot} - load the world from slot
// DELETE /v1/saves/{slot} - delete slot
func (h *SavesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slot := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/saves"), "/")

	if slot == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, h.logger, r)
			return
		}
		slots, err := h.storage.ListSnapshots(r.Context())
		if err != nil {
			h.logger.Error("Failed to list saves", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to list saves")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string][]string{"slots": slots})
		return
	}

	if err := storage.ValidateSlot(slot); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := h.world.Save(r.Context(), slot); err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusCreated, SaveResponse{Slot: slot, Status: "saved"})
	case http.MethodPut:
		if err := h.world.Load(r.Context(), slot); err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, SaveResponse{Slot: slot, Status: "loaded"})
	case http.MethodDelete:
		if err := h.storage.DeleteSnapshot(r.Context(), slot); err != nil {
			h.writeSnapshotError(w, snapshot.Classify(slot, err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, h.logger, r)
	}
}

func (h *SavesHandler) writeSnapshotError(w http.ResponseWriter, err error) {
	var se *snapshot.Error
	if !errors.As(err, &se) {
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case snapshot.KindNotFound:
		status = http.StatusNotFound
	case snapshot.KindVersionMismatch:
		status = http.StatusConflict
	case snapshot.KindCorrupted, snapshot.KindChecksumMismatch:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, h.logger, status, ErrorResponse{Error: se.Error(), Kind: string(se.Kind)})
}
