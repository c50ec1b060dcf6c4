package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"notesdb/internal/contextutil"
	"notesdb/internal/storage"
)

// NoteGetter loads one imported note. storage.NoteStore implements it.
type NoteGetter interface {
	GetByID(ctx context.Context, noteID string) (*storage.NoteRecord, error)
}

// NoteHandler serves one imported note as JSON.
type NoteHandler struct {
	notes NoteGetter
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes NoteGetter) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// NoteResponse is the JSON form of a note row.
//
// swagger:model NoteResponse
type NoteResponse struct {
	NoteID          string     `json:"note_id"`
	OriginalIndex   int        `json:"original_index"`
	Title           string     `json:"title"`
	Folder          string     `json:"folder"`
	Account         string     `json:"account"`
	CoreDataID      string     `json:"coredata_id,omitempty"`
	CreatedRaw      string     `json:"created_raw"`
	Created         *time.Time `json:"created_datetime"`
	ModifiedRaw     string     `json:"modified_raw"`
	Modified        *time.Time `json:"modified_datetime"`
	Status          string     `json:"status"`
	Processed       bool       `json:"processed"`
	PrimaryCategory string     `json:"primary_category,omitempty"`
	PlainText       string     `json:"plain_text"`
	ContentLength   int        `json:"content_length"`
}

// ServeHTTP handles GET /api/notes/{noteID}.
func (h *NoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, err := url.PathUnescape(strings.TrimSpace(chi.URLParam(r, "noteID")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	if noteID == "" {
		writeError(w, http.StatusBadRequest, "note id is required")
		return
	}

	note, err := h.notes.GetByID(ctx, noteID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load note", "note_id", noteID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load note")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NoteResponse{
		NoteID:          note.NoteID,
		OriginalIndex:   note.OriginalIndex,
		Title:           note.Title,
		Folder:          note.Folder,
		Account:         note.Account,
		CoreDataID:      note.CoreDataID,
		CreatedRaw:      note.CreatedRaw,
		Created:         note.Created,
		ModifiedRaw:     note.ModifiedRaw,
		Modified:        note.Modified,
		Status:          note.Status,
		Processed:       note.Processed,
		PrimaryCategory: note.PrimaryCategory,
		PlainText:       note.PlainText,
		ContentLength:   note.ContentLength,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode note", "error", err)
	}
}
