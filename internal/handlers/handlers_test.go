package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"notesdb/internal/report"
	report_mocks "notesdb/internal/report/mocks"
	"notesdb/internal/storage"
	storage_mocks "notesdb/internal/storage/mocks"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(ctx context.Context) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", method: http.MethodGet, wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "database down", method: http.MethodGet, pingErr: errors.New("closed"), wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
		{name: "wrong method", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tt.pingErr})
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody == "" {
				return
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantBody)
			}
		})
	}
}

func TestStatsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := report_mocks.NewMockGenerator(ctrl)
	h := NewStatsHandler(gen, 0)

	t.Run("default top", func(t *testing.T) {
		gen.EXPECT().Generate(gomock.Any(), report.DefaultTopN).Return(&report.Report{
			Totals: report.Totals{Notes: 7},
		}, nil)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var rep report.Report
		if err := json.NewDecoder(w.Body).Decode(&rep); err != nil {
			t.Fatal(err)
		}
		if rep.Totals.Notes != 7 {
			t.Errorf("Totals.Notes = %d, want 7", rep.Totals.Notes)
		}
	})

	t.Run("explicit top", func(t *testing.T) {
		gen.EXPECT().Generate(gomock.Any(), 3).Return(&report.Report{}, nil)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?top=3", nil))

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("invalid top", func(t *testing.T) {
		for _, q := range []string{"x", "0", "-2", "1001"} {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?top="+q, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("top=%s status = %d, want 400", q, w.Code)
			}
		}
	})

	t.Run("generator error", func(t *testing.T) {
		gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk"))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

func serveNote(h http.Handler, noteID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/api/notes/{noteID}", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes/"+noteID, nil))
	return w
}

func TestNoteHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storage_mocks.NewMockNoteStore(ctrl)
	h := NewNoteHandler(store)
	created := time.Date(2025, 11, 8, 21, 59, 6, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		store.EXPECT().GetByID(gomock.Any(), "note_0001").Return(&storage.NoteRecord{
			NoteID:      "note_0001",
			Title:       "Trip",
			CreatedRaw:  "Saturday, November 8, 2025 at 21:59:06",
			Created:     &created,
			ModifiedRaw: "whenever",
		}, nil)

		w := serveNote(h, "note_0001")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp NoteResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Title != "Trip" || resp.Created == nil || !resp.Created.Equal(created) {
			t.Errorf("response = %+v", resp)
		}
		if resp.Modified != nil || resp.ModifiedRaw != "whenever" {
			t.Errorf("Modified = %v, raw %q", resp.Modified, resp.ModifiedRaw)
		}
	})

	t.Run("not found", func(t *testing.T) {
		store.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

		if w := serveNote(h, "missing"); w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("store error", func(t *testing.T) {
		store.EXPECT().GetByID(gomock.Any(), "broken").Return(nil, errors.New("locked"))

		if w := serveNote(h, "broken"); w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}
