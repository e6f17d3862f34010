package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"content-rag/internal/ingest"
	"content-rag/internal/models"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api/notes", func(r chi.Router) {
		r.Post("/", s.uploadNotesHandler())
		r.Post("/ask", s.askClassHandler(models.ClassNotes))
		s.registerRecordRoutes(r, models.ClassNotes)
	})
	r.Route("/api/papers", func(r chi.Router) {
		r.Post("/", s.uploadPapersHandler())
		s.registerRecordRoutes(r, models.ClassPapers)
	})
	r.Route("/api/audio", func(r chi.Router) {
		r.Post("/", s.uploadAudioHandler())
		r.Put("/{id}/title", s.updateTitleHandler(models.ClassAudio))
		r.Get("/{id}/media", s.audioMediaHandler())
		s.registerRecordRoutes(r, models.ClassAudio)
	})
	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/", s.uploadVideoHandler())
		s.registerRecordRoutes(r, models.ClassVideos)
	})
	r.Post("/api/ask", s.askAllHandler())
}

func (s *Server) registerRecordRoutes(r chi.Router, class models.ContentClass) {
	r.Get("/", s.listHandler(class))
	r.Get("/{id}", s.getHandler(class))
	r.Delete("/{id}", s.deleteHandler(class))
	r.Post("/{id}/ask", s.askRecordHandler(class))
}

type uploadResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) ingestAndRespond(w http.ResponseWriter, r *http.Request, req ingest.Request) {
	rec, err := s.ingester.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05.000000Z07:00"),
	})
}

func (s *Server) uploadNotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.parseUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer form.RemoveAll()

		md := &models.NoteMetadata{
			Category: formValue(form, "category"),
			Exam:     formValue(form, "exam"),
			Paper:    formValue(form, "paper"),
			Subject:  formValue(form, "subject"),
			Topics:   formValue(form, "topics"),
		}
		s.ingestAndRespond(w, r, ingest.Request{
			Class:    models.ClassNotes,
			Payloads: payloads(form, "files"),
			Title:    formValue(form, "title"),
			Metadata: md,
		})
	}
}

func (s *Server) uploadPapersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.parseUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer form.RemoveAll()

		s.ingestAndRespond(w, r, ingest.Request{
			Class:    models.ClassPapers,
			Payloads: payloads(form, "files"),
			Title:    formValue(form, "title"),
		})
	}
}

func (s *Server) uploadAudioHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.parseUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer form.RemoveAll()

		s.ingestAndRespond(w, r, ingest.Request{
			Class:    models.ClassAudio,
			Payloads: payloads(form, "file"),
			Title:    formValue(form, "title"),
		})
	}
}

func (s *Server) uploadVideoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		s.ingestAndRespond(w, r, ingest.Request{
			Class:     models.ClassVideos,
			SourceURL: strings.TrimSpace(body.URL),
			Title:     body.Title,
		})
	}
}

func (s *Server) listHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coll, err := s.store.Collection(class)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := coll.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []models.Summary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) getHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.lookup(r, class)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) deleteHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recordID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		coll, err := s.store.Collection(class)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := coll.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
	}
}

func (s *Server) updateTitleHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recordID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		coll, err := s.store.Collection(class)
		if err != nil {
			writeError(w, r, err)
			return
		}
		title := strings.TrimSpace(body.Title)
		if err := coll.UpdateTitle(r.Context(), id, title); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "title": title})
	}
}

func (s *Server) audioMediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.lookup(r, models.ClassAudio)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rec.AudioType != "" {
			w.Header().Set("Content-Type", rec.AudioType)
		}
		http.ServeContent(w, r, "", rec.CreatedAt, bytes.NewReader(rec.Audio))
	}
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) askRecordHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recordID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body askRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		ans, err := s.asker.AskRecord(r.Context(), class, id, body.Question)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

func (s *Server) askClassHandler(class models.ContentClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body askRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		ans, err := s.asker.AskClass(r.Context(), class, body.Question)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

func (s *Server) askAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body askRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		ans, err := s.asker.AskAll(r.Context(), body.Question)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

func (s *Server) lookup(r *http.Request, class models.ContentClass) (*models.ContentRecord, error) {
	id, err := recordID(r)
	if err != nil {
		return nil, err
	}
	coll, err := s.store.Collection(class)
	if err != nil {
		return nil, err
	}
	return coll.Get(r.Context(), id)
}

// parseUpload reads a multipart body. A request that is not multipart at all
// carries no file.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, models.ErrNoFile
		}
		return nil, err
	}
	return r.MultipartForm, nil
}

func payloads(form *multipart.Form, field string) []ingest.Payload {
	var out []ingest.Payload
	for _, fh := range form.File[field] {
		out = append(out, ingest.FromFileHeader(fh))
	}
	return out
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func recordID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", models.ErrValidation, raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}
