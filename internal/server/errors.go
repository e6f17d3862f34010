package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"content-rag/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeNoFile           = "no_file"
	codeMissingField     = "missing_field"
	codeInvalidRequest   = "invalid_request"
	codeUnsupportedMedia = "unsupported_media_type"
	codeNotFound         = "not_found"
	codeEmptyCorpus      = "empty_corpus"
	codePayloadTooLarge  = "payload_too_large"
	codeInternal         = "internal_failure"
)

type errorClass struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorClasses = []errorClass{
	{models.ErrNoFile, http.StatusBadRequest, codeNoFile},
	{models.ErrMissingField, http.StatusBadRequest, codeMissingField},
	{models.ErrValidation, http.StatusBadRequest, codeInvalidRequest},
	{models.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, codeUnsupportedMedia},
	{models.ErrNotFound, http.StatusNotFound, codeNotFound},
	{models.ErrEmptyCorpus, http.StatusNotFound, codeEmptyCorpus},
	{models.ErrEmbedding, http.StatusBadGateway, codeInternal},
	{models.ErrTitleGeneration, http.StatusBadGateway, codeInternal},
	{models.ErrGeneration, http.StatusBadGateway, codeInternal},
	{models.ErrExtraction, http.StatusInternalServerError, codeInternal},
	{models.ErrDimensionMismatch, http.StatusInternalServerError, codeInternal},
	{models.ErrPersistence, http.StatusInternalServerError, codeInternal},
}

// writeError maps err onto a status code and a stable error code. Server-side
// failures report only their category; the detail goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := http.StatusInternalServerError, codeInternal, "internal failure"

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status, code, msg = http.StatusRequestEntityTooLarge, codePayloadTooLarge, err.Error()
	} else {
		for _, c := range errorClasses {
			if errors.Is(err, c.target) {
				status, code = c.status, c.code
				if status < http.StatusInternalServerError {
					msg = err.Error()
				} else {
					msg = c.target.Error()
				}
				break
			}
		}
	}

	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
