package models

import (
	"mime"
	"path/filepath"
	"strings"
)

// MediaKind is the explicit tag used to select an extractor variant.
type MediaKind string

const (
	KindPDF      MediaKind = "pdf"
	KindDOCX     MediaKind = "docx"
	KindPPTX     MediaKind = "pptx"
	KindXLSX     MediaKind = "xlsx"
	KindXLSM     MediaKind = "xlsm"
	KindMarkdown MediaKind = "markdown"
	KindText     MediaKind = "text"
	KindAudio    MediaKind = "audio"
)

// DocumentKinds are the kinds handled by the document extractor.
var DocumentKinds = []MediaKind{KindPDF, KindDOCX, KindPPTX, KindXLSX, KindXLSM, KindMarkdown, KindText}

var mimeKinds = map[string]MediaKind{
	"application/pdf": KindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   KindDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": KindPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         KindXLSX,
	"application/vnd.ms-excel.sheet.macroenabled.12":                            KindXLSM,
	"text/markdown":   KindMarkdown,
	"text/x-markdown": KindMarkdown,
	"text/plain":      KindText,
	"audio/mpeg":      KindAudio,
	"audio/mp3":       KindAudio,
	"audio/mp4":       KindAudio,
	"audio/x-m4a":     KindAudio,
	"audio/m4a":       KindAudio,
	"audio/wav":       KindAudio,
	"audio/x-wav":     KindAudio,
	"audio/wave":      KindAudio,
	"audio/webm":      KindAudio,
	"audio/ogg":       KindAudio,
	"audio/flac":      KindAudio,
}

var extKinds = map[string]MediaKind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".pptx": KindPPTX,
	".xlsx": KindXLSX,
	".xlsm": KindXLSM,
	".md":   KindMarkdown,
	".txt":  KindText,
	".mp3":  KindAudio,
	".m4a":  KindAudio,
	".mp4":  KindAudio,
	".wav":  KindAudio,
	".webm": KindAudio,
	".ogg":  KindAudio,
	".flac": KindAudio,
}

// KindFor resolves the declared media type of a payload. The filename
// extension is consulted only when the declared type carries no information.
func KindFor(mediaType, filename string) (MediaKind, error) {
	declared := strings.ToLower(strings.TrimSpace(mediaType))
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}

	if declared != "" && declared != "application/octet-stream" {
		if kind, ok := mimeKinds[declared]; ok {
			return kind, nil
		}
		return "", &UnsupportedMediaError{MediaType: mediaType}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := extKinds[ext]; ok {
		return kind, nil
	}
	if declared == "" {
		declared = ext
	}
	return "", &UnsupportedMediaError{MediaType: declared}
}
