package ingest

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Payload is one uploaded file. Open is called at most once.
type Payload struct {
	Filename  string
	MediaType string
	Open      func() (io.ReadCloser, error)
}

// FromFileHeader wraps a multipart upload.
func FromFileHeader(fh *multipart.FileHeader) Payload {
	return Payload{
		Filename:  fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromPath wraps a local file. The media kind is taken from its extension.
func FromPath(path string) Payload {
	return Payload{
		Filename: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// spool copies the payload into dir under a name derived from its position,
// keeping only the extension of the client-supplied filename.
func spool(dir string, index int, p Payload) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(p.Filename)))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(p.MediaType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("%02d%s", index, ext))

	src, err := p.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", p.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("spooling %s: %w", p.Filename, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("spooling %s: %w", p.Filename, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("spooling %s: %w", p.Filename, err)
	}
	return path, nil
}

// audioType picks the content type stored alongside an audio blob.
func audioType(p Payload) string {
	if mt, _, err := mime.ParseMediaType(p.MediaType); err == nil && strings.HasPrefix(mt, "audio/") {
		return mt
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(p.Filename))); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
