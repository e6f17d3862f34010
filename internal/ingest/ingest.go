package ingest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"content-rag/internal/db"
	"content-rag/internal/embedding"
	"content-rag/internal/models"
)

// Extractor turns the file at path into text.
type Extractor interface {
	Extract(ctx context.Context, path string, kind models.MediaKind) (string, error)
}

// DocumentExtractor is an Extractor that declares the kinds it handles.
type DocumentExtractor interface {
	Extractor
	Kinds() []models.MediaKind
}

// Registry selects the extractor variant for each media kind.
type Registry map[models.MediaKind]Extractor

// NewRegistry routes the kinds docs declares to docs and audio to audio.
func NewRegistry(docs DocumentExtractor, audio Extractor) Registry {
	r := Registry{models.KindAudio: audio}
	for _, k := range docs.Kinds() {
		r[k] = docs
	}
	return r
}

type Titler interface {
	Title(ctx context.Context, text string) (string, error)
}

// VideoSource fetches the audio track of a video URL into dir.
type VideoSource interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

type Store interface {
	Collection(class models.ContentClass) (db.Collection, error)
}

type Request struct {
	Class     models.ContentClass
	Payloads  []Payload
	Title     string
	Metadata  *models.NoteMetadata
	SourceURL string
}

var acceptedKinds = map[models.ContentClass][]models.MediaKind{
	models.ClassNotes:  models.DocumentKinds,
	models.ClassPapers: models.DocumentKinds,
	models.ClassAudio:  {models.KindAudio},
}

type Orchestrator struct {
	store     Store
	registry  Registry
	embedder  embedding.Embedder
	titler    Titler
	video     VideoSource
	uploadDir string
	maxFiles  int
}

func NewOrchestrator(store Store, registry Registry, embedder embedding.Embedder, titler Titler, video VideoSource, uploadDir string, maxFiles int) *Orchestrator {
	return &Orchestrator{
		store:     store,
		registry:  registry,
		embedder:  embedder,
		titler:    titler,
		video:     video,
		uploadDir: uploadDir,
		maxFiles:  maxFiles,
	}
}

// Ingest extracts, titles, embeds and persists one upload. Nothing is stored
// unless every stage succeeds, and the request's temporary files are removed
// on every path.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (*models.ContentRecord, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	coll, err := o.store.Collection(req.Class)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	dir, err := os.MkdirTemp(o.uploadDir, "ingest-*")
	if err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to remove artifacts")
		}
	}()

	rec := &models.ContentRecord{Class: req.Class}

	var texts []string
	if req.Class == models.ClassVideos {
		rec.SourceURL = req.SourceURL
		text, err := o.acquireVideo(ctx, req.SourceURL, dir)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	} else {
		for i, p := range req.Payloads {
			text, err := o.extractPayload(ctx, req.Class, dir, i, p, rec)
			if err != nil {
				return nil, err
			}
			texts = append(texts, text)
		}
	}

	combined := strings.TrimSpace(strings.Join(texts, " "))
	if combined == "" {
		return nil, &models.ExtractionError{Kind: models.KindText}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title, err = o.titler.Title(ctx, combined)
		if err != nil {
			return nil, err
		}
	}

	vec, err := o.embedder.Embed(ctx, combined)
	if err != nil {
		return nil, err
	}

	rec.Title = title
	rec.Text = combined
	rec.Vector = vec
	if req.Class == models.ClassNotes && req.Metadata != nil && !req.Metadata.Empty() {
		md := *req.Metadata
		rec.Metadata = &md
	}

	if err := coll.Insert(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("class", string(rec.Class)).
		Int64("id", rec.ID).
		Str("title", rec.Title).
		Int("sources", len(texts)).
		Int("chars", len(rec.Text)).
		Msg("Ingested content")
	return rec, nil
}

func (o *Orchestrator) validate(req Request) error {
	if len(req.Payloads) > o.maxFiles {
		return fmt.Errorf("%w: at most %d files per upload, got %d", models.ErrValidation, o.maxFiles, len(req.Payloads))
	}

	switch req.Class {
	case models.ClassNotes:
		if len(req.Payloads) == 0 {
			return models.ErrNoFile
		}
		if strings.TrimSpace(req.Title) == "" {
			return models.MissingField("title")
		}
		if md := req.Metadata; md != nil && !md.Empty() && !md.Complete() {
			return models.MissingField(strings.Join(md.Missing(), ", "))
		}

	case models.ClassPapers:
		if len(req.Payloads) == 0 {
			return models.ErrNoFile
		}

	case models.ClassAudio:
		if len(req.Payloads) == 0 {
			return models.ErrNoFile
		}
		if len(req.Payloads) > 1 {
			return fmt.Errorf("%w: audio uploads take exactly one file", models.ErrValidation)
		}

	case models.ClassVideos:
		if strings.TrimSpace(req.SourceURL) == "" {
			return models.MissingField("url")
		}
		u, err := url.Parse(req.SourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: invalid video url %q", models.ErrValidation, req.SourceURL)
		}

	default:
		return fmt.Errorf("%w: unknown content class %q", models.ErrValidation, req.Class)
	}
	return nil
}

func (o *Orchestrator) extractPayload(ctx context.Context, class models.ContentClass, dir string, index int, p Payload, rec *models.ContentRecord) (string, error) {
	kind, err := models.KindFor(p.MediaType, p.Filename)
	if err != nil {
		return "", err
	}
	if !slices.Contains(acceptedKinds[class], kind) {
		return "", &models.UnsupportedMediaError{MediaType: mediaLabel(p, kind)}
	}

	path, err := spool(dir, index, p)
	if err != nil {
		return "", err
	}

	text, err := o.extract(ctx, path, kind, p)
	if err != nil {
		return "", err
	}

	if class == models.ClassAudio {
		blob, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading audio %s: %w", p.Filename, err)
		}
		rec.Audio = blob
		rec.AudioType = audioType(p)
	}
	return text, nil
}

func (o *Orchestrator) acquireVideo(ctx context.Context, sourceURL, dir string) (string, error) {
	if o.video == nil {
		return "", &models.UnsupportedMediaError{MediaType: "video"}
	}
	path, err := o.video.Download(ctx, sourceURL, dir)
	if err != nil {
		return "", err
	}
	return o.extract(ctx, path, models.KindAudio, Payload{Filename: sourceURL})
}

func (o *Orchestrator) extract(ctx context.Context, path string, kind models.MediaKind, p Payload) (string, error) {
	ex, ok := o.registry[kind]
	if !ok || ex == nil {
		return "", &models.UnsupportedMediaError{MediaType: mediaLabel(p, kind)}
	}

	text, err := ex.Extract(ctx, path, kind)
	if err != nil {
		return "", err
	}
	log.Debug().Str("file", p.Filename).Str("kind", string(kind)).Int("chars", len(text)).Msg("Extracted payload")
	return text, nil
}

func mediaLabel(p Payload, kind models.MediaKind) string {
	if p.MediaType != "" {
		return p.MediaType
	}
	return string(kind)
}
