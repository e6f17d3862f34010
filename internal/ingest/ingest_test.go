package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"content-rag/internal/db"
	"content-rag/internal/embedding"
	"content-rag/internal/models"
	"content-rag/internal/parser"
)

type fakeTitler struct {
	calls int
	title string
	err   error
}

func (f *fakeTitler) Title(ctx context.Context, text string) (string, error) {
	f.calls++
	return f.title, f.err
}

type fakeTranscriber struct {
	text  string
	paths []string
}

func (f *fakeTranscriber) Extract(ctx context.Context, path string, kind models.MediaKind) (string, error) {
	f.paths = append(f.paths, path)
	return f.text, nil
}

type fakeVideo struct {
	err error
}

func (f *fakeVideo) Download(ctx context.Context, url, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, "video.mp3")
	return path, os.WriteFile(path, []byte("audio"), 0o644)
}

// lengthEmbedder embeds text as (len, words, 1) and records its inputs.
type lengthEmbedder struct {
	inputs []string
	err    error
}

func (e *lengthEmbedder) embedder() embedding.Embedder {
	return embedding.New("fake", func(ctx context.Context, text string) ([]float32, error) {
		e.inputs = append(e.inputs, text)
		if e.err != nil {
			return nil, e.err
		}
		return vectorFor(text), nil
	}, 3)
}

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), float32(len(strings.Fields(text))), 1}
}

type fixture struct {
	store       *db.Store
	orch        *Orchestrator
	uploadDir   string
	titler      *fakeTitler
	embed       *lengthEmbedder
	transcriber *fakeTranscriber
	video       *fakeVideo
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:       store,
		uploadDir:   filepath.Join(t.TempDir(), "uploads"),
		titler:      &fakeTitler{title: "Generated Title"},
		embed:       &lengthEmbedder{},
		transcriber: &fakeTranscriber{text: "spoken lecture transcript"},
		video:       &fakeVideo{},
	}
	f.orch = NewOrchestrator(store, NewRegistry(parser.New(), f.transcriber), f.embed.embedder(), f.titler, f.video, f.uploadDir, 5)
	return f
}

func textPayload(name, mediaType, body string) Payload {
	return Payload{
		Filename:  name,
		MediaType: mediaType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func (f *fixture) records(t *testing.T, class models.ContentClass) []*models.ContentRecord {
	t.Helper()
	coll, err := f.store.Collection(class)
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	all, err := coll.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	return all
}

func (f *fixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not cleaned up: %d entries left", len(entries))
	}
}

func TestIngestNotesCombinesDocuments(t *testing.T) {
	f := setup(t)
	md := &models.NoteMetadata{Category: "science", Exam: "midterm", Paper: "2", Subject: "biology", Topics: "cells"}

	rec, err := f.orch.Ingest(context.Background(), Request{
		Class: models.ClassNotes,
		Payloads: []Payload{
			textPayload("a.txt", "text/plain", "A"),
			textPayload("b.md", "text/markdown", "B"),
		},
		Title:    "Chapter 1",
		Metadata: md,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if rec.Text != "A B" {
		t.Errorf("text = %q, want %q", rec.Text, "A B")
	}
	if rec.Title != "Chapter 1" {
		t.Errorf("title = %q", rec.Title)
	}
	if f.titler.calls != 0 {
		t.Errorf("titler called %d times for a titled upload", f.titler.calls)
	}

	stored := f.records(t, models.ClassNotes)
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored note, got %d", len(stored))
	}
	want := vectorFor("A B")
	for i := range want {
		if stored[0].Vector[i] != want[i] {
			t.Fatalf("vector = %v, want embed(combined) = %v", stored[0].Vector, want)
		}
	}
	if stored[0].Metadata == nil || *stored[0].Metadata != *md {
		t.Errorf("metadata = %+v", stored[0].Metadata)
	}
	f.assertNoArtifacts(t)
}

func TestIngestPapersGeneratesTitle(t *testing.T) {
	f := setup(t)

	rec, err := f.orch.Ingest(context.Background(), Request{
		Class:    models.ClassPapers,
		Payloads: []Payload{textPayload("p.txt", "text/plain", "Question 1: define entropy.")},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.Title != "Generated Title" || f.titler.calls != 1 {
		t.Errorf("title = %q after %d titler calls", rec.Title, f.titler.calls)
	}
}

// failingStore hands out collections whose inserts fail.
type failingStore struct {
	*db.Store
	inserted []*models.ContentRecord
}

type failingCollection struct {
	db.Collection
	store *failingStore
}

func (s *failingStore) Collection(class models.ContentClass) (db.Collection, error) {
	coll, err := s.Store.Collection(class)
	if err != nil {
		return nil, err
	}
	return failingCollection{Collection: coll, store: s}, nil
}

func (c failingCollection) Insert(ctx context.Context, rec *models.ContentRecord) error {
	c.store.inserted = append(c.store.inserted, rec)
	return fmt.Errorf("%w: disk full", models.ErrPersistence)
}

func TestIngestPersistenceFailure(t *testing.T) {
	f := setup(t)
	store := &failingStore{Store: f.store}
	orch := NewOrchestrator(store, NewRegistry(parser.New(), f.transcriber), f.embed.embedder(), f.titler, f.video, f.uploadDir, 5)

	_, err := orch.Ingest(context.Background(), Request{
		Class:    models.ClassPapers,
		Title:    "2020 paper",
		Payloads: []Payload{textPayload("p.txt", "text/plain", "Question 1: define entropy.")},
	})
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
	if len(store.inserted) != 1 || len(store.inserted[0].Vector) != 3 {
		t.Fatalf("insert not attempted with an embedded record: %+v", store.inserted)
	}
	if got := f.records(t, models.ClassPapers); len(got) != 0 {
		t.Errorf("%d records stored", len(got))
	}
	f.assertNoArtifacts(t)
}

func TestIngestTitleFailureStoresNothing(t *testing.T) {
	f := setup(t)
	f.titler.err = models.ErrTitleGeneration

	_, err := f.orch.Ingest(context.Background(), Request{
		Class:    models.ClassPapers,
		Payloads: []Payload{textPayload("p.txt", "text/plain", "content")},
	})
	if !errors.Is(err, models.ErrTitleGeneration) {
		t.Fatalf("got %v, want ErrTitleGeneration", err)
	}
	if n := len(f.records(t, models.ClassPapers)); n != 0 {
		t.Errorf("%d records stored", n)
	}
	f.assertNoArtifacts(t)
}

func TestIngestUnsupportedMedia(t *testing.T) {
	f := setup(t)

	_, err := f.orch.Ingest(context.Background(), Request{
		Class: models.ClassNotes,
		Payloads: []Payload{
			textPayload("a.txt", "text/plain", "fine"),
			textPayload("photo.png", "image/png", "\x89PNG"),
		},
		Title: "Mixed",
	})
	var ume *models.UnsupportedMediaError
	if !errors.As(err, &ume) || ume.MediaType != "image/png" {
		t.Fatalf("got %v, want UnsupportedMediaError{image/png}", err)
	}
	if n := len(f.records(t, models.ClassNotes)); n != 0 {
		t.Errorf("%d records stored", n)
	}
	if len(f.embed.inputs) != 0 {
		t.Errorf("embedder called for a rejected batch")
	}
	f.assertNoArtifacts(t)
}

func TestIngestRejectsAudioInDocumentClass(t *testing.T) {
	f := setup(t)

	_, err := f.orch.Ingest(context.Background(), Request{
		Class:    models.ClassPapers,
		Payloads: []Payload{textPayload("talk.mp3", "audio/mpeg", "ID3")},
	})
	if !errors.Is(err, models.ErrUnsupportedMedia) {
		t.Errorf("got %v, want ErrUnsupportedMedia", err)
	}
}

func TestIngestExtractionFailureAbortsBatch(t *testing.T) {
	f := setup(t)

	_, err := f.orch.Ingest(context.Background(), Request{
		Class: models.ClassNotes,
		Payloads: []Payload{
			textPayload("a.txt", "text/plain", "good"),
			textPayload("empty.txt", "text/plain", "   "),
		},
		Title: "Broken",
	})
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
	if n := len(f.records(t, models.ClassNotes)); n != 0 {
		t.Errorf("%d records stored", n)
	}
	f.assertNoArtifacts(t)
}

func TestIngestEmbeddingFailureStoresNothing(t *testing.T) {
	f := setup(t)
	f.embed.err = errors.New("provider unavailable")

	_, err := f.orch.Ingest(context.Background(), Request{
		Class:    models.ClassNotes,
		Payloads: []Payload{textPayload("a.txt", "text/plain", "content")},
		Title:    "T",
	})
	if !errors.Is(err, models.ErrEmbedding) {
		t.Fatalf("got %v, want ErrEmbedding", err)
	}
	if n := len(f.records(t, models.ClassNotes)); n != 0 {
		t.Errorf("%d records stored", n)
	}
	f.assertNoArtifacts(t)
}

func TestIngestValidation(t *testing.T) {
	f := setup(t)
	doc := textPayload("a.txt", "text/plain", "x")

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"notes without files", Request{Class: models.ClassNotes, Title: "T"}, models.ErrNoFile},
		{"notes without title", Request{Class: models.ClassNotes, Payloads: []Payload{doc}}, models.ErrMissingField},
		{"notes partial metadata", Request{
			Class: models.ClassNotes, Payloads: []Payload{doc}, Title: "T",
			Metadata: &models.NoteMetadata{Category: "science"},
		}, models.ErrMissingField},
		{"papers without files", Request{Class: models.ClassPapers}, models.ErrNoFile},
		{"audio without file", Request{Class: models.ClassAudio}, models.ErrNoFile},
		{"audio with two files", Request{Class: models.ClassAudio, Payloads: []Payload{doc, doc}}, models.ErrValidation},
		{"video without url", Request{Class: models.ClassVideos}, models.ErrMissingField},
		{"video with bad url", Request{Class: models.ClassVideos, SourceURL: "ftp://host/x"}, models.ErrValidation},
		{"too many files", Request{Class: models.ClassPapers, Payloads: []Payload{doc, doc, doc, doc, doc, doc}}, models.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.orch.Ingest(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
	if len(f.embed.inputs) != 0 {
		t.Errorf("embedder called %d times for invalid requests", len(f.embed.inputs))
	}
}

func TestIngestAudioStoresBlob(t *testing.T) {
	f := setup(t)

	rec, err := f.orch.Ingest(context.Background(), Request{
		Class:    models.ClassAudio,
		Payloads: []Payload{textPayload("lecture.mp3", "audio/mpeg", "ID3-bytes")},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.Text != "spoken lecture transcript" || rec.Title != "Generated Title" {
		t.Errorf("record = %q / %q", rec.Title, rec.Text)
	}

	coll, _ := f.store.Collection(models.ClassAudio)
	stored, err := coll.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(stored.Audio) != "ID3-bytes" || stored.AudioType != "audio/mpeg" {
		t.Errorf("audio = %q (%s)", stored.Audio, stored.AudioType)
	}
	if len(f.transcriber.paths) != 1 || filepath.Ext(f.transcriber.paths[0]) != ".mp3" {
		t.Errorf("transcriber paths = %v", f.transcriber.paths)
	}
	f.assertNoArtifacts(t)
}

func TestIngestVideo(t *testing.T) {
	f := setup(t)

	rec, err := f.orch.Ingest(context.Background(), Request{
		Class:     models.ClassVideos,
		SourceURL: "https://www.youtube.com/watch?v=abc123",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.SourceURL != "https://www.youtube.com/watch?v=abc123" || rec.Text != "spoken lecture transcript" {
		t.Errorf("record = %+v", rec)
	}
	f.assertNoArtifacts(t)
}

func TestIngestVideoDownloadFailure(t *testing.T) {
	f := setup(t)
	f.video.err = &models.ExtractionError{Kind: models.KindAudio, Err: errors.New("video unavailable")}

	_, err := f.orch.Ingest(context.Background(), Request{
		Class:     models.ClassVideos,
		SourceURL: "https://youtu.be/gone",
	})
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
	if n := len(f.records(t, models.ClassVideos)); n != 0 {
		t.Errorf("%d records stored", n)
	}
	f.assertNoArtifacts(t)
}

func TestNewRegistryRoutesDeclaredKinds(t *testing.T) {
	docs := parser.New()
	audio := &fakeTranscriber{}
	reg := NewRegistry(docs, audio)

	for _, k := range docs.Kinds() {
		if reg[k] != Extractor(docs) {
			t.Errorf("kind %q not routed to the document parser", k)
		}
	}
	if reg[models.KindAudio] != Extractor(audio) {
		t.Error("audio not routed to the transcriber")
	}
	if len(reg) != len(docs.Kinds())+1 {
		t.Errorf("registry has %d kinds, want %d", len(reg), len(docs.Kinds())+1)
	}
}
