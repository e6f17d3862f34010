package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-rag/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func collectionFor(t *testing.T, s *Store, class models.ContentClass) Collection {
	t.Helper()
	c, err := s.Collection(class)
	if err != nil {
		t.Fatalf("Collection(%s): %v", class, err)
	}
	return c
}

func TestInsertAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	notes := collectionFor(t, s, models.ClassNotes)

	rec := &models.ContentRecord{
		Title:  "Chapter 1",
		Text:   "mitochondria is the powerhouse of the cell",
		Vector: []float32{0.1, -0.25, 1.0 / 3.0},
		Metadata: &models.NoteMetadata{
			Category: "science", Exam: "finals", Paper: "1", Subject: "biology", Topics: "cells",
		},
	}
	if err := notes.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	got, err := notes.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rec.Title || got.Text != rec.Text {
		t.Errorf("got %q/%q, want %q/%q", got.Title, got.Text, rec.Title, rec.Text)
	}
	if len(got.Vector) != len(rec.Vector) {
		t.Fatalf("vector length = %d, want %d", len(got.Vector), len(rec.Vector))
	}
	for i := range rec.Vector {
		if got.Vector[i] != rec.Vector[i] {
			t.Errorf("vector[%d] = %v, want %v", i, got.Vector[i], rec.Vector[i])
		}
	}
	if got.Metadata == nil || *got.Metadata != *rec.Metadata {
		t.Errorf("metadata = %+v, want %+v", got.Metadata, rec.Metadata)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
	if got.Class != models.ClassNotes {
		t.Errorf("class = %q", got.Class)
	}
}

func TestInsertRejectsEmptyTextOrVector(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	papers := collectionFor(t, s, models.ClassPapers)

	cases := []*models.ContentRecord{
		{Title: "t", Text: "  ", Vector: []float32{1}},
		{Title: "t", Text: "body", Vector: nil},
	}
	for _, rec := range cases {
		if err := papers.Insert(ctx, rec); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Insert(%+v) = %v, want ErrValidation", rec, err)
		}
	}

	all, err := papers.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no records, got %d", len(all))
	}
}

func TestAudioBlobRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	audio := collectionFor(t, s, models.ClassAudio)

	blob := []byte{0x49, 0x44, 0x33, 0x00, 0xff}
	rec := &models.ContentRecord{
		Title: "lecture", Text: "today we cover entropy", Vector: []float32{1, 2},
		Audio: blob, AudioType: "audio/mpeg",
	}
	if err := audio.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := audio.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Audio) != string(blob) || got.AudioType != "audio/mpeg" {
		t.Errorf("audio = %v (%s), want %v (audio/mpeg)", got.Audio, got.AudioType, blob)
	}
}

func TestClassesAreDisjoint(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	notes := collectionFor(t, s, models.ClassNotes)
	videos := collectionFor(t, s, models.ClassVideos)

	n := &models.ContentRecord{Title: "n", Text: "note", Vector: []float32{1}}
	v := &models.ContentRecord{Title: "v", Text: "video", Vector: []float32{1}, SourceURL: "https://youtu.be/x"}
	if err := notes.Insert(ctx, n); err != nil {
		t.Fatalf("Insert note: %v", err)
	}
	if err := videos.Insert(ctx, v); err != nil {
		t.Fatalf("Insert video: %v", err)
	}

	// Ids are class-local, so both start at 1.
	if n.ID != 1 || v.ID != 1 {
		t.Fatalf("ids = %d, %d; want 1, 1", n.ID, v.ID)
	}
	got, err := videos.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "video" || got.SourceURL != "https://youtu.be/x" {
		t.Errorf("got %+v", got)
	}
}

func TestListOrderedById(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	papers := collectionFor(t, s, models.ClassPapers)

	for _, title := range []string{"same", "same", "other"} {
		rec := &models.ContentRecord{Title: title, Text: "body " + title, Vector: []float32{1, 0}}
		if err := papers.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	list, err := papers.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(list))
	}
	for i, sum := range list {
		if sum.ID != int64(i+1) {
			t.Errorf("list[%d].ID = %d", i, sum.ID)
		}
		if i > 0 && !sum.Date.After(list[i-1].Date) {
			t.Errorf("list[%d].Date %v not after %v", i, sum.Date, list[i-1].Date)
		}
	}
	if list[0].Title != "same" || list[2].Title != "other" {
		t.Errorf("unexpected titles: %+v", list)
	}
}

func TestUpdateTitle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	audio := collectionFor(t, s, models.ClassAudio)

	rec := &models.ContentRecord{Title: "old", Text: "spoken words", Vector: []float32{0.5}, Audio: []byte("x")}
	if err := audio.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := audio.UpdateTitle(ctx, rec.ID, "new"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	got, err := audio.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "new" || got.Text != "spoken words" {
		t.Errorf("got %q/%q", got.Title, got.Text)
	}

	if err := audio.UpdateTitle(ctx, rec.ID, ""); !errors.Is(err, models.ErrValidation) {
		t.Errorf("empty title: got %v, want ErrValidation", err)
	}
	if err := audio.UpdateTitle(ctx, 0, "x"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("id 0: got %v, want ErrValidation", err)
	}
	if err := audio.UpdateTitle(ctx, 99, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}
}

func TestDeleteDoesNotReuseIds(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	notes := collectionFor(t, s, models.ClassNotes)

	first := &models.ContentRecord{Title: "a", Text: "a", Vector: []float32{1}}
	second := &models.ContentRecord{Title: "b", Text: "b", Vector: []float32{1}}
	if err := notes.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := notes.Insert(ctx, second); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := notes.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := notes.Get(ctx, second.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get after delete: got %v, want ErrNotFound", err)
	}
	if err := notes.Delete(ctx, second.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}

	third := &models.ContentRecord{Title: "c", Text: "c", Vector: []float32{1}}
	if err := notes.Insert(ctx, third); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if third.ID <= second.ID {
		t.Errorf("id %d reused (deleted id %d)", third.ID, second.ID)
	}
}

func TestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	videos := collectionFor(t, s, models.ClassVideos)

	if _, err := videos.First(ctx); !errors.Is(err, models.ErrEmptyCorpus) {
		t.Fatalf("First on empty: got %v, want ErrEmptyCorpus", err)
	}

	for _, text := range []string{"first", "second"} {
		rec := &models.ContentRecord{Title: text, Text: text, Vector: []float32{1}, SourceURL: "u"}
		if err := videos.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	got, err := videos.First(ctx)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if got.Text != "first" {
		t.Errorf("First = %q, want first", got.Text)
	}
}

func TestUnknownClass(t *testing.T) {
	s := setupStore(t)
	if _, err := s.Collection("podcasts"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestClockStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	c := &clock{now: func() time.Time { return fixed }}

	a := c.next()
	b := c.next()
	if !b.After(a) {
		t.Errorf("second timestamp %v not after %v", b, a)
	}
	if a.Nanosecond()%1000 != 0 {
		t.Errorf("timestamp %v not truncated to microseconds", a)
	}
}
