package db

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"content-rag/internal/models"
)

type Note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Title         string          `bun:"title,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Category      string          `bun:"category,nullzero"`
	Exam          string          `bun:"exam,nullzero"`
	Paper         string          `bun:"paper,nullzero"`
	Subject       string          `bun:"subject,nullzero"`
	Topics        string          `bun:"topics,nullzero"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

func (n *Note) id() int64 { return n.ID }

func (n *Note) fromRecord(rec *models.ContentRecord) {
	n.Title = rec.Title
	n.Content = rec.Text
	n.Embedding = pgvector.NewVector(rec.Vector)
	n.CreatedAt = rec.CreatedAt
	if rec.Metadata != nil {
		n.Category = rec.Metadata.Category
		n.Exam = rec.Metadata.Exam
		n.Paper = rec.Metadata.Paper
		n.Subject = rec.Metadata.Subject
		n.Topics = rec.Metadata.Topics
	}
}

func (n *Note) toRecord() *models.ContentRecord {
	rec := baseRecord(models.ClassNotes, n.ID, n.Title, n.Content, n.Embedding, n.CreatedAt)
	md := models.NoteMetadata{
		Category: n.Category,
		Exam:     n.Exam,
		Paper:    n.Paper,
		Subject:  n.Subject,
		Topics:   n.Topics,
	}
	if !md.Empty() {
		rec.Metadata = &md
	}
	return rec
}

type Audio struct {
	bun.BaseModel `bun:"table:audio,alias:a"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Title         string          `bun:"title,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Audio         []byte          `bun:"audio,notnull"`
	AudioType     string          `bun:"audio_type,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

func (a *Audio) id() int64 { return a.ID }

func (a *Audio) fromRecord(rec *models.ContentRecord) {
	a.Title = rec.Title
	a.Content = rec.Text
	a.Embedding = pgvector.NewVector(rec.Vector)
	a.Audio = rec.Audio
	if a.Audio == nil {
		a.Audio = []byte{}
	}
	a.AudioType = rec.AudioType
	a.CreatedAt = rec.CreatedAt
}

func (a *Audio) toRecord() *models.ContentRecord {
	rec := baseRecord(models.ClassAudio, a.ID, a.Title, a.Content, a.Embedding, a.CreatedAt)
	rec.Audio = a.Audio
	rec.AudioType = a.AudioType
	return rec
}

type Video struct {
	bun.BaseModel `bun:"table:videos,alias:v"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Title         string          `bun:"title,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	SourceURL     string          `bun:"source_url,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

func (v *Video) id() int64 { return v.ID }

func (v *Video) fromRecord(rec *models.ContentRecord) {
	v.Title = rec.Title
	v.Content = rec.Text
	v.Embedding = pgvector.NewVector(rec.Vector)
	v.SourceURL = rec.SourceURL
	v.CreatedAt = rec.CreatedAt
}

func (v *Video) toRecord() *models.ContentRecord {
	rec := baseRecord(models.ClassVideos, v.ID, v.Title, v.Content, v.Embedding, v.CreatedAt)
	rec.SourceURL = v.SourceURL
	return rec
}

type PastPaper struct {
	bun.BaseModel `bun:"table:past_papers,alias:p"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Title         string          `bun:"title,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

func (p *PastPaper) id() int64 { return p.ID }

func (p *PastPaper) fromRecord(rec *models.ContentRecord) {
	p.Title = rec.Title
	p.Content = rec.Text
	p.Embedding = pgvector.NewVector(rec.Vector)
	p.CreatedAt = rec.CreatedAt
}

func (p *PastPaper) toRecord() *models.ContentRecord {
	return baseRecord(models.ClassPapers, p.ID, p.Title, p.Content, p.Embedding, p.CreatedAt)
}

func baseRecord(class models.ContentClass, id int64, title, content string, vec pgvector.Vector, createdAt time.Time) *models.ContentRecord {
	return &models.ContentRecord{
		ID:        id,
		Class:     class,
		Title:     title,
		Text:      content,
		Vector:    vec.Slice(),
		CreatedAt: createdAt.UTC(),
	}
}
