package models

import (
	"fmt"
	"time"
)

// ContentClass names one of the independent record collections.
type ContentClass string

const (
	ClassNotes  ContentClass = "notes"
	ClassAudio  ContentClass = "audio"
	ClassVideos ContentClass = "videos"
	ClassPapers ContentClass = "papers"
)

// Classes lists every content class in iteration order.
var Classes = []ContentClass{ClassNotes, ClassAudio, ClassVideos, ClassPapers}

// ParseClass validates a class name coming from a caller.
func ParseClass(s string) (ContentClass, error) {
	for _, c := range Classes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown content class %q", ErrValidation, s)
}

// NoteMetadata holds the classification fields of a Notes record.
type NoteMetadata struct {
	Category string `json:"category"`
	Exam     string `json:"exam"`
	Paper    string `json:"paper"`
	Subject  string `json:"subject"`
	Topics   string `json:"topics"`
}

// Empty reports whether no field is set.
func (m NoteMetadata) Empty() bool {
	return m.Category == "" && m.Exam == "" && m.Paper == "" && m.Subject == "" && m.Topics == ""
}

// Complete reports whether every field is set.
func (m NoteMetadata) Complete() bool {
	return len(m.Missing()) == 0
}

// Missing lists the names of the unset fields.
func (m NoteMetadata) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"category", m.Category},
		{"exam", m.Exam},
		{"paper", m.Paper},
		{"subject", m.Subject},
		{"topics", m.Topics},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ContentRecord is the logical shape shared by all content classes.
type ContentRecord struct {
	ID        int64         `json:"id"`
	Class     ContentClass  `json:"class"`
	Title     string        `json:"title"`
	Text      string        `json:"text"`
	Vector    []float32     `json:"vector"`
	Audio     []byte        `json:"-"`
	AudioType string        `json:"audio_type,omitempty"`
	SourceURL string        `json:"source_url,omitempty"`
	Metadata  *NoteMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary is a listing entry.
type Summary struct {
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// Answer is returned by the query operations. Similarity is nil for class-wide asks.
type Answer struct {
	Answer     string   `json:"answer"`
	Similarity *float64 `json:"similarity,omitempty"`
}
