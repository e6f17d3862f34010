package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"content-rag/internal/db"
	"content-rag/internal/models"
)

// CollectionSource hands out the store collection of a class.
type CollectionSource interface {
	Collection(class models.ContentClass) (db.Collection, error)
}

// Scope selects which records a retrieval considers.
type Scope struct {
	Class models.ContentClass
	ID    int64
	byID  bool
	all   bool
}

// RecordScope targets exactly one record. Any id, including zero, is looked up.
func RecordScope(class models.ContentClass, id int64) Scope {
	return Scope{Class: class, ID: id, byID: true}
}

func ClassScope(class models.ContentClass) Scope { return Scope{Class: class} }

// AllClasses spans every content class.
func AllClasses() Scope { return Scope{all: true} }

func (s Scope) String() string {
	switch {
	case s.all:
		return "all"
	case s.byID:
		return fmt.Sprintf("%s/%d", s.Class, s.ID)
	default:
		return string(s.Class)
	}
}

type Match struct {
	Record     *models.ContentRecord
	Similarity float64
}

type Retriever struct {
	store        CollectionSource
	sourceWeight float64
}

func NewRetriever(store CollectionSource, sourceWeight float64) *Retriever {
	return &Retriever{store: store, sourceWeight: sourceWeight}
}

// Retrieve returns the matches for query within scope:
//   - record scope: that record, scored against query
//   - class scope: the single best-scoring record, ties going to the lowest id
//   - all classes: the earliest record of each non-empty class, in class
//     order, each carrying the fixed source weight
func (r *Retriever) Retrieve(ctx context.Context, query []float32, scope Scope) ([]Match, error) {
	if scope.all {
		return r.retrieveAll(ctx)
	}

	coll, err := r.store.Collection(scope.Class)
	if err != nil {
		return nil, err
	}

	if scope.byID {
		rec, err := coll.Get(ctx, scope.ID)
		if err != nil {
			return nil, err
		}
		sim, err := CosineSimilarity(query, rec.Vector)
		if err != nil {
			return nil, err
		}
		return []Match{{Record: rec, Similarity: sim}}, nil
	}

	records, err := coll.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyCorpus, scope.Class)
	}

	var best *Match
	for _, rec := range records {
		sim, err := CosineSimilarity(query, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", scope.Class, rec.ID, err)
		}
		if best == nil || sim > best.Similarity {
			best = &Match{Record: rec, Similarity: sim}
		}
	}

	log.Debug().
		Str("scope", scope.String()).
		Int("scanned", len(records)).
		Int64("id", best.Record.ID).
		Float64("similarity", best.Similarity).
		Msg("Retrieved best match")
	return []Match{*best}, nil
}

func (r *Retriever) retrieveAll(ctx context.Context) ([]Match, error) {
	var matches []Match
	for _, class := range models.Classes {
		coll, err := r.store.Collection(class)
		if err != nil {
			return nil, err
		}
		rec, err := coll.First(ctx)
		if errors.Is(err, models.ErrEmptyCorpus) {
			continue
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Record: rec, Similarity: r.sourceWeight})
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: every class is empty", models.ErrEmptyCorpus)
	}
	return matches, nil
}
