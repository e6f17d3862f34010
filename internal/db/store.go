package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"content-rag/internal/models"
)

// Collection is the per-class persistence contract.
type Collection interface {
	Insert(ctx context.Context, rec *models.ContentRecord) error
	Get(ctx context.Context, id int64) (*models.ContentRecord, error)
	List(ctx context.Context) ([]models.Summary, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	Delete(ctx context.Context, id int64) error
	// All returns every record of the class in ascending id order.
	All(ctx context.Context) ([]*models.ContentRecord, error)
	// First returns the earliest inserted record, or ErrEmptyCorpus.
	First(ctx context.Context) (*models.ContentRecord, error)
}

type Store struct {
	db          *bun.DB
	clock       *clock
	collections map[models.ContentClass]Collection
}

func NewStore(db *bun.DB) *Store {
	s := &Store{
		db:    db,
		clock: &clock{now: time.Now},
	}
	s.collections = map[models.ContentClass]Collection{
		models.ClassNotes:  &collection[Note, *Note]{db: db, class: models.ClassNotes, clock: s.clock},
		models.ClassAudio:  &collection[Audio, *Audio]{db: db, class: models.ClassAudio, clock: s.clock},
		models.ClassVideos: &collection[Video, *Video]{db: db, class: models.ClassVideos, clock: s.clock},
		models.ClassPapers: &collection[PastPaper, *PastPaper]{db: db, class: models.ClassPapers, clock: s.clock},
	}
	return s
}

func (s *Store) Collection(class models.ContentClass) (Collection, error) {
	c, ok := s.collections[class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown content class %q", models.ErrValidation, class)
	}
	return c, nil
}

func (s *Store) Close() error { return s.db.Close() }

type row[T any] interface {
	*T
	id() int64
	fromRecord(rec *models.ContentRecord)
	toRecord() *models.ContentRecord
}

type collection[T any, P row[T]] struct {
	db    *bun.DB
	class models.ContentClass
	clock *clock
}

func (c *collection[T, P]) Insert(ctx context.Context, rec *models.ContentRecord) error {
	if strings.TrimSpace(rec.Text) == "" || len(rec.Vector) == 0 {
		return fmt.Errorf("%w: record needs text and vector", models.ErrValidation)
	}

	rec.Class = c.class
	rec.CreatedAt = c.clock.next()

	r := P(new(T))
	r.fromRecord(rec)
	if _, err := c.db.NewInsert().Model(r).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("%w: inserting into %s: %w", models.ErrPersistence, c.class, err)
	}
	rec.ID = r.id()
	return nil
}

func (c *collection[T, P]) Get(ctx context.Context, id int64) (*models.ContentRecord, error) {
	r := P(new(T))
	err := c.db.NewSelect().Model(r).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s record %d", models.ErrNotFound, c.class, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s record %d: %w", models.ErrPersistence, c.class, id, err)
	}
	return r.toRecord(), nil
}

func (c *collection[T, P]) List(ctx context.Context) ([]models.Summary, error) {
	var rows []T
	err := c.db.NewSelect().
		Model(&rows).
		Column("id", "title", "created_at").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", models.ErrPersistence, c.class, err)
	}

	out := make([]models.Summary, 0, len(rows))
	for i := range rows {
		rec := P(&rows[i]).toRecord()
		out = append(out, models.Summary{ID: rec.ID, Title: rec.Title, Date: rec.CreatedAt})
	}
	return out, nil
}

func (c *collection[T, P]) UpdateTitle(ctx context.Context, id int64, title string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id %d", models.ErrValidation, id)
	}
	if strings.TrimSpace(title) == "" {
		return models.MissingField("title")
	}

	res, err := c.db.NewUpdate().
		Model((*T)(nil)).
		Set("title = ?", title).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: updating %s record %d: %w", models.ErrPersistence, c.class, id, err)
	}
	return c.checkAffected(res, id)
}

func (c *collection[T, P]) Delete(ctx context.Context, id int64) error {
	res, err := c.db.NewDelete().
		Model((*T)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: deleting %s record %d: %w", models.ErrPersistence, c.class, id, err)
	}
	return c.checkAffected(res, id)
}

func (c *collection[T, P]) checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s record %d", models.ErrNotFound, c.class, id)
	}
	return nil
}

func (c *collection[T, P]) All(ctx context.Context) ([]*models.ContentRecord, error) {
	var rows []T
	if err := c.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %w", models.ErrPersistence, c.class, err)
	}

	out := make([]*models.ContentRecord, 0, len(rows))
	for i := range rows {
		out = append(out, P(&rows[i]).toRecord())
	}
	return out, nil
}

func (c *collection[T, P]) First(ctx context.Context) (*models.ContentRecord, error) {
	r := P(new(T))
	err := c.db.NewSelect().Model(r).Order("id ASC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyCorpus, c.class)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading first %s record: %w", models.ErrPersistence, c.class, err)
	}
	return r.toRecord(), nil
}

// clock hands out insert timestamps at database precision that never repeat
// or go backwards within the process.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
