package services

import (
	"context"
	"errors"
	"inkblog/internal/events"
	"inkblog/internal/idem"
	"inkblog/internal/models"
	"inkblog/internal/repositories"
	"inkblog/internal/testutil"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fixture struct {
	svc    *CommentService
	db     *gorm.DB
	store  *repositories.Store
	events *recorder
	clock  *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.OpenSQLite(t)
	store := repositories.NewStore(db)
	f := &fixture{
		db:     db,
		store:  store,
		events: &recorder{},
		clock:  &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
	}
	opts = append([]Option{WithPublisher(f.events), WithClock(f.clock.Now)}, opts...)
	f.svc = NewCommentService(store, NewCursorCodec("test-secret"),
		Limits{DefaultLimit: 10, MaxLimit: 100, MaxBodyLength: 5000}, opts...)
	return f
}

func (f *fixture) comment(t *testing.T, author, post uint, parent *string, body string) *models.Comment {
	t.Helper()
	c, err := f.svc.Create(context.Background(), CreateInput{AuthorID: author, PostID: post, ParentID: parent, Body: body})
	if err != nil {
		t.Fatalf("create %q: %v", body, err)
	}
	return c
}

func (f *fixture) reactionRows(t *testing.T, commentID string) []models.Reaction {
	t.Helper()
	var rows []models.Reaction
	if err := f.db.Where("comment_id = ?", commentID).Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	return rows
}

// fakeClock advances one second per reading so each write gets a distinct updated_at.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	held bool
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.held {
		c.now = c.now.Add(time.Second)
	}
	return c.now
}

// Hold freezes the clock so several comments share one timestamp.
func (c *fakeClock) Hold(h bool) {
	c.mu.Lock()
	c.held = h
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// memIdem is an in-process idem.Store.
type memIdem struct {
	mu   sync.Mutex
	keys map[string]string

	failComplete int // Complete 前 N 次返回错误
}

func newMemIdem() *memIdem {
	return &memIdem{keys: make(map[string]string)}
}

func (m *memIdem) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = idem.Pending
	return true, nil
}

func (m *memIdem) Complete(_ context.Context, key, result string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failComplete > 0 {
		m.failComplete--
		return errors.New("idem store unavailable")
	}
	m.keys[key] = result
	return nil
}

func (m *memIdem) Lookup(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
