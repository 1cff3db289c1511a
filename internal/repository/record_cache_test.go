package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/document-registry/internal/config"
	"github.com/iliyamo/document-registry/internal/model"
)

// countingStore is an in-memory RecordStore that counts List calls.
type countingStore struct {
	recs    []model.Record
	lists   int
	failDel bool
}

func (s *countingStore) List(context.Context) ([]model.Record, error) {
	s.lists++
	return append([]model.Record(nil), s.recs...), nil
}

func (s *countingStore) Create(_ context.Context, rec model.Record) (uint64, error) {
	rec.ID = uint64(len(s.recs) + 1)
	s.recs = append(s.recs, rec)
	return rec.ID, nil
}

func (s *countingStore) Update(context.Context, model.Record, bool) error { return nil }

func (s *countingStore) Delete(_ context.Context, id uint64) error {
	if s.failDel {
		return ErrRecordNotFound
	}
	for i, r := range s.recs {
		if r.ID == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func newCache(t *testing.T, next RecordStore) (RecordStore, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedRecordRepo(next, rdb, config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test"}), m
}

func TestCachedRecordRepo_ServesFromCache(t *testing.T) {
	inner := &countingStore{recs: []model.Record{{ID: 1, Date: model.NewDate(2024, 1, 1), Sender: "A"}}}
	store, m := newCache(t, inner)
	ctx := context.Background()

	first, err := store.List(ctx)
	require.NoError(t, err)
	second, err := store.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.lists)
	assert.Equal(t, first, second)
	assert.True(t, m.Exists("test:records:all:0"))
}

func TestCachedRecordRepo_WritesInvalidate(t *testing.T) {
	inner := &countingStore{}
	store, m := newCache(t, inner)
	ctx := context.Background()

	_, err := store.List(ctx)
	require.NoError(t, err)
	require.True(t, m.Exists("test:records:all:0"))

	id, err := store.Create(ctx, model.Record{Date: model.NewDate(2024, 1, 1), Sender: "A"})
	require.NoError(t, err)
	gen, err := m.Get("test:records:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)

	require.NoError(t, store.Delete(ctx, id))
	got, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3, inner.lists)
}

func TestCachedRecordRepo_FailedWriteKeepsCache(t *testing.T) {
	inner := &countingStore{failDel: true}
	store, m := newCache(t, inner)
	ctx := context.Background()

	_, err := store.List(ctx)
	require.NoError(t, err)

	err = store.Delete(ctx, 42)
	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.True(t, m.Exists("test:records:all:0"))
	assert.False(t, m.Exists("test:records:gen"))
}

func TestCachedRecordRepo_RedisDownFallsThrough(t *testing.T) {
	inner := &countingStore{recs: []model.Record{{ID: 1}}}
	store, m := newCache(t, inner)
	m.Close()

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// pausingStore hands List's snapshot to the test and waits for release
// before returning it, so a write can land between the store read and the
// cache fill.
type pausingStore struct {
	countingStore
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStore) List(ctx context.Context) ([]model.Record, error) {
	out, err := s.countingStore.List(ctx)
	if s.read != nil {
		close(s.read)
		<-s.release
		s.read = nil
	}
	return out, err
}

func TestCachedRecordRepo_WriteDuringFillIsNotLost(t *testing.T) {
	inner := &pausingStore{read: make(chan struct{}), release: make(chan struct{})}
	store, _ := newCache(t, inner)
	ctx := context.Background()

	done := make(chan []model.Record)
	go func() {
		got, err := store.List(ctx)
		assert.NoError(t, err)
		done <- got
	}()

	<-inner.read
	_, err := store.Create(ctx, model.Record{Date: model.NewDate(2024, 1, 1), Sender: "A"})
	require.NoError(t, err)
	close(inner.release)
	assert.Empty(t, <-done, "the paused list saw the store before the write")

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Sender)
}

func TestNewCachedRecordRepo_Disabled(t *testing.T) {
	inner := &countingStore{}
	assert.Same(t, RecordStore(inner), NewCachedRecordRepo(inner, nil, config.CacheConfig{Enabled: true}))
}
