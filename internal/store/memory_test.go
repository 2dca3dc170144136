package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://example.com/a"

var epoch = time.Unix(1_700_000_000, 0)

func newLink(code shortener.Code, longURL string, expiresAt *time.Time) *shortener.Link {
	return &shortener.Link{
		Code:      code,
		LongURL:   longURL,
		URLHash:   shortener.HashURL(longURL),
		CreatedAt: epoch,
		ExpiresAt: expiresAt,
	}
}

func at(t time.Time) *time.Time {
	return &t
}

func TestMemoryStore_Insert(t *testing.T) {
	t.Run("inserts and finds by code", func(t *testing.T) {
		s := store.NewMemoryStore()

		err := s.Insert(context.Background(), newLink("abc123", testURL, nil))
		require.NoError(t, err)

		got, err := s.FindByCode(context.Background(), "abc123")

		require.NoError(t, err)
		assert.Equal(t, testURL, got.LongURL)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("rejects a duplicate code and keeps the first", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", "https://old.com", nil))

		err := s.Insert(context.Background(), newLink("abc123", "https://new.com", nil))

		require.ErrorIs(t, err, shortener.ErrDuplicateCode)

		got, _ := s.FindByCode(context.Background(), "abc123")
		assert.Equal(t, "https://old.com", got.LongURL)
	})

	t.Run("concurrent inserts of one code admit exactly one", func(t *testing.T) {
		s := store.NewMemoryStore()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)

		for i := range 50 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				err := s.Insert(context.Background(), newLink("same", fmt.Sprintf("https://example.com/%d", i), nil))
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, accepted)
	})

	t.Run("returned links are copies", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", testURL, at(epoch)))

		got, _ := s.FindByCode(context.Background(), "abc123")
		*got.ExpiresAt = epoch.Add(time.Hour)

		again, _ := s.FindByCode(context.Background(), "abc123")
		assert.Equal(t, epoch, *again.ExpiresAt)
	})
}

func TestMemoryStore_FindByCode(t *testing.T) {
	t.Run("returns ErrNotFound when code does not exist", func(t *testing.T) {
		s := store.NewMemoryStore()

		got, err := s.FindByCode(context.Background(), "notfound")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_FindByLongURL(t *testing.T) {
	t.Run("finds the link for an exact URL", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", testURL, nil))

		got, err := s.FindByLongURL(context.Background(), testURL)

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("abc123"), got.Code)
	})

	t.Run("does not match a different spelling", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", testURL, nil))

		_, err := s.FindByLongURL(context.Background(), testURL+"/")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("returns expired links for the caller to judge", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", testURL, at(epoch.Add(-time.Hour))))

		got, err := s.FindByLongURL(context.Background(), testURL)

		require.NoError(t, err)
		assert.True(t, got.Expired(epoch))
	})

	t.Run("returns the most recent code for a URL", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("first1", testURL, nil))
		_ = s.Insert(context.Background(), newLink("second", testURL, nil))

		got, err := s.FindByLongURL(context.Background(), testURL)

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("second"), got.Code)
	})

	t.Run("prefers the later creation time over insert order", func(t *testing.T) {
		s := store.NewMemoryStore()
		newer := newLink("newer1", testURL, nil)
		newer.CreatedAt = epoch.Add(time.Minute)
		_ = s.Insert(context.Background(), newer)
		_ = s.Insert(context.Background(), newLink("older1", testURL, nil))

		got, err := s.FindByLongURL(context.Background(), testURL)

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("newer1"), got.Code)
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Run("removes the link and its dedup entry", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("abc123", testURL, nil))

		require.NoError(t, s.Delete(context.Background(), "abc123"))

		_, err := s.FindByCode(context.Background(), "abc123")
		require.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = s.FindByLongURL(context.Background(), testURL)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("keeps an older duplicate findable", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Insert(context.Background(), newLink("first1", testURL, nil))
		_ = s.Insert(context.Background(), newLink("second", testURL, at(epoch)))

		_, err := s.DeleteExpired(context.Background(), epoch.Add(time.Second))
		require.NoError(t, err)

		got, err := s.FindByLongURL(context.Background(), testURL)

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("first1"), got.Code)

		require.NoError(t, s.Delete(context.Background(), "first1"))

		_, err = s.FindByLongURL(context.Background(), testURL)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("is idempotent", func(t *testing.T) {
		s := store.NewMemoryStore()

		assert.NoError(t, s.Delete(context.Background(), "missing"))
		assert.NoError(t, s.Delete(context.Background(), "missing"))
	})
}

func TestMemoryStore_ListAll(t *testing.T) {
	s := store.NewMemoryStore()

	later := newLink("bbb", "https://example.com/b", nil)
	later.CreatedAt = epoch.Add(time.Second)

	_ = s.Insert(context.Background(), later)
	_ = s.Insert(context.Background(), newLink("aaa", "https://example.com/a", at(epoch.Add(-time.Hour))))

	links, err := s.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, shortener.Code("aaa"), links[0].Code, "expired rows are listed too")
	assert.Equal(t, shortener.Code("bbb"), links[1].Code)
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	s := store.NewMemoryStore()
	_ = s.Insert(context.Background(), newLink("past", "https://example.com/past", at(epoch.Add(-time.Second))))
	_ = s.Insert(context.Background(), newLink("now", "https://example.com/now", at(epoch)))
	_ = s.Insert(context.Background(), newLink("future", "https://example.com/future", at(epoch.Add(time.Hour))))
	_ = s.Insert(context.Background(), newLink("never", "https://example.com/never", nil))

	deleted, err := s.DeleteExpired(context.Background(), epoch)

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := s.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	deleted, _ = s.DeleteExpired(context.Background(), epoch)
	assert.Zero(t, deleted, "a second sweep finds nothing")
}
