package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
	done    chan string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{fail: map[string]bool{}, done: make(chan string, 64)}
}

func (s *recordingStore) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("not used")
}

func (s *recordingStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, url)
	s.mu.Unlock()
	defer func() { s.done <- url }()
	if s.fail[url] {
		return errors.New("boom")
	}
	return nil
}

func waitFor(t *testing.T, ch <-chan string, n int) []string {
	t.Helper()
	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case url := <-ch:
			got = append(got, url)
		case <-timeout:
			t.Fatalf("timed out after %d of %d removals", len(got), n)
		}
	}
	return got
}

func TestCleaner_RemovesScheduledImages(t *testing.T) {
	store := newRecordingStore()
	store.fail["images/b.png"] = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewCleaner(2, store, zerolog.Nop())
	c.Start(ctx)

	c.Remove("images/a.png")
	c.Remove("")
	c.Remove("images/b.png")
	c.Remove("images/c.png")

	got := waitFor(t, store.done, 3)
	assert.ElementsMatch(t, []string{"images/a.png", "images/b.png", "images/c.png"}, got)
}

func TestCleaner_ShardIndexIsStable(t *testing.T) {
	c := NewCleaner(8, newRecordingStore(), zerolog.Nop())

	first := c.shardIndex("images/cat.png")
	for range 10 {
		require.Equal(t, first, c.shardIndex("images/cat.png"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}

func TestCleaner_DefaultsWorkers(t *testing.T) {
	c := NewCleaner(0, newRecordingStore(), zerolog.Nop())
	assert.Len(t, c.workers, defaultWorkers)
}

func TestCleaner_RemoveDoesNotBlockWhenFull(t *testing.T) {
	c := NewCleaner(1, newRecordingStore(), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for range channelBuffer + 5 {
			c.Remove("images/x.png")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Remove blocked on a full queue")
	}
}
