package versioned

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

type counter struct {
	Value   int
	Version int64
}

func (c *counter) CurrentVersion() int64 { return c.Version }

type memStore struct {
	mu      sync.Mutex
	records map[string]counter
	reads   int
	writes  int
}

var _ Store[string, *counter] = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{records: map[string]counter{}}
}

func (s *memStore) Read(_ context.Context, _ bun.IDB, id string) (*counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	c, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *memStore) WriteIfVersion(_ context.Context, _ bun.IDB, id string, expected int64, rec *counter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[id]
	if !ok {
		return NotFoundVersion, ErrNotFound
	}
	if c.Version != expected {
		return c.Version, &ConflictError{Expected: expected, Current: c.Version}
	}
	s.writes++
	next := *rec
	next.Version = expected + 1
	s.records[id] = next
	return next.Version, nil
}

func increment(c *counter) error {
	c.Value++
	return nil
}

func TestApplyUpdate(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name        string
		seed        map[string]counter
		expected    int64
		mutate      Mutation[*counter]
		wantVersion int64
		wantErr     error
		verify      func(t *testing.T, s *memStore)
	}{
		{
			name:        "matching version commits and bumps by one",
			seed:        map[string]counter{"a": {Value: 1, Version: 4}},
			expected:    4,
			mutate:      increment,
			wantVersion: 5,
			verify: func(t *testing.T, s *memStore) {
				assert.Equal(t, counter{Value: 2, Version: 5}, s.records["a"])
			},
		},
		{
			name:        "missing record reports not found with version -1",
			seed:        map[string]counter{},
			expected:    0,
			mutate:      increment,
			wantVersion: NotFoundVersion,
			wantErr:     ErrNotFound,
		},
		{
			name:        "stale expected version is rejected without writing",
			seed:        map[string]counter{"a": {Value: 1, Version: 7}},
			expected:    6,
			mutate:      increment,
			wantVersion: 7,
			wantErr:     ErrVersionConflict,
			verify: func(t *testing.T, s *memStore) {
				assert.Equal(t, 0, s.writes)
				assert.Equal(t, counter{Value: 1, Version: 7}, s.records["a"])
			},
		},
		{
			name:        "mutation error propagates and nothing is written",
			seed:        map[string]counter{"a": {Value: 1, Version: 2}},
			expected:    2,
			mutate:      func(*counter) error { return errBoom },
			wantVersion: 2,
			wantErr:     errBoom,
			verify: func(t *testing.T, s *memStore) {
				assert.Equal(t, 0, s.writes)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			for k, v := range tt.seed {
				s.records[k] = v
			}

			v, err := ApplyUpdate(context.Background(), nil, s, "a", tt.expected, tt.mutate)
			assert.Equal(t, tt.wantVersion, v)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.verify != nil {
				tt.verify(t, s)
			}
		})
	}
}

func TestConflictErrorCarriesCurrentVersion(t *testing.T) {
	err := error(&ConflictError{Expected: 1, Current: 3})
	assert.ErrorIs(t, err, ErrVersionConflict)

	current, ok := CurrentVersion(err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), current)

	_, ok = CurrentVersion(errors.New("other"))
	assert.False(t, ok)
}

// Only one of two writers holding the same expected version can win.
func TestApplyUpdateConcurrentSameVersionOneWinner(t *testing.T) {
	s := newMemStore()
	s.records["a"] = counter{Version: 0}

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ApplyUpdate(context.Background(), nil, s, "a", 0, increment)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrVersionConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
	assert.Equal(t, counter{Value: 1, Version: 1}, s.records["a"])
}
