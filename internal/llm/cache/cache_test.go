package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

func TestCacheDisabledWhenRedisUnreachable(t *testing.T) {
	c := New(context.Background(), Config{Enabled: true, RedisAddr: "127.0.0.1:1", TTL: time.Hour}, nil)
	assert.False(t, c.Enabled())
	require.NoError(t, c.Close())

	calls := 0
	h := c.Middleware()(transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		calls++
		return &transport.Response{Content: "fresh"}, nil
	}))

	for range 2 {
		resp, err := h.Handle(context.Background(), &transport.Request{CacheKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "fresh", resp.Content)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, Stats{}, c.Stats())
}

func TestEntryRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Cache{maxAge: time.Hour, now: func() time.Time { return now }}

	raw, err := c.encode(&transport.Response{Content: "**Score:** 7 out of 10", Model: "m"})
	require.NoError(t, err)

	resp, err := c.decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "**Score:** 7 out of 10", resp.Content)
	assert.True(t, resp.Cached)
}

func TestDecodeRejectsBadEntries(t *testing.T) {
	stored := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	writer := &Cache{now: func() time.Time { return stored }}
	raw, err := writer.encode(&transport.Response{Content: "x"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    []byte
		now    time.Time
		maxAge time.Duration
	}{
		{name: "corrupt json", raw: []byte("not json"), now: stored, maxAge: time.Hour},
		{name: "stale", raw: raw, now: stored.Add(2 * time.Hour), maxAge: time.Hour},
		{name: "future dated", raw: raw, now: stored.Add(-time.Minute), maxAge: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cache{maxAge: tt.maxAge, now: func() time.Time { return tt.now }}
			_, err := c.decode(tt.raw)
			assert.ErrorIs(t, err, llmerrors.ErrCacheMiss)
		})
	}

	t.Run("no max age accepts old entries", func(t *testing.T) {
		c := &Cache{now: func() time.Time { return stored.Add(240 * time.Hour) }}
		_, err := c.decode(raw)
		assert.NoError(t, err)
	})
}

func TestMiddlewareWithRedis(t *testing.T) {
	ctx := context.Background()
	key := transport.CacheKey(transport.OpAlignment, "k")

	newCache := func(t *testing.T) (*Cache, *miniredis.Miniredis) {
		t.Helper()
		mr := miniredis.RunT(t)
		c := New(ctx, Config{Enabled: true, RedisAddr: mr.Addr(), TTL: time.Hour}, nil)
		require.True(t, c.Enabled())
		t.Cleanup(func() { _ = c.Close() })
		return c, mr
	}
	scripted := func(replies ...string) (transport.Handler, *int) {
		calls := 0
		return transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
			reply := replies[min(calls, len(replies)-1)]
			calls++
			return &transport.Response{Content: reply}, nil
		}), &calls
	}

	tests := []struct {
		name      string
		replies   []string
		requests  []transport.Request
		want      []string
		wantCalls int
		wantHits  int64
		stored    bool
	}{
		{
			name:      "second request served from cache",
			replies:   []string{"fresh", "unused"},
			requests:  []transport.Request{{Operation: transport.OpAlignment, CacheKey: "k"}, {Operation: transport.OpAlignment, CacheKey: "k"}},
			want:      []string{"fresh", "fresh"},
			wantCalls: 1,
			wantHits:  1,
			stored:    true,
		},
		{
			name:      "blank response not stored",
			replies:   []string{"  \n", "fresh"},
			requests:  []transport.Request{{Operation: transport.OpAlignment, CacheKey: "k"}, {Operation: transport.OpAlignment, CacheKey: "k"}},
			want:      []string{"  \n", "fresh"},
			wantCalls: 2,
			stored:    true,
		},
		{
			name:    "refresh replaces the cached entry",
			replies: []string{"prose", "[]", "unused"},
			requests: []transport.Request{
				{Operation: transport.OpAlignment, CacheKey: "k"},
				{Operation: transport.OpAlignment, CacheKey: "k", CacheRefresh: true},
				{Operation: transport.OpAlignment, CacheKey: "k"},
			},
			want:      []string{"prose", "[]", "[]"},
			wantCalls: 2,
			wantHits:  1,
			stored:    true,
		},
		{
			name:      "no key bypasses the cache",
			replies:   []string{"a", "b"},
			requests:  []transport.Request{{Operation: transport.OpAlignment}, {Operation: transport.OpAlignment}},
			want:      []string{"a", "b"},
			wantCalls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newCache(t)
			next, calls := scripted(tt.replies...)
			h := c.Middleware()(next)

			var got []string
			for _, req := range tt.requests {
				resp, err := h.Handle(ctx, &req)
				require.NoError(t, err)
				got = append(got, resp.Content)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, *calls)
			assert.Equal(t, tt.wantHits, c.Stats().Hits)
			assert.Equal(t, tt.stored, mr.Exists(key))
		})
	}
}
