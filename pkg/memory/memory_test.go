package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodicMemory(t *testing.T) {
	m := NewEpisodicMemory(0)
	for _, ep := range []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"} {
		m.Add(ep)
	}
	assert.Equal(t, []string{"e3", "e4", "e5", "e6", "e7"}, m.Recent(DefaultRecall))
	assert.Equal(t, []string{"e7"}, m.Recent(1))
	assert.Empty(t, m.Recent(0))
	assert.Len(t, m.All(), 7)

	t.Run("bounded", func(t *testing.T) {
		b := NewEpisodicMemory(2)
		b.Add("a")
		b.Add("b")
		b.Add("c")
		assert.Equal(t, []string{"b", "c"}, b.All())
	})

	t.Run("recent is a copy", func(t *testing.T) {
		got := m.Recent(1)
		got[0] = "mutated"
		assert.Equal(t, "e7", m.Recent(1)[0])
	})
}

func TestParseTriplet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Triplet
		ok   bool
	}{
		{name: "strings", in: `["Ada","wrote","notes"]`, want: Triplet{"Ada", "wrote", "notes"}, ok: true},
		{name: "numbers formatted", in: `["Paris","population",2100000]`, want: Triplet{"Paris", "population", "2.1e+06"}, ok: true},
		{name: "too short", in: `["a","b"]`},
		{name: "too long", in: `["a","b","c","d"]`},
		{name: "not a list", in: `"abc"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			got, ok := ParseTriplet(v)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKnowledgeGraph(t *testing.T) {
	g := NewKnowledgeGraph()
	g.AddTriplet(Triplet{"Ada", "likes", "math"})
	g.AddTriplet(Triplet{"Ada", "likes", "poetry"})
	g.AddTriplet(Triplet{"Ada", "likes", "math"})
	g.AddTriplet(Triplet{"Babbage", "built", "engine"})

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"math", "poetry", "math"}, g.Related("Ada")["likes"])

	snap := g.Snapshot()
	snap["Ada"]["likes"][0] = "mutated"
	assert.Equal(t, "math", g.Related("Ada")["likes"][0])

	data, err := json.Marshal(g.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ada":{"likes":["math","poetry","math"]},"Babbage":{"built":["engine"]}}`, string(data))

	t.Run("concurrent writers", func(t *testing.T) {
		kg := NewKnowledgeGraph()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				kg.AddTriplet(Triplet{"x", "r", "y"})
			}()
		}
		wg.Wait()
		assert.Len(t, kg.Related("x")["r"], 50)
	})
}

func setupMiniredis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupFirestore(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	store, err := NewFirestoreStore(context.Background(), FirestoreConfig{ProjectID: "agentarch-test", Collection: "memory_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStores(t *testing.T) {
	stores := []struct {
		name  string
		setup func(t *testing.T) Store
	}{
		{name: "memory", setup: func(t *testing.T) Store { return NewInMemoryStore() }},
		{name: "redis", setup: func(t *testing.T) Store { return setupMiniredis(t) }},
		{name: "sqlite", setup: func(t *testing.T) Store { return setupSQLite(t) }},
		{name: "firestore", setup: func(t *testing.T) Store { return setupFirestore(t) }},
	}

	for _, s := range stores {
		t.Run(s.name, func(t *testing.T) {
			ctx := context.Background()
			store := s.setup(t)

			eps, err := store.LoadEpisodes(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, eps)
			g, err := store.LoadGraph(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, g)

			require.NoError(t, store.SaveEpisodes(ctx, "ns", []string{"one", "two"}))
			require.NoError(t, store.SaveEpisodes(ctx, "ns", []string{"one", "two", "three"}))
			eps, err = store.LoadEpisodes(ctx, "ns")
			require.NoError(t, err)
			assert.Equal(t, []string{"one", "two", "three"}, eps)

			graph := Graph{"Ada": {"likes": {"math"}}}
			require.NoError(t, store.SaveGraph(ctx, "ns", graph))
			g, err = store.LoadGraph(ctx, "ns")
			require.NoError(t, err)
			assert.Equal(t, graph, g)

			eps, err = store.LoadEpisodes(ctx, "ns")
			require.NoError(t, err)
			assert.Len(t, eps, 3, "saving the graph must not clobber episodes")

			require.NoError(t, store.SaveEpisodes(ctx, "ns", nil))
			eps, err = store.LoadEpisodes(ctx, "ns")
			require.NoError(t, err)
			assert.Empty(t, eps)
		})
	}
}

func TestBank(t *testing.T) {
	ctx := context.Background()
	store := setupSQLite(t)

	b := NewBank(store, "EpisodicAgent")
	require.NoError(t, b.Load(ctx))
	b.Episodes.Add("User asked about otters")
	b.Graph.AddTriplet(Triplet{"user", "likes", "otters"})
	require.NoError(t, b.Save(ctx))

	again := NewBank(store, "EpisodicAgent")
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, []string{"User asked about otters"}, again.Episodes.All())
	assert.Equal(t, []string{"otters"}, again.Graph.Related("user")["likes"])

	t.Run("nil store", func(t *testing.T) {
		nb := NewBank(nil, "x")
		require.NoError(t, nb.Load(ctx))
		nb.Episodes.Add("e")
		require.NoError(t, nb.Save(ctx))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, "sqlite:"+filepath.Join(t.TempDir(), "mem", "m.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "etcd://x")
	assert.Error(t, err)
}
