package species

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory([]string{" Pikachu", "bulbasaur", "pikachu", ""})

	if d.Len() != 2 {
		t.Fatalf("Expected 2 species after normalization and dedup, got %d", d.Len())
	}
	if !d.Contains("PIKACHU ") {
		t.Error("Expected Contains to normalize input")
	}
	if d.Contains("kuriboh") {
		t.Error("Expected kuriboh to be unknown")
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		name, err := d.Random(rng)
		if err != nil {
			t.Fatalf("Random failed: %v", err)
		}
		if !d.Contains(name) {
			t.Fatalf("Random returned unknown species %q", name)
		}
	}
}

func TestStaticDirectory_Empty(t *testing.T) {
	_, err := NewStaticDirectory(nil).Random(rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Fatalf("Expected ErrEmptyDirectory, got %v", err)
	}
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")
	if err := os.WriteFile(path, []byte(`["eevee","vaporeon"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDirectory(path)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if !d.Contains("vaporeon") {
		t.Error("Expected vaporeon to be loaded")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(bad, []byte(`{`), 0o644)
	if _, err := LoadDirectory(bad); err == nil {
		t.Error("Expected decode error")
	}
}

func TestStaticGraph(t *testing.T) {
	g := StaticGraph{"eevee": {"vaporeon", "jolteon", "flareon"}}
	next, _ := g.NextEvolutions(context.Background(), "Eevee")
	if len(next) != 3 {
		t.Fatalf("Expected 3 evolutions, got %v", next)
	}
	next[0] = "mutated"
	again, _ := g.NextEvolutions(context.Background(), "eevee")
	if again[0] != "vaporeon" {
		t.Error("Expected callers not to share the graph's slice")
	}
	none, _ := g.NextEvolutions(context.Background(), "raichu")
	if len(none) != 0 {
		t.Errorf("Expected no evolutions, got %v", none)
	}
}

func newPokeAPIServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/pokemon-species/pikachu/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(`{"evolution_chain":{"url":"` + srv.URL + `/evolution-chain/10/"}}`))
	})
	mux.HandleFunc("/pokemon-species/raichu/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"evolution_chain":{"url":"` + srv.URL + `/evolution-chain/10/"}}`))
	})
	mux.HandleFunc("/evolution-chain/10/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chain":{"species":{"name":"pichu"},"evolves_to":[
			{"species":{"name":"pikachu"},"evolves_to":[
				{"species":{"name":"raichu"},"evolves_to":[]}
			]}
		]}}`))
	})
	mux.HandleFunc("/pokemon-species/broken/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPokeAPIClient_NextEvolutions(t *testing.T) {
	var hits int32
	srv := newPokeAPIServer(t, &hits)
	c := NewPokeAPIClient(PokeAPIConfig{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	ctx := context.Background()

	next, err := c.NextEvolutions(ctx, "Pikachu")
	if err != nil {
		t.Fatalf("NextEvolutions failed: %v", err)
	}
	if len(next) != 1 || next[0] != "raichu" {
		t.Fatalf("Expected [raichu], got %v", next)
	}

	last, err := c.NextEvolutions(ctx, "raichu")
	if err != nil {
		t.Fatalf("NextEvolutions failed: %v", err)
	}
	if len(last) != 0 {
		t.Errorf("Expected final stage to have no evolutions, got %v", last)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.NextEvolutions(ctx, "pikachu")
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected cached lookups to hit the API once, got %d", got)
	}
}

func TestPokeAPIClient_Errors(t *testing.T) {
	var hits int32
	srv := newPokeAPIServer(t, &hits)
	c := NewPokeAPIClient(PokeAPIConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})

	if _, err := c.NextEvolutions(context.Background(), "kuriboh"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := c.NextEvolutions(context.Background(), "broken"); err == nil {
		t.Error("Expected an error for a 500 response")
	}
}

func TestPokeAPIClient_EscapesName(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.EscapedPath())
		mu.Unlock()
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewPokeAPIClient(PokeAPIConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})

	if _, err := c.NextEvolutions(context.Background(), "Mr. Mime/../x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := "/pokemon-species/mr.%20mime%2F..%2Fx/"
	if len(seen) != 1 || seen[0] != want {
		t.Errorf("Expected request path %s, got %v", want, seen)
	}
}
