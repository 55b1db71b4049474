// species/pokeapi.go
package species

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wdlord/discord-pokebot/models"
)

const DefaultPokeAPIURL = "https://pokeapi.co/api/v2"

var _ EvolutionGraph = (*PokeAPIClient)(nil)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// PokeAPIConfig controls how the client reaches pokeapi.
type PokeAPIConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// PokeAPIClient resolves evolutions from the pokeapi evolution chain.
// Results are cached per species; concurrent lookups for the same species share one request.
type PokeAPIClient struct {
	baseURL    string
	httpClient httpDoer

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]string
}

func NewPokeAPIClient(cfg PokeAPIConfig) *PokeAPIClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultPokeAPIURL
	}
	var client httpDoer = cfg.HTTPClient
	if cfg.HTTPClient == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PokeAPIClient{
		baseURL:    base,
		httpClient: client,
		cache:      make(map[string][]string),
	}
}

type speciesResponse struct {
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

type chainLink struct {
	Species struct {
		Name string `json:"name"`
	} `json:"species"`
	EvolvesTo []chainLink `json:"evolves_to"`
}

type chainResponse struct {
	Chain chainLink `json:"chain"`
}

// NextEvolutions 查询进化链，返回下一阶段的物种
func (c *PokeAPIClient) NextEvolutions(ctx context.Context, name string) ([]string, error) {
	name = models.NormalizeSpecies(name)

	c.mu.RLock()
	next, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return append([]string(nil), next...), nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		var sp speciesResponse
		if err := c.getJSON(ctx, c.baseURL+"/pokemon-species/"+url.PathEscape(name)+"/", &sp); err != nil {
			return nil, err
		}
		if sp.EvolutionChain.URL == "" {
			return []string{}, nil
		}
		var chain chainResponse
		if err := c.getJSON(ctx, sp.EvolutionChain.URL, &chain); err != nil {
			return nil, err
		}
		next := []string{}
		if link := findInChain(&chain.Chain, name); link != nil {
			for _, e := range link.EvolvesTo {
				next = append(next, e.Species.Name)
			}
		}
		c.mu.Lock()
		c.cache[name] = next
		c.mu.Unlock()
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

func findInChain(link *chainLink, name string) *chainLink {
	if link.Species.Name == name {
		return link
	}
	for i := range link.EvolvesTo {
		if found := findInChain(&link.EvolvesTo[i], name); found != nil {
			return found
		}
	}
	return nil
}

func (c *PokeAPIClient) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pokeapi: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
