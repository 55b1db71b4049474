// species/static.go
package species

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/wdlord/discord-pokebot/models"
)

var (
	_ Directory      = (*StaticDirectory)(nil)
	_ EvolutionGraph = StaticGraph(nil)
)

// StaticDirectory is an immutable set of species names.
type StaticDirectory struct {
	names []string
	index map[string]struct{}
}

func NewStaticDirectory(names []string) *StaticDirectory {
	d := &StaticDirectory{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = models.NormalizeSpecies(n)
		if n == "" {
			continue
		}
		if _, dup := d.index[n]; dup {
			continue
		}
		d.index[n] = struct{}{}
		d.names = append(d.names, n)
	}
	sort.Strings(d.names)
	return d
}

// LoadDirectory 从JSON文件加载物种名称列表 (["bulbasaur", ...])
func LoadDirectory(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read species file: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode species file: %w", err)
	}
	return NewStaticDirectory(names), nil
}

func (d *StaticDirectory) Contains(name string) bool {
	_, ok := d.index[models.NormalizeSpecies(name)]
	return ok
}

func (d *StaticDirectory) Random(rng *rand.Rand) (string, error) {
	if len(d.names) == 0 {
		return "", ErrEmptyDirectory
	}
	return d.names[rng.Intn(len(d.names))], nil
}

// Len returns the number of species.
func (d *StaticDirectory) Len() int { return len(d.names) }

// StaticGraph maps a species to its next stages.
type StaticGraph map[string][]string

func (g StaticGraph) NextEvolutions(_ context.Context, name string) ([]string, error) {
	next := g[models.NormalizeSpecies(name)]
	return append([]string(nil), next...), nil
}
