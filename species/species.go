// species/species.go
package species

//go:generate go tool mockgen -destination=./mocks/species_mock.go -package=mocks . Directory,EvolutionGraph

import (
	"context"
	"errors"
	"math/rand"
)

var (
	ErrEmptyDirectory = errors.New("species directory is empty")
	ErrNotFound       = errors.New("species not found")
)

// Directory 物种目录，进程启动时加载一次
type Directory interface {
	Contains(name string) bool
	Random(rng *rand.Rand) (string, error)
}

// EvolutionGraph returns the next-stage species for a species. Zero, one or many.
type EvolutionGraph interface {
	NextEvolutions(ctx context.Context, name string) ([]string, error)
}
