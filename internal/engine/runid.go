package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// RunIDGenerator mints the id stamped on a report and its manifest.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator mints UUIDv7 run ids. They sort by creation time, so the
// reports of successive runs list in order.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of run ids in order. Tests use it
// to get stable reports.
type FixedGenerator struct {
	ids  []string
	next atomic.Int64
}

func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate panics when a run starts after every id was handed out.
func (g *FixedGenerator) Generate() string {
	n := int(g.next.Add(1)) - 1
	if n >= len(g.ids) {
		panic(fmt.Sprintf("engine: run %d started but only %d fixed run ids were given", n+1, len(g.ids)))
	}
	return g.ids[n]
}
