package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/plangraph/internal/plan"
)

// Manifest summarises the graph after a repair run.
type Manifest struct {
	// PlanVersion is "v<N>", bumped once per repair run that changed the
	// graph.
	PlanVersion string `json:"plan_version"`
	Stats       Stats  `json:"stats"`
	// Hotset lists the ids changed by the run that wrote the manifest.
	Hotset []string `json:"hotset"`
	// RunID identifies the run that wrote the manifest.
	RunID string `json:"run_id,omitempty"`
}

// Stats counts nodes and edges by a few coarse buckets.
type Stats struct {
	Nodes   int            `json:"nodes"`
	Edges   int            `json:"edges"`
	Ready   int            `json:"ready"`
	Blocked int            `json:"blocked"`
	ByType  map[string]int `json:"by_type,omitempty"`
}

// ComputeStats counts g.
func ComputeStats(g *plan.Graph) Stats {
	s := Stats{Nodes: len(g.Nodes), Edges: len(g.Edges), ByType: make(map[string]int)}
	for _, n := range g.Nodes {
		s.ByType[string(n.Type)]++
		switch n.Status {
		case plan.StatusReady:
			s.Ready++
		case plan.StatusBlocked:
			s.Blocked++
		}
	}
	return s
}

// Version returns the numeric part of PlanVersion, or 0 when it is unset or
// not of the form "v<N>".
func (m Manifest) Version() int {
	n, err := strconv.Atoi(strings.TrimPrefix(m.PlanVersion, "v"))
	if err != nil || !strings.HasPrefix(m.PlanVersion, "v") || n < 0 {
		return 0
	}
	return n
}

// Next returns the manifest for a run that changed hotset, with the plan
// version bumped.
func (m Manifest) Next(g *plan.Graph, hotset []string, runID string) Manifest {
	hot := append([]string(nil), hotset...)
	sort.Strings(hot)
	return Manifest{
		PlanVersion: fmt.Sprintf("v%d", m.Version()+1),
		Stats:       ComputeStats(g),
		Hotset:      hot,
		RunID:       runID,
	}
}
