package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/plangraph/internal/plan"
)

func TestAllTopicsStmt_CoversEveryTopic(t *testing.T) {
	assert.Empty(t, plan.Missing(plan.Topics, AllTopicsStmt))
}

func TestCompleteGraph_Shape(t *testing.T) {
	g := CompleteGraph()
	assert.Len(t, g.Nodes, 8)
	x := plan.NewIndex(g)
	assert.Equal(t, []string{"ix:core-api-create-fresh-under-ok"}, x.ReachableIX("scenario:core"))
	assert.Empty(t, x.MissingChildren("requirement:core"))
	assert.Len(t, x.ValidTests("scenario:core"), 1)
}
