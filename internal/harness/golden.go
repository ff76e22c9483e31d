package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/plangraph/internal/engine"
)

// GoldenDir holds the expected report renderings, one <name>.golden per
// scenario. Regenerate with `go test ./internal/harness -update`.
const GoldenDir = "testdata/golden"

// RunWithGolden runs sc and checks the text report of its first run
// against the golden file named after the scenario.
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), sc)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, sc.Name, result.Report)
}

// AssertGolden renders report as text and compares it with GoldenDir/name.golden.
func AssertGolden(t *testing.T, name string, report *engine.Report) error {
	t.Helper()

	var text bytes.Buffer
	if err := report.WriteText(&text); err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, name, text.Bytes())
	return nil
}
