package testutil

// DefaultRunID is the run ID of a scenario that names none.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run ID every time, so a scenario run
// twice produces byte-identical traces.
//
// Unlike engine.FixedGenerator, which hands out IDs in sequence and panics
// when they run out, this generator never runs out.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id uses
// DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
