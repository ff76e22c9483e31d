package analyze

// Thresholds are the tunable knobs of the invariants.
type Thresholds struct {
	// ScenarioCoverage is the fraction of Scenarios that must reach an
	// InteractionSpec for P2. 1.0 is strict; looser loops use 0.95.
	ScenarioCoverage float64 `json:"scenario_coverage" yaml:"scenario_coverage" validate:"gt=0,lte=1"`

	// NonterminalCoverage is the fraction of Requirements, non-simple
	// ChangeSpecs and Scenarios that must have their children for P9.
	NonterminalCoverage float64 `json:"nonterminal_coverage" yaml:"nonterminal_coverage" validate:"gt=0,lte=1"`

	// DataLifecycleMinTerms is how many lifecycle terms a data Contract
	// must mention for P3.
	DataLifecycleMinTerms int `json:"data_lifecycle_min_terms" yaml:"data_lifecycle_min_terms" validate:"gte=1,lte=8"`

	// APIWeakMissing is how many vocabulary terms an api Contract may lack
	// before it is API_weak.
	APIWeakMissing int `json:"api_weak_missing" yaml:"api_weak_missing" validate:"gte=1,lte=6"`

	// DomainTopicFloor is how many of the sixteen topics Scenario and
	// Requirement statements must cover for P10.
	DomainTopicFloor int `json:"domain_topic_floor" yaml:"domain_topic_floor" validate:"gte=0,lte=16"`
}

// DefaultThresholds returns the strict thresholds used by the repair command.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ScenarioCoverage:      1.0,
		NonterminalCoverage:   1.0,
		DataLifecycleMinTerms: 4,
		APIWeakMissing:        2,
		DomainTopicFloor:      14,
	}
}
