package core

// EventKind identifies the observability hook points fired by the breeder.
type EventKind int

const (
	// Fired around the first ensure-fitness pass of a generation.
	EventBeforeEvaluation1 EventKind = iota
	EventAfterEvaluation1

	// Fired around the post-operator ensure-fitness pass.
	EventBeforeEvaluation2
	EventAfterEvaluation2

	// Fired around the bulk fitness function call.
	EventBeforeBulkEvaluation
	EventAfterBulkEvaluation

	// Fired before a random candidate is appended during size top-up.
	EventBeforeAddCandidate

	// Fired when the preserved fittest candidate is re-added.
	EventReaddedFittest

	// Fired once at the end of every evolve call.
	EventGenerationEvolved
)

// String provides human-readable event names.
func (k EventKind) String() string {
	switch k {
	case EventBeforeEvaluation1:
		return "before_evaluation_1"
	case EventAfterEvaluation1:
		return "after_evaluation_1"
	case EventBeforeEvaluation2:
		return "before_evaluation_2"
	case EventAfterEvaluation2:
		return "after_evaluation_2"
	case EventBeforeBulkEvaluation:
		return "before_bulk_evaluation"
	case EventAfterBulkEvaluation:
		return "after_bulk_evaluation"
	case EventBeforeAddCandidate:
		return "before_add_candidate"
	case EventReaddedFittest:
		return "readded_fittest"
	case EventGenerationEvolved:
		return "generation_evolved"
	default:
		return "unknown"
	}
}

// Monitor receives fire-and-forget notifications about the evolution cycle.
// Implementations must never block and must not panic back into the engine.
type Monitor interface {
	Event(kind EventKind, generation int, payload ...interface{})
}

// MonitorFunc adapts a plain function to the Monitor interface.
type MonitorFunc func(kind EventKind, generation int, payload ...interface{})

func (f MonitorFunc) Event(kind EventKind, generation int, payload ...interface{}) {
	f(kind, generation, payload...)
}
