package pipeline

// State is the position of a cycle inside the pipeline. A cycle walks the
// states in order; recoverable failures (one source query, one resolution
// strategy) degrade data and keep walking, and only context discovery can
// abort the cycle.
type State int

const (
	StateIdle State = iota
	StateExtractingContext
	StateResolvingContextID
	StateResolvingLocalPaths
	StateFetchingPrimary
	StateExtractingReferences
	StateValidatingAndFetchingNested
	StateMerging
	StateBuilt
)

var stateNames = map[State]string{
	StateIdle:                        "Idle",
	StateExtractingContext:           "ExtractingContext",
	StateResolvingContextID:          "ResolvingContextID",
	StateResolvingLocalPaths:         "ResolvingLocalPaths",
	StateFetchingPrimary:             "FetchingPrimary",
	StateExtractingReferences:        "ExtractingReferences",
	StateValidatingAndFetchingNested: "ValidatingAndFetchingNested",
	StateMerging:                     "Merging",
	StateBuilt:                       "Built",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "Unknown"
}
