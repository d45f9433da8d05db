package reactive

// DefaultMaxEffectRuns is the default number of effect runs allowed per turn.
const DefaultMaxEffectRuns = 1000

// Budget caps the number of effect runs in a single turn (see
// Runtime.BeginTurn), or in a single flush outside a turn. It protects the
// event loop from effects that keep dirtying each other.
type Budget struct {
	maxRuns int
	runs    int
}

// NewBudget creates a budget allowing maxRuns effect runs per window.
// Zero or a negative value means no limit.
func NewBudget(maxRuns int) *Budget {
	return &Budget{maxRuns: maxRuns}
}

// reset starts a new window.
func (b *Budget) reset() {
	if b == nil {
		return
	}
	b.runs = 0
}

// take consumes one run, failing once the window is spent.
func (b *Budget) take() error {
	if b == nil || b.maxRuns <= 0 {
		return nil
	}
	if b.runs >= b.maxRuns {
		return ErrBudgetExceeded
	}
	b.runs++
	return nil
}

// Runs returns the number of runs consumed in the current window.
func (b *Budget) Runs() int {
	if b == nil {
		return 0
	}
	return b.runs
}
