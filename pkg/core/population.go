package core

// Population is the ordered set of candidates under evolution in one
// generation. Candidates appended by variation operators always come after
// all pre-existing candidates; that ordering boundary is what the breeder's
// age and operated-on bookkeeping relies on.
type Population struct {
	candidates []*Candidate
}

// NewPopulation creates an empty population with the given capacity hint.
func NewPopulation(capacity int) *Population {
	if capacity < 0 {
		capacity = 0
	}
	return &Population{
		candidates: make([]*Candidate, 0, capacity),
	}
}

// NewPopulationFrom wraps an existing candidate slice.
func NewPopulationFrom(candidates []*Candidate) *Population {
	return &Population{candidates: candidates}
}

// Add appends a candidate at the end of the population.
func (p *Population) Add(c *Candidate) {
	p.candidates = append(p.candidates, c)
}

// Get returns the candidate at index i.
func (p *Population) Get(i int) *Candidate {
	return p.candidates[i]
}

// Size returns the number of candidates.
func (p *Population) Size() int {
	return len(p.candidates)
}

// Candidates returns the backing slice. Callers must not reorder existing
// entries; appending is what operators are expected to do.
func (p *Population) Candidates() []*Candidate {
	return p.candidates
}

// Contains reports whether the exact candidate (by identity) is present.
func (p *Population) Contains(c *Candidate) bool {
	for _, existing := range p.candidates {
		if existing == c {
			return true
		}
	}
	return false
}

// ContainsEqual reports whether a structurally equal candidate is present.
func (p *Population) ContainsEqual(c *Candidate) bool {
	for _, existing := range p.candidates {
		if existing.StructuralEqual(c) {
			return true
		}
	}
	return false
}

// KeepConstant trims the population down to target size by dropping
// candidates from the tail. Operators append after the survivors, so the
// tail holds the newest individuals.
func (p *Population) KeepConstant(target int) {
	if target >= 0 && len(p.candidates) > target {
		for i := target; i < len(p.candidates); i++ {
			p.candidates[i] = nil
		}
		p.candidates = p.candidates[:target]
	}
}

// RemoveUnevaluated filters out candidates still carrying the fitness
// sentinel, preserving order.
func (p *Population) RemoveUnevaluated() {
	kept := p.candidates[:0]
	for _, c := range p.candidates {
		if c.HasFitness() {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(p.candidates); i++ {
		p.candidates[i] = nil
	}
	p.candidates = kept
}

// Unevaluated returns the candidates still carrying the fitness sentinel,
// in population order.
func (p *Population) Unevaluated() []*Candidate {
	var out []*Candidate
	for _, c := range p.candidates {
		if !c.HasFitness() {
			out = append(out, c)
		}
	}
	return out
}

// Fittest returns the best candidate according to the ranker, ties broken
// by first occurrence. Returns nil for an empty population.
func (p *Population) Fittest(ranker Ranker) *Candidate {
	if len(p.candidates) == 0 {
		return nil
	}
	if ranker == nil {
		ranker = HigherIsFitter
	}
	best := p.candidates[0]
	for _, c := range p.candidates[1:] {
		if ranker(c, best) {
			best = c
		}
	}
	return best
}

// Ranker reports whether a is strictly fitter than b.
type Ranker func(a, b *Candidate) bool

// HigherIsFitter is the default ranking: larger fitness values win.
func HigherIsFitter(a, b *Candidate) bool {
	return a.Fitness() > b.Fitness()
}
