package billgen

import "math/rand"

// namePool hands out purchaser names round-robin over a shuffled copy
// of the input, so consecutive bills rotate through the whole pool.
type namePool struct {
	names []string
	idx   int
}

func newNamePool(names []string, rng *rand.Rand) *namePool {
	pool := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			pool = append(pool, name)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return &namePool{names: pool}
}

func (p *namePool) next() string {
	if len(p.names) == 0 {
		return ""
	}
	name := p.names[p.idx%len(p.names)]
	p.idx++
	return name
}

// skip advances past the upcoming name, used to avoid pairing the same
// purchaser with back-to-back identical totals.
func (p *namePool) skip() {
	if len(p.names) > 1 {
		p.idx++
	}
}
