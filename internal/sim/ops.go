package sim

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
)

// OpMatrix is a J×K (traps × occasions) binary operating-status matrix.
// Trap and occasion indices are 0-based here; occasion k-1 corresponds to
// the 1-based occasion k used in encounter records.
type OpMatrix struct {
	J, K int
	on   []bool
}

// AllActive returns the matrix declaring every trap active on every occasion.
func AllActive(j, k int) *OpMatrix {
	m := &OpMatrix{J: j, K: k, on: make([]bool, j*k)}
	for i := range m.on {
		m.on[i] = true
	}
	return m
}

// Active reports whether trap j was operating on (0-based) occasion k.
func (m *OpMatrix) Active(j, k int) bool { return m.on[j*m.K+k] }

func (m *OpMatrix) set(j, k int, v bool) { m.on[j*m.K+k] = v }

// ActiveCount is the number of trap-occasion cells declared operating.
func (m *OpMatrix) ActiveCount() int {
	n := 0
	for _, v := range m.on {
		if v {
			n++
		}
	}
	return n
}

// Effort returns, per trap, the number of occasions declared operating.
func (m *OpMatrix) Effort() []float64 {
	eff := make([]float64, m.J)
	for j := 0; j < m.J; j++ {
		for k := 0; k < m.K; k++ {
			if m.Active(j, k) {
				eff[j]++
			}
		}
	}
	return eff
}

// Equal reports whether two matrices have the same shape and cells.
func (m *OpMatrix) Equal(o *OpMatrix) bool {
	if m.J != o.J || m.K != o.K {
		return false
	}
	for i := range m.on {
		if m.on[i] != o.on[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *OpMatrix) Clone() *OpMatrix {
	c := &OpMatrix{J: m.J, K: m.K, on: make([]bool, len(m.on))}
	copy(c.on, m.on)
	return c
}

// Deactivated builds the true operating-status matrix for a scenario: a
// simple random sample (without replacement) of round(J·pct/100) traps goes
// dark from 1-based occasion onset through K. onset may be K+1, meaning the
// failure never happens within the survey. pct = 0 selects no trap and the
// result equals AllActive; that is a legitimate scenario, not an error.
// The selected trap indices are returned sorted.
func Deactivated(j, k, onset int, pct float64, rng *rand.Rand) (*OpMatrix, []int, error) {
	if pct < 0 || pct > 100 {
		return nil, nil, fmt.Errorf("sim: percent inactive %v outside [0,100]", pct)
	}
	if onset < 1 || onset > k+1 {
		return nil, nil, fmt.Errorf("sim: onset occasion %d outside [1,%d]", onset, k+1)
	}
	m := AllActive(j, k)
	nSel := int(math.Round(float64(j) * pct / 100))
	sel := append([]int(nil), rng.Perm(j)[:nSel]...)
	sort.Ints(sel)
	for _, t := range sel {
		for occ := onset; occ <= k; occ++ {
			m.set(t, occ-1, false)
		}
	}
	return m, sel, nil
}
