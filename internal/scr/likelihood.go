package scr

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func invLogit(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// NegLogLik is the negative full Poisson SCR log-likelihood on the working
// scale x = (logit p0, log sigma, log per-pixel density), dropping the
// data-only log n! constant. For activity center s_g, trap j with declared
// effort K_j and p_jg = p0·exp(−d²/2σ²):
//
//	logL = Σ_i log Σ_g λ·Π_j p_jg^{n_ij}(1−p_jg)^{K_j−n_ij}  −  λ·Σ_g pdot_g
//
// with λ = exp(x[2]) per pixel and pdot_g = 1 − Π_j (1−p_jg)^{K_j}.
func (d *Data) NegLogLik(x []float64) float64 {
	p0 := invLogit(x[0])
	twoSigma2 := 2 * math.Exp(2*x[1])
	logLam := x[2]

	j, g := d.d2.Dims()
	lp := make([]float64, j) // log p_jg for the current pixel
	lq := make([]float64, j) // log(1−p_jg)
	terms := make([][]float64, d.Individuals())
	for i := range terms {
		terms[i] = make([]float64, g)
	}

	var pdotSum float64
	for p := 0; p < g; p++ {
		var b float64
		for t := 0; t < j; t++ {
			pr := p0 * math.Exp(-d.d2.At(t, p)/twoSigma2)
			lp[t] = math.Log(pr)
			lq[t] = math.Log1p(-pr)
			b += d.Effort[t] * lq[t]
		}
		pdotSum += 1 - math.Exp(b)

		for i, caps := range d.caps {
			v := b
			for _, c := range caps {
				v += c.count * (lp[c.trap] - lq[c.trap])
			}
			terms[i][p] = logLam + v
		}
	}

	ll := -math.Exp(logLam) * pdotSum
	for i := range terms {
		ll += floats.LogSumExp(terms[i])
	}
	if math.IsNaN(ll) {
		return math.Inf(1)
	}
	return -ll
}
