package opt

import (
	"fmt"
	"math/rand"
)

// Initializer samples the first generation's gene vectors inside the
// declared bounds. Bounds are exclusive: the boundary values themselves are
// never produced, so a degenerate parameter (a zero rate, say) must be
// declared as a bound, not hoped for.
type Initializer interface {
	Name() string
	Sample(rng *rand.Rand, genes []Gene, n int) ([][]float64, error)
}

// Uniform samples each gene independently and uniformly.
type Uniform struct{}

func (Uniform) Name() string { return "uniform" }

func (Uniform) Sample(rng *rand.Rand, genes []Gene, n int) ([][]float64, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("no genes to sample")
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be > 0, got %d", n)
	}
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, len(genes))
		for j, g := range genes {
			u := rng.Float64()
			for u == 0 {
				u = rng.Float64()
			}
			v[j] = g.Low + u*(g.High-g.Low)
		}
		out[i] = v
	}
	return out, nil
}

// Sobol samples the low-discrepancy Sobol sequence, giving the first
// generation even coverage of the search space. Direction numbers cover up
// to MaxSobolDimension search dimensions.
type Sobol struct{}

func (Sobol) Name() string { return "sobol" }

// MaxSobolDimension is the highest dimensionality the embedded direction
// number table supports.
const MaxSobolDimension = 21

func (Sobol) Sample(rng *rand.Rand, genes []Gene, n int) ([][]float64, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("no genes to sample")
	}
	if len(genes) > MaxSobolDimension {
		return nil, fmt.Errorf("sobol initializer supports up to %d dimensions, got %d", MaxSobolDimension, len(genes))
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be > 0, got %d", n)
	}
	points, err := sobolPoints(len(genes), n)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, n)
	for i, p := range points {
		v := make([]float64, len(genes))
		for j, g := range genes {
			v[j] = g.Low + p[j]*(g.High-g.Low)
		}
		out[i] = v
	}
	return out, nil
}

// Joe and Kuo (2008) primitive polynomials and initial direction numbers
// for dimensions 2..21. Dimension 1 is the van der Corput sequence.
var sobolTable = []struct {
	s uint32
	a uint32
	m []uint32
}{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
	{6, 19, []uint32{1, 1, 1, 15, 7, 5}},
	{6, 22, []uint32{1, 3, 1, 15, 13, 25}},
	{6, 25, []uint32{1, 1, 5, 5, 19, 61}},
	{7, 1, []uint32{1, 3, 7, 11, 23, 15, 103}},
	{7, 4, []uint32{1, 3, 7, 13, 13, 15, 69}},
}

const sobolBits = 32

// sobolPoints generates n points of the d-dimensional sequence with the
// Gray code construction, skipping the all-zero first point so the lower
// bounds stay exclusive.
func sobolPoints(d, n int) ([][]float64, error) {
	if d < 1 || d > MaxSobolDimension {
		return nil, fmt.Errorf("sobol dimension %d out of range [1, %d]", d, MaxSobolDimension)
	}
	// direction numbers v[j][k], scaled by 2^(31-k).
	v := make([][]uint32, d)
	for j := range v {
		v[j] = make([]uint32, sobolBits)
		if j == 0 {
			for k := 0; k < sobolBits; k++ {
				v[j][k] = 1 << (31 - k)
			}
			continue
		}
		entry := sobolTable[j-1]
		s := int(entry.s)
		for k := 0; k < s; k++ {
			v[j][k] = entry.m[k] << (31 - k)
		}
		for k := s; k < sobolBits; k++ {
			v[j][k] = v[j][k-s] ^ (v[j][k-s] >> uint(s))
			for l := 1; l < s; l++ {
				if (entry.a>>(uint(s)-1-uint(l)))&1 == 1 {
					v[j][k] ^= v[j][k-l]
				}
			}
		}
	}

	out := make([][]float64, n)
	x := make([]uint32, d)
	for i := 0; i < n; i++ {
		// c = position of the lowest zero bit of i.
		c := 0
		for bit := uint32(i); bit&1 == 1; bit >>= 1 {
			c++
		}
		for j := 0; j < d; j++ {
			x[j] ^= v[j][c]
		}
		p := make([]float64, d)
		for j := 0; j < d; j++ {
			p[j] = float64(x[j]) / (1 << 32)
		}
		out[i] = p
	}
	return out, nil
}
