package testutil

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillGaussian fills dst with standard normal values.
// Locks only once per call (preferred over calling NormFloat64 in a loop).
func (r *RNG) FillGaussian(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.NormFloat64()
	}
}

// GaussianMatrix generates an m×n matrix with i.i.d. standard normal entries.
// Uses a single backing array for efficiency.
func (r *RNG) GaussianMatrix(m, n int) [][]float64 {
	data := make([]float64, m*n)
	r.FillGaussian(data)

	rows := make([][]float64, m)
	for i := range rows {
		rows[i] = data[i*n : (i+1)*n : (i+1)*n]
	}
	return rows
}

// Problem is a synthetic least-squares instance.
type Problem struct {
	// Rows holds [A|b], one row per observation.
	Rows [][]float64
	// XTrue is the coefficient vector b was generated from.
	XTrue []float64
}

// Problem returns a well-conditioned m×n instance with b = A·x + noise·e.
func (r *RNG) Problem(m, n int, noise float64) Problem {
	a := r.GaussianMatrix(m, n)
	x := make([]float64, n)
	r.FillGaussian(x)
	e := make([]float64, m)
	r.FillGaussian(e)

	rows := make([][]float64, m)
	for i, ai := range a {
		row := make([]float64, n+1)
		copy(row, ai)
		var dot float64
		for j, v := range ai {
			dot += v * x[j]
		}
		row[n] = dot + noise*e[i]
		rows[i] = row
	}
	return Problem{Rows: rows, XTrue: x}
}

// Residual returns ‖A·x − b‖ for rows holding [A|b].
func Residual(rows [][]float64, x []float64) float64 {
	var ss float64
	for _, row := range rows {
		n := len(row) - 1
		d := -row[n]
		for j := 0; j < n; j++ {
			d += row[j] * x[j]
		}
		ss += d * d
	}
	return math.Sqrt(ss)
}

// RelativeError returns ‖x − y‖ / ‖y‖.
func RelativeError(x, y []float64) float64 {
	var num, den float64
	for i := range y {
		d := x[i] - y[i]
		num += d * d
		den += y[i] * y[i]
	}
	return math.Sqrt(num / den)
}

// FormatRows renders rows in the whitespace separated text source format.
func FormatRows(rows [][]float64) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
