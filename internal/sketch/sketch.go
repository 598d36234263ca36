package sketch

import (
	"fmt"
	"math/rand/v2"

	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the projection family.
type Kind = model.ProjectionType

// Projection families.
const (
	Gaussian   = model.Gaussian
	Rademacher = model.Rademacher
	CW         = model.CW
	SRDHT      = model.SRDHT
)

// Mode selects projection or sampling.
type Mode = model.SketchType

// Sketch is the reduced matrix [SA|Sb].
type Sketch struct {
	Mode Mode
	Kind Kind
	// Size is the requested row count (r for projection, s for sampling).
	Size int
	// Data is Size×(n+1).
	Data *mat.Dense
}

// Rows returns the number of sketch rows.
func (s *Sketch) Rows() int {
	r, _ := s.Data.Dims()
	return r
}

// ValidateProjection checks the projection parameters for a matrix with cols
// columns before any partition work starts.
func ValidateProjection(cols int, kind Kind, r int) error {
	switch kind {
	case Gaussian, Rademacher, CW, SRDHT:
	default:
		return model.NewConfigurationError("projection_type", fmt.Sprintf("unknown projection %v", kind), nil)
	}
	if r < cols {
		return model.NewConfigurationError("r", fmt.Sprintf("sketch size %d is smaller than n+1=%d", r, cols), nil)
	}
	return nil
}

// ValidateSampling checks the sampling size.
func ValidateSampling(cols int, s int) error {
	if s < cols {
		return model.NewConfigurationError("s", fmt.Sprintf("sampling size %d is smaller than n+1=%d", s, cols), nil)
	}
	return nil
}

// Stream tags separate the random streams a single seed feeds.
const (
	streamProjection uint64 = iota + 1
	streamSelection
	streamSampling
)

// newRNG returns the PCG stream for (seed, stream, partition).
func newRNG(seed, stream uint64, partition int) *rand.Rand {
	return rand.New(rand.NewPCG(mix(seed^stream<<56), mix(uint64(partition)+stream)))
}

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
