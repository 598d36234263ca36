package factorstore

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/randls/model"
)

// Key identifies the sketch a factor was derived from.
type Key struct {
	Dataset string
	// M is the number of rows of the (stacked) matrix.
	M int
	// N is the number of columns of A.
	N    int
	Mode model.SketchType
	Kind model.ProjectionType
	// R is the projection size the factor was computed from.
	R int
	// S is the sampling size, zero for projection sketches.
	S int
	// Trial is the trial index the factor belongs to.
	Trial int
}

// String returns the canonical form used for hashing and recorded in blobs.
func (k Key) String() string {
	return k.Dataset +
		"|m=" + strconv.Itoa(k.M) +
		"|n=" + strconv.Itoa(k.N) +
		"|mode=" + k.Mode.String() +
		"|kind=" + k.Kind.String() +
		"|r=" + strconv.Itoa(k.R) +
		"|s=" + strconv.Itoa(k.S) +
		"|trial=" + strconv.Itoa(k.Trial)
}

// Hash returns the content address of the key.
func (k Key) Hash() uint64 {
	return xxhash.Sum64String(k.String())
}

// Name returns the blob name for the key, relative to the store prefix.
func (k Key) Name() string {
	return fmt.Sprintf("%016x.bin", k.Hash())
}
