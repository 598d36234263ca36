package codec

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownCodec is returned when a result file names a codec that is not
// built in.
var ErrUnknownCodec = errors.New("unknown codec")

// Result is the persisted outcome of a run.
type Result struct {
	// Time is the total trial time in seconds.
	Time float64 `json:"time"`
	// X is the representative solution (the last trial's).
	X []float64 `json:"x"`
	// Trials holds every trial's solution.
	Trials [][]float64 `json:"trials,omitempty"`
	Seed   uint64      `json:"seed,omitempty"`
}

// NewResult builds a Result from the elapsed time and solutions.
func NewResult(elapsed time.Duration, x []float64, trials [][]float64, seed uint64) Result {
	return Result{Time: elapsed.Seconds(), X: x, Trials: trials, Seed: seed}
}

// EncodeResult encodes r with c. The first line holds the codec name.
func EncodeResult(c Codec, r Result) ([]byte, error) {
	if c == nil {
		c = Default
	}
	payload, err := c.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	out := make([]byte, 0, len(c.Name())+1+len(payload))
	out = append(out, c.Name()...)
	out = append(out, '\n')
	return append(out, payload...), nil
}

// DecodeResult decodes a file written by EncodeResult.
func DecodeResult(data []byte) (*Result, error) {
	name, payload, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, fmt.Errorf("result: missing codec header")
	}
	c, ok := ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("result: %w %q", ErrUnknownCodec, name)
	}
	var r Result
	if err := c.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return &r, nil
}
