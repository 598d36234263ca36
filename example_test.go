package randls_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/randls"
	"github.com/hupe1980/randls/testutil"
)

// Example_lowPrecision solves a sketched problem and compares against the
// exact solution.
func Example_lowPrecision() {
	ctx := context.Background()
	prob := testutil.NewRNG(42).Problem(1000, 10, 1.0)

	session := randls.NewSession(randls.SessionConfig{Parallelism: 4})
	rm, err := randls.NewMatrix(session, randls.FromRows(prob.Rows, 8), "example", 1000, 11)
	if err != nil {
		log.Fatal(err)
	}

	ls, err := randls.New(rm, randls.Config{
		SolverType:     randls.LowPrecision,
		SketchType:     randls.Projection,
		ProjectionType: randls.Gaussian,
		R:              200,
		Trials:         3,
		Seed:           1,
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := ls.Fit(ctx)
	if err != nil {
		log.Fatal(err)
	}

	ref, err := randls.ComputeReference(ctx, rm)
	if err != nil {
		log.Fatal(err)
	}
	eval, err := randls.Evaluate(ctx, rm, res.Trials, ref)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("trials:", len(res.Trials))
	fmt.Println("objective within 5%:", eval.FError < 0.05)
	// Output:
	// trials: 3
	// objective within 5%: true
}

// Example_highPrecision refines a sketch with preconditioned LSQR.
func Example_highPrecision() {
	ctx := context.Background()
	prob := testutil.NewRNG(7).Problem(2000, 20, 0.1)

	rm, err := randls.NewMatrix(nil, randls.FromRows(prob.Rows, 16), "example", 2000, 21, randls.WithCache(true))
	if err != nil {
		log.Fatal(err)
	}

	ls, err := randls.New(rm, randls.Config{
		SolverType:     randls.HighPrecision,
		SketchType:     randls.Projection,
		ProjectionType: randls.SRDHT,
		R:              200,
		Iters:          randls.Iters(25),
		Seed:           3,
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := ls.Fit(ctx)
	if err != nil {
		log.Fatal(err)
	}

	ref, _ := randls.ComputeReference(ctx, rm)
	eval, _ := randls.Evaluate(ctx, rm, res.Trials, ref)
	fmt.Println("solution error below 1e-8:", eval.XError < 1e-8)
	// Output: solution error below 1e-8: true
}
