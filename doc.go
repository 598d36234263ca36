// Package randls solves tall least-squares problems min ‖Ax − b‖ with
// randomized sketches on row-partitioned data.
//
// The augmented matrix [A|b] is read once per pass from a partitioned Source
// (local rows or a text blob in any blobstore.BlobStore) and reduced to a
// small sketch, either by a random projection (Gaussian, Rademacher,
// Clarkson-Woodruff, subsampled randomized Hadamard) or by leverage-score
// sampling.
//
// # Solvers
//
// The low precision solver solves the sketched problem directly:
//
//	cfg := randls.Config{
//	    SolverType:     randls.LowPrecision,
//	    SketchType:     randls.Projection,
//	    ProjectionType: randls.Gaussian,
//	    R:              200,
//	    Trials:         5,
//	}
//
// The high precision solver uses the sketch as a preconditioner for LSQR on
// the full matrix:
//
//	cfg := randls.Config{
//	    SolverType:     randls.HighPrecision,
//	    SketchType:     randls.Projection,
//	    ProjectionType: randls.SRDHT,
//	    R:              200,
//	    Iters:          randls.Iters(10),
//	}
//
// # Quick Start
//
//	session := randls.NewSession(randls.SessionConfig{Parallelism: 8})
//	rm, _ := randls.NewMatrix(session, randls.FromRows(rows, 16), "demo", m, n+1)
//	ls, _ := randls.New(rm, cfg, randls.WithLogger(randls.NewTextLogger(slog.LevelInfo)))
//	res, _ := ls.Fit(ctx)
//
//	ref, _ := randls.ComputeReference(ctx, rm)
//	eval, _ := randls.Evaluate(ctx, rm, res.Trials, ref)
//
// # Persisted factors
//
// The preconditioning factor N of a sketch can be saved and reused across
// runs with WithFactorStore and Config.SaveN / Config.LoadN. Factors are
// content addressed by their key (dataset, shape, sketch parameters and
// trial); a missing factor is computed fresh, a factor recorded under a
// different key is a ConfigurationError.
package randls
