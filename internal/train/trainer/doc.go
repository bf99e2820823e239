// Package trainer runs the per-record synchronized ensemble training loop.
//
// The model is a sum of S shards partitioned into n contiguous blocks, one per
// worker goroutine. For every training record:
//
//  1. each worker computes the partial sum of its block and publishes it
//  2. each worker arrives at the phase barrier and spins
//  3. the supervisor (the goroutine calling Train) waits for all arrivals,
//     sums the partials, and broadcasts the scaled residual
//  4. the supervisor releases the barrier
//  5. each worker reads the residual and updates its shards
//
// Every shard therefore trains on the exact residual of the full model for the
// same record, which makes the result equivalent to sequential training up to
// floating point summation order.
//
// Epoch state machine:
//
//	DISPATCH -> (WAIT_ARRIVALS -> AGGREGATE -> BROADCAST)* -> JOIN -> VALIDATE
//	         -> CONTINUE | TERMINATE
//
// An optional pretraining stage first trains disjoint shard pairs without any
// synchronization. Pairs never share state, so the stage is bit-identical
// whatever the pair concurrency.
//
// Cancellation: the context is checked between epochs and between
// pretraining pairs. An epoch in progress always runs to completion, because
// a worker that leaves mid-epoch would stall the barrier forever.
//
// Liveness: a shard that panics or never returns from Compute or Update stalls
// the whole epoch. This is not detected.
//
// Example:
//
//	model, _ := kan.New(layout, limits, seed)
//	t, err := trainer.New(trainer.DefaultConfig(), model,
//	    trainer.WithLogger(logger),
//	    trainer.WithReporter(metric.Validator{Range: bounds.TargetRange()}),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := t.Train(ctx, trainSet, validationSet)
package trainer
