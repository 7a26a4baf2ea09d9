package future

// Aggregator combines a stream of partial results of type AggT into a
// single ResultT, firing a Future once Done is called. Unlike the
// class-hierarchy this is grounded on, accumulation and finalization
// are supplied as closures rather than by subclassing: addPartial
// mutates whatever state the caller closed over (a running sum, a
// growing rope, a counter), and finalize reads that state back out
// once generation is complete.
//
// AddPartialResult is not goroutine-safe and enforces no ordering; if
// multiple goroutines generate partial results concurrently, or if
// ordering of results matters, the caller's closures (or the caller
// itself) must synchronize.
type Aggregator[ResultT, AggT any] struct {
	future     Future[ResultT]
	addPartial func(AggT)
	finalize   func() ResultT
}

// NewAggregator constructs an Aggregator. addPartial is called once
// per AddPartialResult; finalize is called exactly once, by Done, to
// compute the value the returned Future fires with.
func NewAggregator[ResultT, AggT any](addPartial func(AggT), finalize func() ResultT) *Aggregator[ResultT, AggT] {
	return &Aggregator[ResultT, AggT]{
		future:     New[ResultT](),
		addPartial: addPartial,
		finalize:   finalize,
	}
}

// AddPartialResult hands one partial result to the aggregator.
func (a *Aggregator[ResultT, AggT]) AddPartialResult(partial AggT) {
	a.addPartial(partial)
}

// Done finalizes the aggregation and fires the associated Future.
func (a *Aggregator[ResultT, AggT]) Done() {
	a.future.Fire(a.finalize())
}

// GetFuture returns the Future that fires when Done is called.
func (a *Aggregator[ResultT, AggT]) GetFuture() Future[ResultT] {
	return a.future
}
