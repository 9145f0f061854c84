package feed

import (
	"context"

	"railplan.dev/railplan/model"
)

// A chunkWriter batches records into RecordSets and sends each full
// chunk on the shared queue. The bounded queue provides backpressure:
// Put blocks when the writer can't keep up, which caps memory.
type chunkWriter struct {
	ctx   context.Context
	out   chan<- model.RecordSet
	limit int

	chunk model.RecordSet
	count int
}

func newChunkWriter(ctx context.Context, out chan<- model.RecordSet, limit int) *chunkWriter {
	return &chunkWriter{
		ctx:   ctx,
		out:   out,
		limit: limit,
		chunk: model.RecordSet{},
	}
}

func (w *chunkWriter) Put(r model.Record) error {
	w.chunk.Add(r)
	w.count++
	if w.count < w.limit {
		return nil
	}
	return w.flush()
}

// Close flushes any partial chunk.
func (w *chunkWriter) Close() error {
	if w.count == 0 {
		return nil
	}
	return w.flush()
}

func (w *chunkWriter) flush() error {
	select {
	case w.out <- w.chunk:
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
	w.chunk = model.RecordSet{}
	w.count = 0
	return nil
}
