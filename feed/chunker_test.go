package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/model"
)

func TestChunkWriterBatches(t *testing.T) {
	out := make(chan model.RecordSet, 10)
	w := newChunkWriter(context.Background(), out, 3)

	for i := 0; i < 7; i++ {
		require.NoError(t, w.Put(model.Station{CRS: "BTN", Name: "Brighton"}))
	}
	require.NoError(t, w.Close())
	close(out)

	sizes := []int{}
	for chunk := range out {
		sizes = append(sizes, chunk.Len())
	}
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestChunkWriterCloseWithoutRecords(t *testing.T) {
	out := make(chan model.RecordSet, 1)
	w := newChunkWriter(context.Background(), out, 3)
	require.NoError(t, w.Close())
	assert.Empty(t, out)
}

// A full queue must not wedge shutdown: Put unblocks when the
// pipeline context is cancelled.
func TestChunkWriterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan model.RecordSet) // unbuffered, never drained
	w := newChunkWriter(ctx, out, 1)

	cancel()
	err := w.Put(model.Station{CRS: "BTN", Name: "Brighton"})
	assert.ErrorIs(t, err, context.Canceled)
}
