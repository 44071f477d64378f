package workunit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_RunsEveryTask(t *testing.T) {
	p := newPool(3)

	var called atomic.Int32
	for range 10 {
		p.submit(func() { called.Add(1) })
	}
	p.wait()

	require.Equal(t, int32(10), called.Load())
}

func TestPool_WaitBlocksForRunningTask(t *testing.T) {
	p := newPool(0)

	var done atomic.Bool
	p.submit(func() {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	})
	p.wait()

	require.True(t, done.Load())
}
