package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ n int }
type pong struct{}

func TestBusDispatchesByType(t *testing.T) {
	b := New()
	var got []int
	unsub := On(b, func(_ context.Context, p ping) { got = append(got, p.n) })
	On(b, func(_ context.Context, p ping) { got = append(got, p.n*10) })
	pongs := 0
	On(b, func(context.Context, pong) { pongs++ })

	Emit(context.Background(), b, ping{1})
	Emit(context.Background(), b, pong{})
	unsub()
	unsub()
	Emit(context.Background(), b, ping{2})

	assert.Equal(t, []int{1, 10, 20}, got)
	assert.Equal(t, 1, pongs)
}

func TestGlobalBus(t *testing.T) {
	Use(nil)
	// no bus: both are no-ops
	Subscribe(func(context.Context, ping) { t.Fatal("unexpected delivery") })()
	Publish(context.Background(), ping{})

	b := New()
	Use(b)
	defer Use(nil)

	var mu sync.Mutex
	total := 0
	defer Subscribe(func(_ context.Context, p ping) {
		mu.Lock()
		total += p.n
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Publish(context.Background(), ping{n})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 55, total)
}
