package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/clock"
)

type recorder[T any] struct {
	mu    sync.Mutex
	calls []T
}

func (r *recorder[T]) record(v T) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.calls...)
}

func newFake() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestDebouncer_BurstCollapsesToLastValue(t *testing.T) {
	c := newFake()
	rec := &recorder[int]{}
	d := New(c, DefaultWindow, rec.record)

	d.Trigger(1)
	c.Advance(50 * time.Millisecond)
	d.Trigger(2)
	c.Advance(50 * time.Millisecond)
	d.Trigger(3)

	c.Advance(149 * time.Millisecond)
	assert.Empty(t, rec.values(), "window restarts on every trigger")

	c.Advance(time.Millisecond)
	assert.Equal(t, []int{3}, rec.values())
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparateBurstsFireSeparately(t *testing.T) {
	c := newFake()
	rec := &recorder[string]{}
	d := New(c, DefaultWindow, rec.record)

	d.Trigger("a")
	c.Advance(DefaultWindow)
	d.Trigger("a")
	c.Advance(DefaultWindow)

	assert.Equal(t, []string{"a", "a"}, rec.values())
}

func TestDebouncer_Flush(t *testing.T) {
	c := newFake()
	rec := &recorder[int]{}
	d := New(c, DefaultWindow, rec.record)

	assert.False(t, d.Flush(), "nothing pending")

	d.Trigger(7)
	require.True(t, d.Flush())
	assert.Equal(t, []int{7}, rec.values())

	c.Advance(time.Second)
	assert.Equal(t, []int{7}, rec.values(), "flushed value must not fire again")
}

func TestDebouncer_Cancel(t *testing.T) {
	c := newFake()
	rec := &recorder[int]{}
	d := New(c, DefaultWindow, rec.record)

	d.Trigger(1)
	require.True(t, d.Cancel())
	c.Advance(time.Second)
	assert.Empty(t, rec.values())

	d.Trigger(2)
	c.Advance(time.Second)
	assert.Equal(t, []int{2}, rec.values(), "cancel does not disable the debouncer")
}

func TestDebouncer_StopIgnoresLaterTriggers(t *testing.T) {
	c := newFake()
	rec := &recorder[int]{}
	d := New(c, DefaultWindow, rec.record)

	d.Trigger(1)
	d.Stop()
	d.Trigger(2)
	c.Advance(time.Second)

	assert.Empty(t, rec.values())
	assert.False(t, d.Pending())
	assert.Equal(t, 0, c.Pending(), "stop releases the timer")
}

func TestDebouncer_ZeroWindowIsSynchronous(t *testing.T) {
	rec := &recorder[int]{}
	d := New(newFake(), 0, rec.record)

	d.Trigger(1)
	d.Trigger(2)
	assert.Equal(t, []int{1, 2}, rec.values())
}

func TestDebouncer_RealClock(t *testing.T) {
	done := make(chan int, 1)
	d := New(nil, 5*time.Millisecond, func(v int) { done <- v })

	d.Trigger(1)
	d.Trigger(2)

	select {
	case v := <-done:
		assert.Equal(t, 2, v)
	case <-time.After(time.Second):
		t.Fatal("debounced action never ran")
	}
}
