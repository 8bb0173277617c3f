package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Assertion waits for an expected number of events, tracked from any goroutine.
type Assertion struct {
	counter  *Counter
	expected int
}

// NewAssertion creates an assertion expecting the given number of events.
func NewAssertion(expected int) *Assertion {
	wg := new(sync.WaitGroup)
	wg.Add(expected)
	return &Assertion{
		counter:  NewCounter(wg),
		expected: expected,
	}
}

// Expect tracks one event.
func (a *Assertion) Expect(v interface{}) {
	a.counter.Track(v)
}

// Assert blocks until all expected events arrived and returns them.
func (a *Assertion) Assert(t *testing.T) []interface{} {
	a.counter.waitGroup.Wait()
	assert.Equal(t, a.expected, a.counter.Get())
	return a.counter.Values()
}
