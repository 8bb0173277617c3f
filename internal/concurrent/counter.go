package concurrent

import (
	"sync"
)

// Counter is a synchronous counter for tracking events and synchronising progress.
type Counter struct {
	waitGroup *sync.WaitGroup
	count     int
	vv        []interface{}
	lock      *sync.Mutex
}

// NewCounter creates a new counter.
func NewCounter(waitGroup *sync.WaitGroup) *Counter {
	return &Counter{
		waitGroup: waitGroup,
		vv:        make([]interface{}, 0),
		lock:      new(sync.Mutex),
	}
}

// Track increments the counter by one and potentially adds the object to it's memory.
func (c *Counter) Track(v interface{}) {
	c.lock.Lock()
	c.count++
	if v != nil {
		c.vv = append(c.vv, v)
	}
	c.lock.Unlock()
	if c.waitGroup != nil {
		c.waitGroup.Done()
	}
}

// Get returns the current count.
func (c *Counter) Get() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.count
}

// Values returns the tracked values.
func (c *Counter) Values() []interface{} {
	c.lock.Lock()
	defer c.lock.Unlock()
	vv := make([]interface{}, len(c.vv))
	copy(vv, c.vv)
	return vv
}
