package session

import (
	"sync"
	"time"
)

// clock calls onTick every interval until stopped. Stop may be called from
// inside onTick; Wait may not.
type clock struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startClock(interval time.Duration, onTick func()) *clock {
	c := &clock{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C:
				onTick()
			}
		}
	}()
	return c
}

func (c *clock) Stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

// Wait blocks until a tick in progress has returned and the ticker exited.
func (c *clock) Wait() {
	if c == nil {
		return
	}
	<-c.done
}
