package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
)

// queueSize is the number of water commands a controller holds before dropping new ones
const queueSize = 10

// valve runs water commands one at a time in the order they are received
type valve struct {
	c *Controller

	mu      sync.Mutex
	queue   []action.WaterMessage
	current *watering
}

type watering struct {
	msg     action.WaterMessage
	started time.Time
	timer   *clock.Timer
}

func newValve(c *Controller) *valve {
	return &valve{c: c}
}

// enqueue adds a command and starts it if nothing is watering
func (v *valve) enqueue(msg action.WaterMessage) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.queue) >= queueSize {
		return fmt.Errorf("water queue is full, dropping command %q", msg.EventID)
	}
	v.queue = append(v.queue, msg)
	if v.current == nil {
		v.startNext()
	}
	return nil
}

// startNext must be called with mu held
func (v *valve) startNext() {
	if len(v.queue) == 0 {
		return
	}
	msg := v.queue[0]
	v.queue = v.queue[1:]

	w := &watering{msg: msg, started: v.c.clock.Now()}
	w.timer = v.c.clock.AfterFunc(time.Duration(msg.Duration)*time.Millisecond, func() {
		v.finish(w)
	})
	v.current = w

	v.c.publishWaterEvent(pkg.WaterStatusStarted, msg, 0)
}

// finish completes w if it is still the current watering
func (v *valve) finish(w *watering) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current != w {
		return
	}
	v.complete()
	v.startNext()
}

// complete must be called with mu held and a current watering
func (v *valve) complete() {
	w := v.current
	v.current = nil
	w.timer.Stop()

	millis := v.c.clock.Since(w.started).Milliseconds()
	if millis > w.msg.Duration {
		millis = w.msg.Duration
	}
	v.c.publishWaterEvent(pkg.WaterStatusCompleted, w.msg, millis)
}

// stop ends the current watering early and moves on to the next command
func (v *valve) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current == nil {
		return
	}
	v.complete()
	v.startNext()
}

// stopAll ends the current watering and drops every queued command
func (v *valve) stopAll() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.queue = nil
	if v.current != nil {
		v.complete()
	}
}

// pending is the number of commands waiting behind the current watering
func (v *valve) pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}
