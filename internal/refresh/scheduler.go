package refresh

import (
	"context"
	"time"
)

// SchedulerState describes the refresh timer.
type SchedulerState string

const (
	SchedulerStopped SchedulerState = "stopped"
	SchedulerRunning SchedulerState = "running"
	SchedulerPaused  SchedulerState = "paused"
)

// Scheduler reports the timer state.
func (c *Controller) Scheduler() SchedulerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler
}

// Visible reports whether the dashboard is being looked at. With attached
// viewers that means at least one of them is visible; otherwise the last
// SetVisible call decides.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

func (c *Controller) visibleLocked() bool {
	if len(c.viewers) == 0 {
		return c.visible
	}
	for _, v := range c.viewers {
		if v {
			return true
		}
	}
	return false
}

// SetVisible records visibility reported without a viewer id. Hiding pauses
// the timer unless an attached viewer is visible; becoming visible resumes
// it and fires an immediate refresh.
func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	now := c.visibleLocked()
	if now {
		c.restart = true
	}
	c.mu.Unlock()
	c.signal()

	if visible && now {
		c.Trigger(ReasonVisible)
	}
}

// AttachViewer registers a viewer and returns its id. The viewer counts
// toward Visible until DetachViewer.
func (c *Controller) AttachViewer(visible bool) int {
	var id int
	c.updateViewers(func() {
		id = c.nextViewer
		c.nextViewer++
		c.viewers[id] = visible
	})
	return id
}

// SetViewerVisible updates one attached viewer. It reports false for an
// unknown id.
func (c *Controller) SetViewerVisible(id int, visible bool) bool {
	known := false
	c.updateViewers(func() {
		if _, known = c.viewers[id]; known {
			c.viewers[id] = visible
		}
	})
	return known
}

// DetachViewer forgets a viewer.
func (c *Controller) DetachViewer(id int) {
	c.updateViewers(func() {
		delete(c.viewers, id)
	})
}

// Viewers reports how many viewers are attached.
func (c *Controller) Viewers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.viewers)
}

// updateViewers applies change and wakes the scheduler. A change that makes
// the dashboard visible again resumes the timer with an immediate refresh.
func (c *Controller) updateViewers(change func()) {
	c.mu.Lock()
	before := c.visibleLocked()
	change()
	after := c.visibleLocked()
	if after && !before {
		c.restart = true
	}
	c.mu.Unlock()
	if after == before {
		return
	}
	c.signal()
	if after {
		c.Trigger(ReasonVisible)
	}
}

// Focus handles the dashboard window regaining focus.
func (c *Controller) Focus() bool {
	return c.Trigger(ReasonFocus)
}

// Restart resets the timer period from now.
func (c *Controller) Restart() {
	c.mu.Lock()
	c.restart = true
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drives the refresh timer until ctx is done. It refreshes once at start
// when the viewer is visible, then on every tick while not paused.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	tick := ticker.C
	if c.Visible() {
		c.setScheduler(SchedulerRunning)
		c.Trigger(ReasonStartup)
	} else {
		ticker.Stop()
		tick = nil
		c.setScheduler(SchedulerPaused)
	}
	defer c.setScheduler(SchedulerStopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			c.Trigger(ReasonTimer)
		case <-c.wake:
			c.mu.Lock()
			visible, restart := c.visibleLocked(), c.restart
			c.restart = false
			c.mu.Unlock()

			switch {
			case !visible:
				if tick != nil {
					ticker.Stop()
					tick = nil
					c.setScheduler(SchedulerPaused)
					c.logger.Debug("refresh timer paused")
				}
			case tick == nil || restart:
				ticker.Reset(c.interval)
				tick = ticker.C
				c.setScheduler(SchedulerRunning)
			}
		}
	}
}

func (c *Controller) setScheduler(s SchedulerState) {
	c.mu.Lock()
	c.scheduler = s
	c.mu.Unlock()
}
