package session

import "context"

const subscriberBuffer = 16

// Subscribe streams a snapshot after every state change until ctx is done.
// A slow subscriber misses intermediate snapshots rather than blocking the
// controller; the latest one is always delivered.
func (c *Controller) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	go func() {
		<-ctx.Done()
		c.subMu.Lock()
		delete(c.subs, id)
		close(ch)
		c.subMu.Unlock()
	}()
	return ch
}

func (c *Controller) publish(s Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Full: drop the oldest queued snapshot to make room.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (c *Controller) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}
