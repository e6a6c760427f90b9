// Package eventfd is the in-tree stand-in for spec.md's external
// EventFdNotifications collaborator. Real cgroup v1 eventfd
// notifications are wired through cgroup.event_control and a kernel
// eventfd(2) descriptor per registration; this module instead polls
// the relevant control file on a fixed interval and invokes the
// callback when the condition is observed, which is the idiomatic Go
// substitute when a syscall-level eventfd integration is out of scope
// (see DESIGN.md's Open Questions). The public contract --
// RegisterNotification returns a NotificationId or NotFound, callbacks
// fire on a reader goroutine, callbacks may run concurrently -- matches
// spec.md section 5 and 4.3 regardless of the underlying mechanism.
package eventfd

import (
	"context"
	"sync"
	"time"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/status"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Condition is checked on every poll tick; it returns (fire, repeat,
// error). fire means the callback should run this tick; repeat false
// means the subscription is cancelled after firing once.
type Condition func(c cgroupfs.Controller) (fire bool, repeat bool, err error)

// Dispatcher is the process-wide notification registry and poll loop.
// It is safe for concurrent use by multiple handlers.
type Dispatcher struct {
	interval time.Duration

	mu            sync.Mutex
	subscriptions map[containerapi.NotificationId]*subscription
	nextID        *atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

type subscription struct {
	controller cgroupfs.Controller
	cond       Condition
	cb         containerapi.EventCallback
	spec       containerapi.EventSpec
}

// NewDispatcher starts the poll loop at the given interval. Callers
// should Close the dispatcher at process shutdown.
func NewDispatcher(interval time.Duration) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	group, _ := errgroup.WithContext(ctx)
	d := &Dispatcher{
		interval:      interval,
		subscriptions: make(map[containerapi.NotificationId]*subscription),
		nextID:        atomic.NewUint64(0),
		ctx:           ctx,
		cancel:        cancel,
		group:         group,
	}
	go d.run()
	return d
}

// Register subscribes cond against controller; cb is invoked (possibly
// concurrently with other callbacks) when cond fires. The caller's
// EventSpec is passed to cb on every firing.
func (d *Dispatcher) Register(controller cgroupfs.Controller, spec containerapi.EventSpec, cond Condition, cb containerapi.EventCallback) containerapi.NotificationId {
	id := containerapi.NotificationId(d.nextID.Inc())
	d.mu.Lock()
	d.subscriptions[id] = &subscription{controller: controller, cond: cond, cb: cb, spec: spec}
	d.mu.Unlock()
	return id
}

// Cancel removes a subscription. Cancelling an unknown id is a no-op.
func (d *Dispatcher) Cancel(id containerapi.NotificationId) {
	d.mu.Lock()
	delete(d.subscriptions, id)
	d.mu.Unlock()
}

// Close stops the poll loop and waits for in-flight callbacks.
func (d *Dispatcher) Close() error {
	d.cancel()
	return d.group.Wait()
}

func (d *Dispatcher) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Dispatcher) tick() {
	d.mu.Lock()
	due := make([]containerapi.NotificationId, 0, len(d.subscriptions))
	subs := make([]*subscription, 0, len(d.subscriptions))
	for id, sub := range d.subscriptions {
		due = append(due, id)
		subs = append(subs, sub)
	}
	d.mu.Unlock()

	for i, sub := range subs {
		id := due[i]
		sub := sub
		d.group.Go(func() error {
			fire, repeat, err := sub.cond(sub.controller)
			if err != nil {
				if status.Is(err, status.NotFound) {
					return nil
				}
				zap.L().Warn("notification condition check failed", zap.Error(err))
				return nil
			}
			if !fire {
				return nil
			}
			sub.cb(sub.spec)
			if !repeat {
				d.Cancel(id)
			}
			return nil
		})
	}
}
