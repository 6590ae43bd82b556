package chat

import (
	"sync"
)

// Emitter is the outbound side of the gateway: three addressing modes, no
// persistence, no retry. Within one mode events keep emission order
// because every subscriber drains a single ordered send queue.
type Emitter interface {
	ToRoom(roomID, event string, payload interface{})
	ToUser(userID, event string, payload interface{})
	ToAll(event string, payload interface{})
}

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Broadcaster routes events to room subscribers, a user's connections, or
// everyone. A single drain goroutine delivers jobs in submission order, so
// each subscriber sees events in the order they were emitted; per-client
// queueing stays non-blocking via Client.Enqueue, so one slow subscriber
// cannot stall the rest of a fanout.
type Broadcaster struct {
	registry *PresenceRegistry
	jobs     chan fanoutJob
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewBroadcaster(registry *PresenceRegistry, queue int) *Broadcaster {
	if queue <= 0 {
		queue = 1024
	}
	b := &Broadcaster{
		registry: registry,
		jobs:     make(chan fanoutJob, queue),
		stopCh:   make(chan struct{}),
	}
	go b.drain()
	return b
}

// drain is the only consumer of the job queue. Ordering depends on that:
// a second consumer could reorder two jobs bound for the same client.
func (b *Broadcaster) drain() {
	for {
		select {
		case job := <-b.jobs:
			for _, c := range job.conns {
				c.Enqueue(job.payload)
			}
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broadcaster) dispatch(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case b.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-b.stopCh:
	}
}

func (b *Broadcaster) ToRoom(roomID, event string, payload interface{}) {
	b.dispatch(b.registry.RoomClients(roomID), Event(event, payload))
}

func (b *Broadcaster) ToUser(userID, event string, payload interface{}) {
	b.dispatch(b.registry.UserClients(userID), Event(event, payload))
}

func (b *Broadcaster) ToAll(event string, payload interface{}) {
	b.dispatch(b.registry.AllClients(), Event(event, payload))
}

func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}
