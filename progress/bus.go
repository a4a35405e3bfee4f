package progress

import (
	"sync"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"code.linksmart.eu/dt/pupdate/progress/buffer"
	"github.com/cskr/pubsub"
)

const (
	HistoryCapacity = 255
	subscriberQueue = 100
)

// Bus turns callbacks into events, publishes them to subscribers and keeps a history.
//	Publishing uses TryPub and never blocks on slow subscribers.
type Bus struct {
	runID   string
	events  *pubsub.PubSub
	history *buffer.Buffer
	now     func() model.UnixTime

	mutex  sync.Mutex
	closed bool
}

func NewBus(runID string) *Bus {
	return &Bus{
		runID:   runID,
		events:  pubsub.New(subscriberQueue),
		history: buffer.NewBuffer(HistoryCapacity),
		now:     model.Now,
	}
}

func (b *Bus) RunID() string {
	return b.runID
}

func (b *Bus) TargetStarted(target string) {
	b.publish(startedEvent(target))
}

func (b *Bus) TargetFinished(target string, succeeded bool, elapsed time.Duration) {
	b.publish(finishedEvent(target, succeeded, elapsed))
}

func (b *Bus) OverallProgress(completed, total int) {
	b.publish(progressEvent(completed, total))
}

func (b *Bus) publish(e model.Event) {
	e.RunID = b.runID
	e.Time = b.now()
	b.history.Insert(e)

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.events.TryPub(e, string(e.Type))
}

// Subscribe returns a channel of events of the given types (all when none given).
//	The channel is already closed when the bus is.
func (b *Bus) Subscribe(types ...model.EventType) chan interface{} {
	if len(types) == 0 {
		types = []model.EventType{model.EventTargetStarted, model.EventTargetFinished, model.EventProgress}
	}
	topics := make([]string, len(types))
	for i := range types {
		topics[i] = string(types[i])
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		// pubsub no longer serves Sub after Shutdown
		ch := make(chan interface{})
		close(ch)
		return ch
	}
	return b.events.Sub(topics...)
}

// Unsubscribe removes the channel from all topics and closes it
func (b *Bus) Unsubscribe(ch chan interface{}) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.events.Unsub(ch)
}

// History returns the recent events since t, oldest first
func (b *Bus) History(since model.UnixTime) []model.Event {
	return b.history.Since(since)
}

// Close closes all subscriber channels
func (b *Bus) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.events.Shutdown()
}
