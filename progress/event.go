package progress

import (
	"time"

	"code.linksmart.eu/dt/pupdate/model"
)

func startedEvent(target string) model.Event {
	return model.Event{Type: model.EventTargetStarted, Target: target}
}

func finishedEvent(target string, succeeded bool, elapsed time.Duration) model.Event {
	return model.Event{
		Type:      model.EventTargetFinished,
		Target:    target,
		Succeeded: succeeded,
		ElapsedMs: int64(elapsed / time.Millisecond),
	}
}

func progressEvent(completed, total int) model.Event {
	return model.Event{Type: model.EventProgress, Completed: completed, Total: total}
}
