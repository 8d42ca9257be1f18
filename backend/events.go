package backend

import "fmt"

// ExitStatus is the final state a transaction reports.
type ExitStatus int

const (
	ExitSuccess ExitStatus = iota
	ExitCancelled
	ExitFailed
	ExitPreviousFailed
	ExitUnfinished
)

func (s ExitStatus) String() string {
	switch s {
	case ExitSuccess:
		return "success"
	case ExitCancelled:
		return "cancelled"
	case ExitFailed:
		return "failed"
	case ExitPreviousFailed:
		return "previous-failed"
	case ExitUnfinished:
		return "unfinished"
	default:
		return fmt.Sprintf("exit-status(%d)", int(s))
	}
}

// EventKind distinguishes the notifications a transaction emits.
type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
	EventError
)

// Event is a transaction notification.
type Event struct {
	Kind EventKind
	// Progress is the percentage for EventProgress.
	Progress int
	// Status is set for EventFinished.
	Status ExitStatus
	// Err is set for EventError.
	Err error
}

func Progress(percent int) Event {
	return Event{Kind: EventProgress, Progress: percent}
}

func Finished(status ExitStatus) Event {
	return Event{Kind: EventFinished, Status: status}
}

func Failure(err error) Event {
	return Event{Kind: EventError, Err: err}
}
