package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name, used in logs.
type Named interface {
	Name() string
}

// Runnable runs in the background until ctx is done.
type Runnable interface {
	Run(context.Context) error
}

// Message is passed between controllers of the loop.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller runs once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext is the view of the current iteration.
type ControlContext interface {
	// Context is canceled when the loop stops.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Iteration counts iterations from 0.
	Iteration() uint64
	// PriorityLevel is the level of the running controller.
	PriorityLevel() int
	// Messages holds the messages of this iteration.
	Messages() MessageStore
	// Loop gives access to the loop.
	Loop() LoopControl
}

// LoopControl is the part of the loop safe to use from other goroutines.
type LoopControl interface {
	// PostMessage queues msg for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting for the tick.
	TriggerNext()
}

// MessageStore holds the messages of an iteration. Messages not taken by
// the end of the iteration are dropped.
type MessageStore interface {
	// Each calls fn with every message; fn returns true to take it.
	Each(fn func(Message) (taken bool))
	// Add appends messages visible to controllers running later.
	Add(msgs ...Message)
	// Len is the number of messages.
	Len() int
}

// PriorityLevels is the number of priority levels; 0 runs first.
const PriorityLevels = 16

// Priority levels.
const (
	PrLvTop    = 0
	PrLvHigh   = 4
	PrLvNormal = 8
	PrLvLow    = 12
	PrLvIdle   = PriorityLevels - 1

	// PrLvSense is where sensors read hardware.
	PrLvSense = PrLvHigh
	// PrLvControl is where commands are handled.
	PrLvControl = PrLvNormal
	// PrLvPostProc is where results are stored and published.
	PrLvPostProc = PrLvIdle - 1
)
