package framework

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
)

// ErrStopLoop is returned by a controller to stop the loop cleanly.
var ErrStopLoop = errors.New("stop loop")

// DefaultInterval is the iteration period when Interval isn't set.
const DefaultInterval = 100 * time.Millisecond

// Loop runs controllers periodically in priority order.
type Loop struct {
	Interval time.Duration

	levels  [PriorityLevels][]Controller
	runners []Runnable

	lock    sync.Mutex
	posted  []Message
	count   uint64
	wakeUpC chan struct{}
}

// LoopAdder adds its controllers and runnables to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// NewLoop creates a Loop with DefaultInterval.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpC: make(chan struct{}, 1)}
}

// Add calls AddToLoop of each adder.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, a := range adders {
		a.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level. Controllers
// that are also Runnable are started with the loop.
func (l *Loop) AddController(level int, ctls ...Controller) *Loop {
	l.levels[level] = append(l.levels[level], ctls...)
	for _, ctl := range ctls {
		if r, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, r)
		}
	}
	return l
}

// AddRunnable registers runnables started with the loop.
func (l *Loop) AddRunnable(runners ...Runnable) *Loop {
	l.runners = append(l.runners, runners...)
	return l
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.posted = append(l.posted, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	if l.wakeUpC == nil {
		return
	}
	select {
	case l.wakeUpC <- struct{}{}:
	default:
	}
}

// Run starts the runnables and iterates until ctx is done or a controller
// returns ErrStopLoop.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpC == nil {
		l.wakeUpC = make(chan struct{}, 1)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := NewRunnerWith(ctx).Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return l.wait(runner, ctx.Err())
		case <-ticker.C:
		case <-l.wakeUpC:
		}
		if err := l.Step(ctx); err != nil {
			cancel()
			if err == ErrStopLoop {
				err = nil
			}
			return l.wait(runner, err)
		}
	}
}

func (l *Loop) wait(r *Runner, err error) error {
	var errs AggregatedError
	return errs.Add(err, r.Wait()).Aggregate()
}

// Step runs one iteration. Controller errors are logged, except
// ErrStopLoop which is returned.
func (l *Loop) Step(ctx context.Context) error {
	l.lock.Lock()
	it := &iteration{
		ctx:      ctx,
		loop:     l,
		time:     time.Now(),
		count:    l.count,
		messages: messageStore{msgs: l.posted},
	}
	l.posted = nil
	l.count++
	l.lock.Unlock()

	for level := range l.levels {
		it.level = level
		for _, ctl := range l.levels[level] {
			err := ctl.Control(it)
			if err == ErrStopLoop {
				return err
			}
			if err != nil {
				glog.Errorf("controller %s: %v", nameOf(ctl), err)
			}
		}
	}
	return nil
}

func nameOf(v interface{}) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return "<unnamed>"
}

type iteration struct {
	ctx      context.Context
	loop     *Loop
	time     time.Time
	count    uint64
	level    int
	messages messageStore
}

func (it *iteration) Context() context.Context { return it.ctx }
func (it *iteration) Time() time.Time          { return it.time }
func (it *iteration) Iteration() uint64        { return it.count }
func (it *iteration) PriorityLevel() int       { return it.level }
func (it *iteration) Messages() MessageStore   { return &it.messages }
func (it *iteration) Loop() LoopControl        { return it.loop }

type messageStore struct {
	msgs []Message
}

func (s *messageStore) Each(fn func(Message) bool) {
	// fn may Add, which only appends; new messages are visited too.
	kept := s.msgs[:0:0]
	for i := 0; i < len(s.msgs); i++ {
		if !fn(s.msgs[i]) {
			kept = append(kept, s.msgs[i])
		}
	}
	s.msgs = kept
}

func (s *messageStore) Add(msgs ...Message) {
	s.msgs = append(s.msgs, msgs...)
}

func (s *messageStore) Len() int {
	return len(s.msgs)
}
