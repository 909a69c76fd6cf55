package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// Link publishes messages over a stream and posts the log commands it
// receives to the loop.
type Link struct {
	name string
	conn io.ReadWriteCloser
	rw   *ReadWriter

	lock sync.Mutex
	loop fx.LoopControl
}

// NewLink creates a Link on conn. name identifies it in logs.
func NewLink(name string, conn io.ReadWriteCloser) *Link {
	return &Link{name: name, conn: conn, rw: New(conn)}
}

// Name implements Named.
func (l *Link) Name() string {
	return "stream:" + l.name
}

// AddToLoop implements LoopAdder.
func (l *Link) AddToLoop(loop *fx.Loop) {
	l.loop = loop
	loop.AddRunnable(l)
}

// WriteMessage implements telemetry.Sink.
func (l *Link) WriteMessage(msg fx.Message) error {
	pkt, err := msgs.Marshal(msg)
	if err != nil {
		return err
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.rw.WritePacket(pkt)
}

// Run implements Runnable. It reads until ctx is done or the stream ends,
// and closes the stream.
func (l *Link) Run(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, l.conn, l.readLoop)
	if err == io.EOF || ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *Link) readLoop() error {
	for {
		msg, err := telemetry.ReadMessage(l.rw)
		var unknown *msgs.UnknownTypeError
		switch {
		case err == nil:
		case errors.As(err, &unknown):
			glog.Warningf("%s: %v", l.Name(), err)
			continue
		default:
			return err
		}
		if _, ok := msg.(*msgs.LogCommand); !ok {
			glog.Warningf("%s: unexpected %T", l.Name(), msg)
			continue
		}
		if l.loop != nil {
			l.loop.PostMessage(msg)
			l.loop.TriggerNext()
		}
	}
}
