package sensing

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// Publisher forwards every Decimation-th sample and all log status to
// the sinks.
type Publisher struct {
	DeviceID   string
	Decimation int
	Sinks      []telemetry.Sink

	count uint64
}

// NewPublisher creates a Publisher which publishes every sample.
func NewPublisher(deviceID string, sinks ...telemetry.Sink) *Publisher {
	return &Publisher{DeviceID: deviceID, Decimation: 1, Sinks: sinks}
}

// Name implements Named.
func (p *Publisher) Name() string { return "publisher" }

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, p)
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	var out []fx.Message
	cc.Messages().Each(func(m fx.Message) bool {
		switch msg := m.(type) {
		case *SampleMsg:
			if p.sampleDue() {
				out = append(out, msgs.NewIMUSample(p.DeviceID, msg.Time, msg.Seq, msg.Sample, msg.AccelRange, msg.GyroRange))
			}
			return true
		case *msgs.LogStatus:
			out = append(out, msg)
			return true
		}
		return false
	})
	for _, msg := range out {
		for _, sink := range p.Sinks {
			if err := sink.WriteMessage(msg); err != nil {
				glog.V(1).Infof("publisher: %T: %v", msg, err)
			}
		}
	}
	return nil
}

func (p *Publisher) sampleDue() bool {
	n := p.Decimation
	if n <= 1 {
		return true
	}
	p.count++
	return p.count%uint64(n) == 1
}
