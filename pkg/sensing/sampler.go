// Package sensing contains the controllers of the sampling loop: the
// Sampler reads the IMU, the Recorder persists samples to the flash log
// and the Publisher forwards them to telemetry sinks.
package sensing

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/bmi323"
	fx "github.com/robotalks/hamster/pkg/framework"
)

// SampleSource reads IMU samples. *bmi323.Dev implements it.
type SampleSource interface {
	ReadAll() (bmi323.Sample, error)
	AccelRange() bmi323.AccelRange
	GyroRange() bmi323.GyroRange
}

// SampleMsg carries one sample through the loop.
type SampleMsg struct {
	Sample     bmi323.Sample
	Time       time.Time
	Seq        uint64
	AccelRange bmi323.AccelRange
	GyroRange  bmi323.GyroRange
}

// NewMessage implements Message.
func (m *SampleMsg) NewMessage() fx.Message { return &SampleMsg{} }

// Sampler reads a sample every iteration.
type Sampler struct {
	Source SampleSource

	seq      uint64
	failures int
}

// NewSampler creates a Sampler.
func NewSampler(src SampleSource) *Sampler {
	return &Sampler{Source: src}
}

// Name implements Named.
func (s *Sampler) Name() string { return "sampler" }

// AddToLoop implements LoopAdder.
func (s *Sampler) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, s)
}

// Control implements Controller.
func (s *Sampler) Control(cc fx.ControlContext) error {
	sample, err := s.Source.ReadAll()
	if err != nil {
		s.failures++
		// first failure of a run and every 100th after.
		if s.failures%100 == 1 {
			glog.Warningf("sampler: read failed (%d): %v", s.failures, err)
		}
		return nil
	}
	if s.failures > 0 {
		glog.Infof("sampler: recovered after %d failures", s.failures)
		s.failures = 0
	}
	cc.Messages().Add(&SampleMsg{
		Sample:     sample,
		Time:       cc.Time(),
		Seq:        s.seq,
		AccelRange: s.Source.AccelRange(),
		GyroRange:  s.Source.GyroRange(),
	})
	s.seq++
	return nil
}
