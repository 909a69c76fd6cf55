package sensing

import (
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/flashlog"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// DefaultSyncEvery is the number of iterations between log syncs.
const DefaultSyncEvery = 10

// Recorder appends samples to the flash log and handles log commands.
// Each recording session starts with a marker. When the log is full or
// couldn't be restored, recording stops until the log is wiped.
type Recorder struct {
	Log       *flashlog.Log
	DeviceID  string
	SyncEvery int

	paused  bool
	full    bool
	marked  bool
	dirty   int
	records uint64
	lastErr error
}

// NewRecorder creates a Recorder which starts recording immediately.
func NewRecorder(log *flashlog.Log, deviceID string) *Recorder {
	return &Recorder{
		Log:       log,
		DeviceID:  deviceID,
		SyncEvery: DefaultSyncEvery,
	}
}

// Name implements Named.
func (r *Recorder) Name() string { return "recorder" }

// AddToLoop implements LoopAdder.
func (r *Recorder) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPostProc, r)
}

// Recording reports whether samples are being written.
func (r *Recorder) Recording() bool {
	return !r.paused && !r.full && r.Log.Ready()
}

// Control implements Controller.
func (r *Recorder) Control(cc fx.ControlContext) error {
	var samples []*SampleMsg
	var cmds []*msgs.LogCommand
	cc.Messages().Each(func(m fx.Message) bool {
		switch msg := m.(type) {
		case *SampleMsg:
			samples = append(samples, msg)
		case *msgs.LogCommand:
			cmds = append(cmds, msg)
			return true
		}
		return false
	})

	for _, cmd := range cmds {
		if err := r.command(cc, cmd); err != nil {
			r.lastErr = err
			glog.Errorf("recorder: %s: %v", cmd.Action, err)
		}
		cc.Messages().Add(r.Status())
	}

	if r.Recording() {
		for _, s := range samples {
			if err := r.record(cc, s); err != nil {
				return err
			}
			if !r.Recording() {
				cc.Messages().Add(r.Status())
				break
			}
		}
	}

	if r.dirty > 0 && (r.SyncEvery <= 0 || int(cc.Iteration())%r.SyncEvery == 0) {
		r.dirty = 0
		if err := r.Log.Sync(); err != nil {
			r.lastErr = err
			return fmt.Errorf("sync: %w", err)
		}
	}
	return nil
}

func (r *Recorder) record(cc fx.ControlContext, s *SampleMsg) error {
	if !r.marked {
		if err := r.append(flashlog.TypeMarker, flashlog.NewMarker(cc.Time()).Encode()); err != nil {
			return err
		}
		if !r.Recording() {
			return nil
		}
		r.marked = true
	}
	return r.append(flashlog.TypeIMU, flashlog.EncodeSample(s.Sample))
}

// append stops recording on ErrBounds and reports it once.
func (r *Recorder) append(typ flashlog.PacketType, payload []byte) error {
	err := r.Log.Append(typ, payload)
	switch flashlog.Code(err) {
	case flashlog.Success:
		r.records++
		r.dirty++
		return nil
	case flashlog.ErrBounds:
		glog.Warningf("recorder: log full after %d records, recording stopped", r.records)
		r.full, r.lastErr = true, err
		return nil
	}
	r.lastErr = err
	return err
}

func (r *Recorder) command(cc fx.ControlContext, cmd *msgs.LogCommand) error {
	glog.Infof("recorder: command %q", cmd.Action)
	switch cmd.Action {
	case msgs.ActionStatus:
		return nil
	case msgs.ActionStart:
		r.paused = false
	case msgs.ActionStop:
		r.paused, r.marked = true, false
	case msgs.ActionWipe:
		if err := r.Log.Wipe(); err != nil {
			return err
		}
		r.full, r.marked, r.records, r.dirty, r.lastErr = false, false, 0, 0, nil
	case msgs.ActionMark:
		if r.full {
			return flashlog.ErrBounds
		}
		if err := r.append(flashlog.TypeMarker, flashlog.NewMarker(cc.Time()).Encode()); err != nil {
			return err
		}
		if cmd.Text != "" {
			return r.append(flashlog.TypeText, []byte(cmd.Text))
		}
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

// Status reports the state of the log.
func (r *Recorder) Status() *msgs.LogStatus {
	st := &msgs.LogStatus{}
	st.DeviceId = r.DeviceID
	st.Used = r.Log.Size()
	st.Remaining = r.Log.Remaining()
	st.Recording = r.Recording()
	st.Records = r.records
	if r.lastErr != nil {
		st.Error = r.lastErr.Error()
	}
	return st
}
