package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/hamster/pkg/bmi323"
	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry/pb"
)

// Log actions carried by LogCommand.
const (
	ActionStatus = "status"
	ActionWipe   = "wipe"
	ActionMark   = "mark"
	ActionStart  = "start"
	ActionStop   = "stop"
)

// IMUSample event.
type IMUSample struct {
	pb.IMUSample
}

// NewIMUSample converts a raw sample with the ranges it was taken in.
// Axes without data are left nil.
func NewIMUSample(deviceID string, at time.Time, seq uint64, s bmi323.Sample, ar bmi323.AccelRange, gr bmi323.GyroRange) *IMUSample {
	m := &IMUSample{IMUSample: pb.IMUSample{
		DeviceId:    deviceID,
		TimestampNs: at.UnixNano(),
		Sequence:    seq,
		SensorTime:  s.Timestamp,
	}}
	if s.Accel.Valid() {
		x, y, z := s.Accel.G(ar)
		m.Accel = &pb.Vector3{X: float32(x), Y: float32(y), Z: float32(z)}
	}
	if s.Gyro.Valid() {
		x, y, z := s.Gyro.DPS(gr)
		m.Gyro = &pb.Vector3{X: float32(x), Y: float32(y), Z: float32(z)}
	}
	if c, ok := s.Celsius(); ok {
		m.TemperatureC = float32(c)
	}
	return m
}

// Time is the host time of the sample.
func (m *IMUSample) Time() time.Time {
	return time.Unix(0, m.TimestampNs)
}

// NewMessage implements Message.
func (m *IMUSample) NewMessage() fx.Message { return &IMUSample{} }

// TypeID implements SerializableMessage.
func (m *IMUSample) TypeID() uint32 { return IMUSampleTypeID }

// Serializable implements SerializableMessage.
func (m *IMUSample) Serializable() proto.Message { return &m.IMUSample }

// LogStatus event.
type LogStatus struct {
	pb.LogStatus
}

// NewMessage implements Message.
func (m *LogStatus) NewMessage() fx.Message { return &LogStatus{} }

// TypeID implements SerializableMessage.
func (m *LogStatus) TypeID() uint32 { return LogStatusTypeID }

// Serializable implements SerializableMessage.
func (m *LogStatus) Serializable() proto.Message { return &m.LogStatus }

// LogCommand command.
type LogCommand struct {
	pb.LogCommand
}

// NewLogCommand creates a LogCommand.
func NewLogCommand(action, text string) *LogCommand {
	return &LogCommand{LogCommand: pb.LogCommand{Action: action, Text: text}}
}

// NewMessage implements Message.
func (m *LogCommand) NewMessage() fx.Message { return &LogCommand{} }

// TypeID implements SerializableMessage.
func (m *LogCommand) TypeID() uint32 { return LogCommandTypeID }

// Serializable implements SerializableMessage.
func (m *LogCommand) Serializable() proto.Message { return &m.LogCommand }
