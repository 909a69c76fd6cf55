package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hamster/pkg/bmi323"
	fx "github.com/robotalks/hamster/pkg/framework"
)

type plainMsg struct{}

func (plainMsg) NewMessage() fx.Message { return plainMsg{} }

func TestTypedRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 1234)
	s := bmi323.Sample{
		Accel:       bmi323.Accel{X: 16384, Y: 0, Z: -16384},
		Gyro:        bmi323.Gyro{X: -0x8000, Y: 1, Z: 2},
		Temperature: 512,
		Timestamp:   99,
	}
	sample := NewIMUSample("dev1", at, 7, s, bmi323.AccelRange2G, bmi323.GyroRange125DPS)
	require.Nil(t, sample.Gyro)
	require.InDelta(t, 1.0, sample.Accel.X, 1e-3)
	require.InDelta(t, -1.0, sample.Accel.Z, 1e-3)
	require.InDelta(t, 24.0, sample.TemperatureC, 1e-6)

	data, err := Marshal(sample)
	require.NoError(t, err)
	typed, err := DecodeTyped(data)
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	require.Equal(t, IMUSampleTypeID, typed.TypeId)

	msg, err := typed.Decode()
	require.NoError(t, err)
	got, ok := msg.(*IMUSample)
	require.True(t, ok)
	require.Equal(t, "dev1", got.DeviceId)
	require.Equal(t, uint64(7), got.Sequence)
	require.Equal(t, uint32(99), got.SensorTime)
	require.True(t, at.Equal(got.Time()))
	require.Nil(t, got.GetGyro())

	cmd, err := Marshal(NewLogCommand(ActionMark, "lap"))
	require.NoError(t, err)
	msg, err = Unmarshal(cmd)
	require.NoError(t, err)
	require.Equal(t, ActionMark, msg.(*LogCommand).Action)
	require.Equal(t, "lap", msg.(*LogCommand).Text)
}

func TestTypedErrors(t *testing.T) {
	_, err := TypedFrom(plainMsg{})
	require.Equal(t, ErrNotSerializable, err)

	typed := &Typed{}
	typed.TypeId = 0x7fff1234
	require.True(t, typed.IsCommand())
	_, err = typed.Decode()
	require.Equal(t, &UnknownTypeError{TypeID: 0x7fff1234}, err)
	require.Equal(t, "unknown type: 7fff1234", err.Error())

	typed.TypeId = LogStatusTypeID
	typed.Message = []byte{0xff}
	_, err = typed.Decode()
	require.Error(t, err)
}
