package imu

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hamster/pkg/bmi323"
	"github.com/robotalks/hamster/pkg/board"
	"github.com/robotalks/hamster/pkg/cli/sh"
)

// regBus is a register file answering reads and writes.
type regBus struct {
	regs   map[bmi323.Register]uint16
	writes []bmi323.Register
}

func (b *regBus) ReadRegs(reg bmi323.Register, data []byte) error {
	for i := 0; i+1 < len(data); i += 2 {
		v := b.regs[reg+bmi323.Register(i/2)]
		data[i], data[i+1] = byte(v), byte(v>>8)
	}
	return nil
}

func (b *regBus) WriteReg(reg bmi323.Register, value uint16) error {
	b.writes = append(b.writes, reg)
	if reg != bmi323.Cmd {
		b.regs[reg] = value
	}
	return nil
}

func newShell() (*sh.Shell, *regBus) {
	bus := &regBus{regs: map[bmi323.Register]uint16{
		bmi323.ChipID:      0x0043,
		bmi323.Status:      0x0001,
		bmi323.AccDataX:    16384,
		bmi323.AccDataY:    0,
		bmi323.AccDataZ:    0xC000,
		bmi323.GyrDataX:    262,
		bmi323.TempData:    512,
		bmi323.SensorTime0: 0x0010,
		bmi323.AccConf:     bmi323.DefaultAccelConfig.Word(),
		bmi323.GyrConf:     bmi323.DefaultGyroConfig.Word(),
	}}
	return &sh.Shell{Board: &board.Board{IMU: bmi323.New(bus)}}, bus
}

func TestRegCmd(t *testing.T) {
	s, bus := newShell()
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "imu.reg", "chip_id"))
	require.Equal(t, "CHIP_ID = 0x0043\n", out.String())

	out.Reset()
	require.NoError(t, s.Exec(&out, "imu.reg", "0x36", "0x0102"))
	require.Equal(t, "FIFO_CONF = 0x0102\n", out.String())
	require.Equal(t, []bmi323.Register{bmi323.FIFOConf}, bus.writes)

	require.ErrorIs(t, s.Exec(&out, "imu.reg"), sh.ErrUsage)
	require.ErrorIs(t, s.Exec(&out, "imu.reg", "CHIP_ID", "zz"), sh.ErrUsage)
	require.EqualError(t, s.Exec(&out, "imu.reg", "NOPE"), `unknown register "NOPE"`)
}

func TestAccelJSON(t *testing.T) {
	s, _ := newShell()
	s.OutputJSON = true
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "acc"))
	var v axes
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	require.Equal(t, [3]int16{16384, 0, -16384}, v.Raw)
	require.Equal(t, "g", v.Unit)
	require.InDelta(t, 1.0, v.Value[0], 1e-3)
	require.InDelta(t, -1.0, v.Value[2], 1e-3)
	require.Equal(t, uint32(0x10), v.Timestamp)
}

func TestReadCmd(t *testing.T) {
	s, _ := newShell()
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "imu.read", "2", "1ms"))
	require.Contains(t, out.String(), "0 accel")
	require.Contains(t, out.String(), "1 accel")
	require.Contains(t, out.String(), "temp 24.00°C")

	require.ErrorIs(t, s.Exec(&out, "imu.read", "0"), sh.ErrUsage)
	require.ErrorIs(t, s.Exec(&out, "imu.read", "1", "soon"), sh.ErrUsage)
}

func TestSetupCmd(t *testing.T) {
	s, bus := newShell()
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "imu.setup", "8G", "2000"))
	require.Equal(t, bmi323.AccelRange8G, s.Board.IMU.AccelRange())
	require.Equal(t, bmi323.GyroRange2000DPS, s.Board.IMU.GyroRange())
	acc, err := s.Board.IMU.AccelConfig()
	require.NoError(t, err)
	require.Equal(t, bmi323.AccelRange8G, acc.Range)
	require.Equal(t, []bmi323.Register{bmi323.AccConf, bmi323.GyrConf}, bus.writes)

	require.ErrorIs(t, s.Exec(&out, "imu.setup", "3g"), sh.ErrUsage)
}

func TestInitAndReset(t *testing.T) {
	s, bus := newShell()
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "imu.init"))
	require.Contains(t, out.String(), "Init")

	out.Reset()
	require.NoError(t, s.Exec(&out, "imu.reset"))
	require.Equal(t, "OK\n", out.String())
	require.Equal(t, []bmi323.Register{bmi323.Cmd}, bus.writes)
	require.Equal(t, bmi323.AccelRange2G, s.Board.IMU.AccelRange())
}

func TestStatusCmd(t *testing.T) {
	s, _ := newShell()
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "imu.status"))
	require.Contains(t, out.String(), "status 0x0001 por=true")
	require.Contains(t, out.String(), "fatal=false")
}
