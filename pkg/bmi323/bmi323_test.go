package bmi323

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/spi/spitest"
)

func spiRead(reg Register, data ...byte) conntest.IO {
	w := make([]byte, 2+len(data))
	w[0] = 0x80 | byte(reg)
	r := make([]byte, len(w))
	copy(r[2:], data)
	return conntest.IO{W: w, R: r}
}

func spiWrite(reg Register, v uint16) conntest.IO {
	return conntest.IO{W: []byte{byte(reg), byte(v), byte(v >> 8)}}
}

func i2cRead(reg Register, data ...byte) i2ctest.IO {
	r := make([]byte, 2+len(data))
	copy(r[2:], data)
	return i2ctest.IO{Addr: DefaultI2CAddr, W: []byte{byte(reg)}, R: r}
}

func i2cWrite(reg Register, v uint16) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultI2CAddr, W: []byte{byte(reg), byte(v), byte(v >> 8)}}
}

type spiEnv struct {
	t        *testing.T
	playback *spitest.Playback
	dev      *Dev
}

func newSPIEnv(t *testing.T, ops ...conntest.IO) *spiEnv {
	p := &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
	conn, err := ConnectSPI(p, 0)
	require.NoError(t, err)
	bus, err := NewSPI(conn, nil)
	require.NoError(t, err)
	return &spiEnv{t: t, playback: p, dev: New(bus)}
}

func (e *spiEnv) done() {
	require.NoError(e.t, e.playback.Close(), "not all bus transactions consumed")
}

func initOps(chipID, errs byte) []conntest.IO {
	return []conntest.IO{
		spiRead(ChipID, 0, 0),
		spiRead(ChipID, chipID, 0),
		spiRead(ErrReg, errs, 0),
		spiRead(Status, 0x01, 0),
		spiRead(AccConf, 0x28, 0x70),
		spiRead(GyrConf, 0x2B, 0x70),
	}
}

func TestInit(t *testing.T) {
	testCases := []struct {
		name   string
		ops    []conntest.IO
		status InitStatus
		err    error
	}{
		{"success", initOps(0x43, 0), InitSuccess, nil},
		{"not found", initOps(0x43, 0)[:2:2], DeviceNotFound, ErrNotFound},
		{"fatal", initOps(0x43, 0x01)[:4:4], InitFail, ErrFatal},
	}
	testCases[1].ops[1] = spiRead(ChipID, 0x00, 0)
	testCases[2].ops[2] = spiRead(ErrReg, 0x01, 0)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newSPIEnv(t, tc.ops...)
			status, err := env.dev.Init()
			require.Equal(t, tc.status, status)
			if tc.err != nil {
				require.Equal(t, tc.err, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, AccelRange8G, env.dev.AccelRange())
				require.Equal(t, GyroRange500DPS, env.dev.GyroRange())
			}
			env.done()
		})
	}
}

func TestReadAllSPI(t *testing.T) {
	env := newSPIEnv(t, spiRead(AccDataX,
		0x01, 0x00, 0xff, 0xff, 0x00, 0x40, // accel 1, -1, 16384
		0x02, 0x00, 0xfe, 0xff, 0x00, 0x80, // gyro 2, -2, no data
		0x00, 0x02, // temp 512
		0x34, 0x12, 0x78, 0x56, // time
	))
	s, err := env.dev.ReadAll()
	require.NoError(t, err)
	require.Equal(t, Accel{X: 1, Y: -1, Z: 16384, Timestamp: 0x56781234}, s.Accel)
	require.Equal(t, Gyro{X: 2, Y: -2, Z: -0x8000, Timestamp: 0x56781234}, s.Gyro)
	require.True(t, s.Accel.Valid())
	require.False(t, s.Gyro.Valid())
	c, ok := s.Celsius()
	require.True(t, ok)
	require.Equal(t, 24.0, c)
	require.Equal(t, uint32(0x56781234), s.Timestamp)
	env.done()
}

func TestReadAccelGyroSPI(t *testing.T) {
	env := newSPIEnv(t,
		spiRead(AccDataX, 0x10, 0, 0x20, 0, 0x30, 0),
		spiRead(SensorTime0, 1, 0, 0, 0),
		spiRead(GyrDataX, 0xf0, 0xff, 0, 0, 1, 0),
		spiRead(SensorTime0, 2, 0, 0, 0),
	)
	a, err := env.dev.ReadAccel()
	require.NoError(t, err)
	require.Equal(t, Accel{X: 0x10, Y: 0x20, Z: 0x30, Timestamp: 1}, a)
	g, err := env.dev.ReadGyro()
	require.NoError(t, err)
	require.Equal(t, Gyro{X: -16, Y: 0, Z: 1, Timestamp: 2}, g)
	env.done()
}

func TestReadAccelI2C(t *testing.T) {
	p := &i2ctest.Playback{DontPanic: true, Ops: []i2ctest.IO{
		i2cRead(AccDataX, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00),
		i2cRead(SensorTime0, 0x10, 0, 0, 0),
		i2cWrite(Cmd, 0xDEAF),
	}}
	dev := New(NewI2C(p, 0))
	a, err := dev.ReadAccel()
	require.NoError(t, err)
	require.Equal(t, Accel{X: 1, Y: 2, Z: 3, Timestamp: 0x10}, a)
	require.NoError(t, dev.SoftReset())
	require.NoError(t, p.Close())
}

func TestConfigureAccel(t *testing.T) {
	// reserved bits 15 and 11 must survive the update.
	env := newSPIEnv(t,
		spiRead(AccConf, 0x28, 0x88),
		spiWrite(AccConf, 0xF80B),
		spiRead(AccConf, 0x0B, 0xF8),
		spiRead(ErrReg, 0x00, 0x00),
	)
	require.NoError(t, env.dev.ConfigureAccel(DefaultAccelConfig))
	require.Equal(t, AccelRange2G, env.dev.AccelRange())
	env.done()
}

func TestConfigureAccelFlagged(t *testing.T) {
	// the readback matches but the device flags the combination.
	env := newSPIEnv(t,
		spiRead(AccConf, 0x00, 0x00),
		spiWrite(AccConf, 0x700B),
		spiRead(AccConf, 0x0B, 0x70),
		spiRead(ErrReg, 0x20, 0x00),
	)
	err := env.dev.ConfigureAccel(AccelConfig{Mode: ModeHighPerformance, Range: AccelRange2G, ODR: ODR800Hz})
	var confErr *ConfigError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, &ConfigError{Reg: AccConf, Want: 0x700B, Got: 0x700B, Flags: 0x20}, confErr)
	env.done()
}

func TestConfigureGyroRejected(t *testing.T) {
	env := newSPIEnv(t,
		spiRead(GyrConf, 0x00, 0x00),
		spiWrite(GyrConf, 0x702B),
		spiRead(GyrConf, 0x00, 0x00),
		spiRead(ErrReg, 0x40, 0x00),
	)
	err := env.dev.ConfigureGyro(GyroConfig{Mode: ModeHighPerformance, Range: GyroRange500DPS, ODR: ODR800Hz})
	require.Equal(t, &ConfigError{Reg: GyrConf, Want: 0x702B, Got: 0, Flags: 0x40}, err)
	require.True(t, ErrorFlags(0x40).GyroConf())
	env.done()
}

func TestNewSPIPulsesCS(t *testing.T) {
	cs := &gpiotest.Pin{N: "CS", L: gpio.High}
	p := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	conn, err := ConnectSPI(p, 0)
	require.NoError(t, err)
	_, err = NewSPI(conn, &SPIOpts{CS: cs, Settle: time.Nanosecond})
	require.NoError(t, err)
	require.Equal(t, gpio.High, cs.L)
}

func TestConfigWord(t *testing.T) {
	require.Equal(t, uint16(0x700B), DefaultAccelConfig.Word())
	require.Equal(t, uint16(0x700B), DefaultGyroConfig.Word())
	testCases := []AccelConfig{
		DefaultAccelConfig,
		{Mode: ModeLowPower, Averaging: Avg16, Bandwidth: BandwidthODRQuarter, Range: AccelRange16G, ODR: ODR50Hz},
		{Mode: ModeNormal, Averaging: Avg2, Range: AccelRange4G, ODR: ODR6400Hz},
	}
	for _, c := range testCases {
		require.Equal(t, c, AccelConfigFrom(c.Word()))
	}
	g := GyroConfig{Mode: ModeGyroDriveOnly, Averaging: Avg64, Range: GyroRange2000DPS, ODR: ODR25Hz}
	require.Equal(t, g, GyroConfigFrom(g.Word()|0x8800))
}

func TestConversions(t *testing.T) {
	x, y, z := Accel{X: 16380, Y: -8190, Z: 0}.G(AccelRange2G)
	require.InDelta(t, 1.0, x, 1e-3)
	require.InDelta(t, -0.5, y, 1e-3)
	require.Equal(t, 0.0, z)

	x, _, _ = Accel{X: 2050}.G(AccelRange16G)
	require.InDelta(t, 1.0, x, 1e-3)

	x, _, _ = Gyro{X: 16384}.DPS(GyroRange2000DPS)
	require.InDelta(t, 1000.0, x, 1e-3)

	require.Equal(t, 78125*time.Nanosecond, SensorTime(2))
	require.Equal(t, 800.0, ODR800Hz.Hz())
	require.Equal(t, 0.78125, ODR0_78Hz.Hz())
	require.Equal(t, 10*time.Millisecond, ODR100Hz.Period())
	require.Equal(t, 0.0, ODR(0xF).Hz())

	_, ok := Sample{Temperature: -0x8000}.Celsius()
	require.False(t, ok)
}

func TestRegisterNames(t *testing.T) {
	require.Equal(t, "ACC_CONF", AccConf.String())
	require.Equal(t, "REG_0x1F", Register(0x1F).String())
	reg, ok := RegisterByName("GYR_CONF")
	require.True(t, ok)
	require.Equal(t, GyrConf, reg)
}
