package board

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/hamster/pkg/flashlog"
)

func TestLoadEnv(t *testing.T) {
	env := map[string]string{
		"HAMSTER_ID":         "node7",
		"HAMSTER_IMU_BUS":    "i2c",
		"HAMSTER_FLASH":      "SPI2.0",
		"HAMSTER_INTERVAL":   "5ms",
		"HAMSTER_DECIMATION": "bad",
	}
	c := Config{Decimation: 3}
	loadEnv(&c, func(name string) string { return env[name] })
	require.Equal(t, "node7", c.DeviceID)
	require.Equal(t, BusI2C, c.IMUBus)
	require.Equal(t, []string{"SPI2.0"}, c.flashPorts())
	require.Equal(t, 5*time.Millisecond, c.Interval)
	require.Equal(t, 3, c.Decimation)
}

func TestFlags(t *testing.T) {
	saved := defaultConfig
	defer func() { defaultConfig = saved }()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	SetupFlagSet(fs)
	require.NoError(t, fs.Parse([]string{
		"-imu-freq", "8MHz",
		"-flash", " SPI1.0 , ,SPI1.1",
		"-log-start", "4096",
		"-mqtt", "",
	}))
	c := NewConfig()
	require.Equal(t, 8*physic.MegaHertz, c.IMUFreq)
	require.Equal(t, []string{"SPI1.0", "SPI1.1"}, c.flashPorts())
	require.Equal(t, uint64(4096), c.LogStart)
	require.Empty(t, c.MQTTBrokerURL)
	require.NotEmpty(t, c.DeviceID)

	c.DeviceID = "changed"
	require.NotEqual(t, "changed", Default().DeviceID)
}

func TestOpenLogImage(t *testing.T) {
	c := NewConfig()
	c.FlashImage = filepath.Join(t.TempDir(), "flash.img")
	c.FlashImageSize = 64 * 1024
	c.LogStart = 8192

	b := c.New()
	l, err := b.OpenLog()
	require.NoError(t, err)
	require.Equal(t, uint64(8192), l.Start())
	require.Equal(t, uint64(64*1024), l.End())
	require.NoError(t, l.Append(flashlog.TypeText, []byte("boot")))
	require.NoError(t, b.Close())

	info, err := os.Stat(c.FlashImage)
	require.NoError(t, err)
	require.Equal(t, int64(64*1024), info.Size())

	// reopened, the log is restored.
	b = c.New()
	l, err = b.OpenLog()
	require.NoError(t, err)
	require.Equal(t, uint64(12), l.Size())
	var texts []string
	require.NoError(t, l.Each(func(p flashlog.Packet) error {
		texts = append(texts, string(p.Payload))
		return nil
	}))
	require.Equal(t, []string{"boot"}, texts)
	require.NoError(t, b.Close())

	// without restore an existing log is refused but can be wiped.
	c.LogRestore = false
	b = c.New()
	l, err = b.OpenLog()
	require.Equal(t, flashlog.ErrLogExists, err)
	require.NotNil(t, l)
	require.NoError(t, l.Wipe())
	require.Zero(t, l.Size())
	require.NoError(t, b.Close())
}

func TestOpenLogBadRegion(t *testing.T) {
	c := NewConfig()
	c.FlashImage = filepath.Join(t.TempDir(), "flash.img")
	c.FlashImageSize = 8192
	c.LogStart = 100
	b := c.New()
	_, err := b.OpenLog()
	require.Equal(t, flashlog.ErrBDParams, err)
	require.Nil(t, b.Log)
	require.NoError(t, b.Close())
}

func TestOpenFlashNoPorts(t *testing.T) {
	c := NewConfig()
	c.FlashImage = ""
	c.FlashPorts = " , "
	_, err := c.New().OpenFlash()
	require.EqualError(t, err, "no flash ports")
}
