package board

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/hamster/pkg/bmi323"
	"github.com/robotalks/hamster/pkg/blockdev"
)

// IMU buses.
const (
	BusSPI = "spi"
	BusI2C = "i2c"
)

// Config describes the hardware and services of a sensor node.
type Config struct {
	DeviceID string

	// IMUBus is BusSPI or BusI2C.
	IMUBus     string
	IMUPort    string
	IMUCSPin   string
	IMUFreq    physic.Frequency
	IMUI2CAddr uint

	// FlashPorts are the SPI ports of the flash chips, chained in order.
	FlashPorts string
	FlashFreq  physic.Frequency
	// FlashImage replaces the flash chips with an image file.
	FlashImage     string
	FlashImageSize uint64

	LogStart   uint64
	LogEnd     uint64
	LogRestore bool

	// MQTTBrokerURL is like mqtt://host:port/topic-prefix/.
	MQTTBrokerURL string
	HTTPAddr      string
	Interval      time.Duration
	Decimation    int

	// Console is the serial port for log dumps.
	Console     string
	ConsoleBaud int
	// StreamPort carries telemetry packets over a serial line.
	StreamPort string
}

var defaultConfig = Config{
	IMUBus:         BusSPI,
	IMUPort:        "SPI0.0",
	IMUFreq:        bmi323.SPIMaxFreq,
	IMUI2CAddr:     uint(bmi323.DefaultI2CAddr),
	FlashPorts:     "SPI1.0,SPI1.1",
	FlashFreq:      blockdev.SPIFMaxFreq,
	FlashImageSize: 16 << 20,
	LogRestore:     true,
	MQTTBrokerURL:  "mqtt://localhost:1883/hamster/",
	HTTPAddr:       ":8080",
	Interval:       10 * time.Millisecond,
	Decimation:     10,
	ConsoleBaud:    115200,
}

func init() {
	defaultConfig.DeviceID = MachineID()
	loadEnv(&defaultConfig, os.Getenv)
}

func loadEnv(c *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if val := getenv(name); val != "" {
			*dst = val
		}
	}
	str("HAMSTER_ID", &c.DeviceID)
	str("HAMSTER_IMU_BUS", &c.IMUBus)
	str("HAMSTER_IMU_PORT", &c.IMUPort)
	str("HAMSTER_FLASH", &c.FlashPorts)
	str("HAMSTER_FLASH_IMAGE", &c.FlashImage)
	str("HAMSTER_MQTT_URL", &c.MQTTBrokerURL)
	str("HAMSTER_HTTP", &c.HTTPAddr)
	str("HAMSTER_CONSOLE", &c.Console)
	str("HAMSTER_STREAM", &c.StreamPort)
	if val := getenv("HAMSTER_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Interval = d
		} else {
			glog.Warningf("HAMSTER_INTERVAL: %v", err)
		}
	}
	if val := getenv("HAMSTER_DECIMATION"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Decimation = n
		} else {
			glog.Warningf("HAMSTER_DECIMATION: %v", err)
		}
	}
}

// MachineID derives the device ID from the machine ID. The hostname is
// used when the machine ID is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("hamster")
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "hamster"
}

// SetupFlags registers the config flags on the command line.
func SetupFlags() {
	SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet registers the config flags on fs.
func SetupFlagSet(fs *flag.FlagSet) {
	c := &defaultConfig
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID")
	fs.StringVar(&c.IMUBus, "imu-bus", c.IMUBus, "IMU bus: spi or i2c")
	fs.StringVar(&c.IMUPort, "imu-port", c.IMUPort, "IMU SPI port or I2C bus name")
	fs.StringVar(&c.IMUCSPin, "imu-cs", c.IMUCSPin, "GPIO pulsed to put the IMU in SPI mode")
	fs.Var(&c.IMUFreq, "imu-freq", "IMU SPI clock")
	fs.UintVar(&c.IMUI2CAddr, "imu-addr", c.IMUI2CAddr, "IMU I2C address")
	fs.StringVar(&c.FlashPorts, "flash", c.FlashPorts, "Comma separated SPI ports of flash chips")
	fs.Var(&c.FlashFreq, "flash-freq", "Flash SPI clock")
	fs.StringVar(&c.FlashImage, "flash-image", c.FlashImage, "Use an image file instead of flash chips")
	fs.Uint64Var(&c.FlashImageSize, "flash-image-size", c.FlashImageSize, "Size of a new flash image")
	fs.Uint64Var(&c.LogStart, "log-start", c.LogStart, "Log region start")
	fs.Uint64Var(&c.LogEnd, "log-end", c.LogEnd, "Log region end, 0 for the end of flash")
	fs.BoolVar(&c.LogRestore, "log-restore", c.LogRestore, "Restore an existing log")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "Websocket listen address, empty to disable")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Sampling interval")
	fs.IntVar(&c.Decimation, "decimation", c.Decimation, "Publish every Nth sample")
	fs.StringVar(&c.Console, "console", c.Console, "Serial port for log dump")
	fs.IntVar(&c.ConsoleBaud, "baud", c.ConsoleBaud, "Console baud rate")
	fs.StringVar(&c.StreamPort, "stream", c.StreamPort, "Serial port for the telemetry stream, empty to disable")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

func (c *Config) flashPorts() []string {
	var ports []string
	for _, p := range strings.Split(c.FlashPorts, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ports = append(ports, p)
		}
	}
	return ports
}
