package bmi323

import "fmt"

// Register is a BMI323 register address.
type Register uint8

// Register map, datasheet §6.
const (
	ChipID              Register = 0x00
	ErrReg              Register = 0x01
	Status              Register = 0x02
	AccDataX            Register = 0x03
	AccDataY            Register = 0x04
	AccDataZ            Register = 0x05
	GyrDataX            Register = 0x06
	GyrDataY            Register = 0x07
	GyrDataZ            Register = 0x08
	TempData            Register = 0x09
	SensorTime0         Register = 0x0A
	SensorTime1         Register = 0x0B
	SatFlags            Register = 0x0C
	IntStatusInt1       Register = 0x0D
	IntStatusInt2       Register = 0x0E
	IntStatusIBI        Register = 0x0F
	FeatureIO0          Register = 0x10
	FeatureIO1          Register = 0x11
	FeatureIO2          Register = 0x12
	FeatureIO3          Register = 0x13
	FeatureIOStatus     Register = 0x14
	FIFOFillLevel       Register = 0x15
	FIFOData            Register = 0x16
	AccConf             Register = 0x20
	GyrConf             Register = 0x21
	AltAccConf          Register = 0x28
	AltGyrConf          Register = 0x29
	AltConf             Register = 0x2A
	AltStatus           Register = 0x2B
	FIFOWatermark       Register = 0x35
	FIFOConf            Register = 0x36
	FIFOCtrl            Register = 0x37
	IOIntCtrl           Register = 0x38
	IntConf             Register = 0x39
	IntMap1             Register = 0x3A
	IntMap2             Register = 0x3B
	FeatureCtrl         Register = 0x40
	FeatureDataAddr     Register = 0x41
	FeatureDataTX       Register = 0x42
	FeatureDataStatus   Register = 0x43
	FeatureEngineStatus Register = 0x45
	FeatureEventExt     Register = 0x47
	IOPdnCtrl           Register = 0x4F
	IOSPIIf             Register = 0x50
	IOPadStrength       Register = 0x51
	IOI2CIf             Register = 0x52
	IOODRDeviation      Register = 0x53
	AccDpOffX           Register = 0x60
	AccDpDgainX         Register = 0x61
	AccDpOffY           Register = 0x62
	AccDpDgainY         Register = 0x63
	AccDpOffZ           Register = 0x64
	AccDpDgainZ         Register = 0x65
	GyrDpOffX           Register = 0x66
	GyrDpDgainX         Register = 0x67
	GyrDpOffY           Register = 0x68
	GyrDpDgainY         Register = 0x69
	GyrDpOffZ           Register = 0x6A
	GyrDpDgainZ         Register = 0x6B
	I3CTcSyncTph        Register = 0x70
	I3CTcSyncTu         Register = 0x71
	I3CTcSyncODR        Register = 0x72
	Cmd                 Register = 0x7E
	CfgRes              Register = 0x7F
)

var registerNames = map[Register]string{
	ChipID:              "CHIP_ID",
	ErrReg:              "ERR_REG",
	Status:              "STATUS",
	AccDataX:            "ACC_DATA_X",
	AccDataY:            "ACC_DATA_Y",
	AccDataZ:            "ACC_DATA_Z",
	GyrDataX:            "GYR_DATA_X",
	GyrDataY:            "GYR_DATA_Y",
	GyrDataZ:            "GYR_DATA_Z",
	TempData:            "TEMP_DATA",
	SensorTime0:         "SENSOR_TIME_0",
	SensorTime1:         "SENSOR_TIME_1",
	SatFlags:            "SAT_FLAGS",
	IntStatusInt1:       "INT_STATUS_INT1",
	IntStatusInt2:       "INT_STATUS_INT2",
	IntStatusIBI:        "INT_STATUS_IBI",
	FeatureIO0:          "FEATURE_IO0",
	FeatureIO1:          "FEATURE_IO1",
	FeatureIO2:          "FEATURE_IO2",
	FeatureIO3:          "FEATURE_IO3",
	FeatureIOStatus:     "FEATURE_IO_STATUS",
	FIFOFillLevel:       "FIFO_FILL_LEVEL",
	FIFOData:            "FIFO_DATA",
	AccConf:             "ACC_CONF",
	GyrConf:             "GYR_CONF",
	AltAccConf:          "ALT_ACC_CONF",
	AltGyrConf:          "ALT_GYR_CONF",
	AltConf:             "ALT_CONF",
	AltStatus:           "ALT_STATUS",
	FIFOWatermark:       "FIFO_WATERMARK",
	FIFOConf:            "FIFO_CONF",
	FIFOCtrl:            "FIFO_CTRL",
	IOIntCtrl:           "IO_INT_CTRL",
	IntConf:             "INT_CONF",
	IntMap1:             "INT_MAP_1",
	IntMap2:             "INT_MAP_2",
	FeatureCtrl:         "FEATURE_CTRL",
	FeatureDataAddr:     "FEATURE_DATA_ADDR",
	FeatureDataTX:       "FEATURE_DATA_TX",
	FeatureDataStatus:   "FEATURE_DATA_STATUS",
	FeatureEngineStatus: "FEATURE_ENGINE_STATUS",
	FeatureEventExt:     "FEATURE_EVENT_EXT",
	IOPdnCtrl:           "IO_PDN_CTRL",
	IOSPIIf:             "IO_SPI_IF",
	IOPadStrength:       "IO_PAD_STRENGTH",
	IOI2CIf:             "IO_I2C_IF",
	IOODRDeviation:      "IO_ODR_DEVIATION",
	AccDpOffX:           "ACC_DP_OFF_X",
	AccDpDgainX:         "ACC_DP_DGAIN_X",
	AccDpOffY:           "ACC_DP_OFF_Y",
	AccDpDgainY:         "ACC_DP_DGAIN_Y",
	AccDpOffZ:           "ACC_DP_OFF_Z",
	AccDpDgainZ:         "ACC_DP_DGAIN_Z",
	GyrDpOffX:           "GYR_DP_OFF_X",
	GyrDpDgainX:         "GYR_DP_DGAIN_X",
	GyrDpOffY:           "GYR_DP_OFF_Y",
	GyrDpDgainY:         "GYR_DP_DGAIN_Y",
	GyrDpOffZ:           "GYR_DP_OFF_Z",
	GyrDpDgainZ:         "GYR_DP_DGAIN_Z",
	I3CTcSyncTph:        "I3C_TC_SYNC_TPH",
	I3CTcSyncTu:         "I3C_TC_SYNC_TU",
	I3CTcSyncODR:        "I3C_TC_SYNC_ODR",
	Cmd:                 "CMD",
	CfgRes:              "CFG_RES",
}

// String implements fmt.Stringer.
func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REG_0x%02X", uint8(r))
}

// RegisterByName looks up a register by its datasheet name.
func RegisterByName(name string) (Register, bool) {
	for reg, n := range registerNames {
		if n == name {
			return reg, true
		}
	}
	return 0, false
}

// Register values.
const (
	// chipIDValue is the low byte of CHIP_ID.
	chipIDValue uint16 = 0x0043

	// ERR_REG bits.
	errFatal        uint16 = 1 << 0
	errFeatEngOvrld uint16 = 1 << 2
	errFeatEngWd    uint16 = 1 << 4
	errAccConf      uint16 = 1 << 5
	errGyrConf      uint16 = 1 << 6

	// STATUS bits.
	statusPOR     uint16 = 1 << 0
	statusDrdyTmp uint16 = 1 << 5
	statusDrdyGyr uint16 = 1 << 6
	statusDrdyAcc uint16 = 1 << 7

	cmdSoftReset uint16 = 0xDEAF
)
