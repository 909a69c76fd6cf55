// Package pb defines the wire messages of hamster telemetry.
// The schema is kept in hamster.proto.
package pb

import (
	"github.com/golang/protobuf/proto"
)

// Vector3 is a 3-axis reading in physical units.
type Vector3 struct {
	X float32 `protobuf:"fixed32,1,opt,name=x,proto3" json:"x,omitempty"`
	Y float32 `protobuf:"fixed32,2,opt,name=y,proto3" json:"y,omitempty"`
	Z float32 `protobuf:"fixed32,3,opt,name=z,proto3" json:"z,omitempty"`
}

func (m *Vector3) Reset()         { *m = Vector3{} }
func (m *Vector3) String() string { return proto.CompactTextString(m) }
func (*Vector3) ProtoMessage()    {}

// IMUSample is one sample of the IMU. Accel is in g, Gyro in degrees per
// second.
type IMUSample struct {
	DeviceId     string   `protobuf:"bytes,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	TimestampNs  int64    `protobuf:"varint,2,opt,name=timestamp_ns,json=timestampNs,proto3" json:"timestamp_ns,omitempty"`
	Accel        *Vector3 `protobuf:"bytes,3,opt,name=accel,proto3" json:"accel,omitempty"`
	Gyro         *Vector3 `protobuf:"bytes,4,opt,name=gyro,proto3" json:"gyro,omitempty"`
	TemperatureC float32  `protobuf:"fixed32,5,opt,name=temperature_c,json=temperatureC,proto3" json:"temperature_c,omitempty"`
	Sequence     uint64   `protobuf:"varint,6,opt,name=sequence,proto3" json:"sequence,omitempty"`
	SensorTime   uint32   `protobuf:"varint,7,opt,name=sensor_time,json=sensorTime,proto3" json:"sensor_time,omitempty"`
}

func (m *IMUSample) Reset()         { *m = IMUSample{} }
func (m *IMUSample) String() string { return proto.CompactTextString(m) }
func (*IMUSample) ProtoMessage()    {}

func (m *IMUSample) GetAccel() *Vector3 {
	if m != nil {
		return m.Accel
	}
	return nil
}

func (m *IMUSample) GetGyro() *Vector3 {
	if m != nil {
		return m.Gyro
	}
	return nil
}

// LogStatus reports the state of the flash log.
type LogStatus struct {
	DeviceId  string `protobuf:"bytes,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	Used      uint64 `protobuf:"varint,2,opt,name=used,proto3" json:"used,omitempty"`
	Remaining uint64 `protobuf:"varint,3,opt,name=remaining,proto3" json:"remaining,omitempty"`
	Recording bool   `protobuf:"varint,4,opt,name=recording,proto3" json:"recording,omitempty"`
	Error     string `protobuf:"bytes,5,opt,name=error,proto3" json:"error,omitempty"`
	Records   uint64 `protobuf:"varint,6,opt,name=records,proto3" json:"records,omitempty"`
}

func (m *LogStatus) Reset()         { *m = LogStatus{} }
func (m *LogStatus) String() string { return proto.CompactTextString(m) }
func (*LogStatus) ProtoMessage()    {}

// LogCommand asks the device to act on its log.
type LogCommand struct {
	Action string `protobuf:"bytes,1,opt,name=action,proto3" json:"action,omitempty"`
	Text   string `protobuf:"bytes,2,opt,name=text,proto3" json:"text,omitempty"`
}

func (m *LogCommand) Reset()         { *m = LogCommand{} }
func (m *LogCommand) String() string { return proto.CompactTextString(m) }
func (*LogCommand) ProtoMessage()    {}

// Typed is the envelope of every message on the wire.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}
