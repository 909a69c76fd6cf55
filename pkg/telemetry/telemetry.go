// Package telemetry carries live samples and log status off the device.
//
// Messages from package msgs are wrapped in a Typed envelope and written
// as packets to one or more transports: MQTT topics, a length-prefixed
// byte stream, or websocket connections.
package telemetry

import (
	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Sink receives messages to publish.
type Sink interface {
	WriteMessage(fx.Message) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(fx.Message) error

// WriteMessage implements Sink.
func (f SinkFunc) WriteMessage(msg fx.Message) error { return f(msg) }

// PacketSink encodes messages onto a PacketWriter.
type PacketSink struct {
	PacketWriter
}

// NewPacketSink creates a PacketSink.
func NewPacketSink(w PacketWriter) *PacketSink {
	return &PacketSink{PacketWriter: w}
}

// WriteMessage implements Sink.
func (s *PacketSink) WriteMessage(msg fx.Message) error {
	pkt, err := msgs.Marshal(msg)
	if err != nil {
		return err
	}
	return s.WritePacket(pkt)
}

// ReadMessage reads and decodes one packet.
func ReadMessage(r PacketReader) (fx.Message, error) {
	pkt, err := r.ReadPacket()
	if err != nil {
		return nil, err
	}
	return msgs.Unmarshal(pkt)
}
