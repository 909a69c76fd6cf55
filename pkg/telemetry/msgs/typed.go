package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry/pb"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// TypeID groups
const (
	GroupIMU uint32 = 0x00010000
	GroupLog uint32 = 0x00020000
)

// TypeIDs
const (
	IMUSampleTypeID  uint32 = TypeIDKindEvent | GroupIMU | 0x0000
	LogStatusTypeID  uint32 = TypeIDKindEvent | GroupLog | 0x0000
	LogCommandTypeID uint32 = TypeIDKindCommand | GroupLog | 0x0001
)

// ErrNotSerializable indicates the message has no wire form.
var ErrNotSerializable = errors.New("not serializable message")

// UnknownTypeError reports an unregistered type ID.
type UnknownTypeError struct {
	TypeID uint32
}

// Error implements error.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %08x", e.TypeID)
}

// SerializableMessage can be sent over the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// MessageTypes maps type IDs to prototypes used by Decode.
var MessageTypes = map[uint32]SerializableMessage{
	IMUSampleTypeID:  (*IMUSample)(nil),
	LogStatusTypeID:  (*LogStatus)(nil),
	LogCommandTypeID: (*LogCommand)(nil),
}

// Typed is a serialized message with its type ID.
type Typed struct {
	pb.Typed
}

// TypedFrom serializes msg.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{Typed: pb.Typed{TypeId: s.TypeID(), Message: data}}, nil
}

// Decode unmarshals the wrapped message.
func (t *Typed) Decode() (fx.Message, error) {
	prototype, ok := MessageTypes[t.TypeId]
	if !ok {
		return nil, &UnknownTypeError{TypeID: t.TypeId}
	}
	msg := prototype.NewMessage()
	if err := proto.Unmarshal(t.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, fmt.Errorf("decode %08x: %w", t.TypeId, err)
	}
	return msg, nil
}

// Encode marshals the envelope.
func (t *Typed) Encode() ([]byte, error) {
	return proto.Marshal(&t.Typed)
}

// Kind is TypeIDKindCommand or TypeIDKindEvent.
func (t *Typed) Kind() uint32 {
	return t.TypeId & TypeIDMaskKind
}

// IsCommand reports a command-kind message.
func (t *Typed) IsCommand() bool {
	return t.Kind() == TypeIDKindCommand
}

// IsEvent reports an event-kind message.
func (t *Typed) IsEvent() bool {
	return t.Kind() == TypeIDKindEvent
}

// DecodeTyped unmarshals an envelope.
func DecodeTyped(data []byte) (*Typed, error) {
	var t Typed
	if err := proto.Unmarshal(data, &t.Typed); err != nil {
		return nil, err
	}
	return &t, nil
}

// Marshal wraps msg in an envelope and encodes it.
func Marshal(msg fx.Message) ([]byte, error) {
	t, err := TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

// Unmarshal decodes an envelope and the message in it.
func Unmarshal(data []byte) (fx.Message, error) {
	t, err := DecodeTyped(data)
	if err != nil {
		return nil, err
	}
	return t.Decode()
}
