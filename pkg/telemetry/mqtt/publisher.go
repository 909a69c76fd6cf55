package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// Topics under <prefix><device-id>/.
const (
	TopicIMU  = "imu"
	TopicLog  = "log"
	TopicCmd  = "cmd"
	TopicMeta = "meta"
)

// PublishTimeout bounds the wait for a publish to be sent.
const PublishTimeout = 2 * time.Second

// Meta is published retained on <device-id>/meta while connected.
type Meta struct {
	DeviceID string `json:"device-id"`
	Kind     string `json:"kind"`
	Host     string `json:"host,omitempty"`
}

// Publisher sends telemetry of one device and posts the commands it
// receives to the loop.
type Publisher struct {
	Queue    *Queue
	DeviceID string

	meta []byte
	loop fx.LoopControl
}

// Topic returns the topic of a device, without the queue prefix.
func Topic(deviceID, name string) string {
	return deviceID + "/" + name
}

// NewPublisher connects to brokerURL as the device in meta. The meta
// topic is cleared by the broker when the connection drops.
func NewPublisher(brokerURL string, meta Meta) (*Publisher, error) {
	data, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+Topic(meta.DeviceID, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("hamster:" + meta.DeviceID)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, prefix),
		DeviceID: meta.DeviceID,
		meta:     data,
	}
	p.Queue.OnConnect = func(*Queue) { p.announce(p.meta) }
	return p, nil
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "mqtt:" + p.DeviceID
}

// AddToLoop implements LoopAdder. Received commands are posted to loop.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	p.loop = loop
	loop.AddRunnable(p)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	sub := p.Queue.Sub(Topic(p.DeviceID, TopicCmd), p.handleCmd)
	p.Queue.Connect()
	<-ctx.Done()
	sub.Close()
	p.announce(nil)
	p.Queue.Close()
	return nil
}

func (p *Publisher) announce(meta []byte) {
	token := p.Queue.PubWith(Topic(p.DeviceID, TopicMeta), meta, 1, true)
	if !token.WaitTimeout(PublishTimeout) {
		glog.Warning("mqtt: meta publish timeout")
	}
}

// WriteMessage implements telemetry.Sink.
func (p *Publisher) WriteMessage(msg fx.Message) error {
	name, retain, err := route(msg)
	if err != nil {
		return err
	}
	pkt, err := msgs.Marshal(msg)
	if err != nil {
		return err
	}
	token := p.Queue.PubWith(Topic(p.DeviceID, name), pkt, 0, retain)
	if !token.WaitTimeout(PublishTimeout) {
		return fmt.Errorf("mqtt: publish %s: timeout", name)
	}
	return token.Error()
}

// route picks the topic of a message. Log status is retained so late
// subscribers see the last one.
func route(msg fx.Message) (name string, retain bool, err error) {
	switch msg.(type) {
	case *msgs.IMUSample:
		return TopicIMU, false, nil
	case *msgs.LogStatus:
		return TopicLog, true, nil
	}
	return "", false, fmt.Errorf("mqtt: no topic for %T", msg)
}

func (p *Publisher) handleCmd(topic string, payload []byte) {
	msg, err := msgs.Unmarshal(payload)
	if err != nil {
		glog.Warningf("mqtt: %s: %v", topic, err)
		return
	}
	if _, ok := msg.(*msgs.LogCommand); !ok {
		glog.Warningf("mqtt: %s: unexpected %T", topic, msg)
		return
	}
	if p.loop != nil {
		p.loop.PostMessage(msg)
		p.loop.TriggerNext()
	}
}
