package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/robotalks/hamster/pkg/telemetry/mqtt"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/hamster/"
	device  string
	command string
)

func init() {
	if val := os.Getenv("HAMSTER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "device", device, "Only show this device.")
	flag.StringVar(&command, "cmd", command, "Send a log command ACTION[:TEXT] to -device and exit.")
}

func newQueue() *mqtt.Queue {
	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	return mqtt.NewQueue(opts, prefix)
}

func sendCommand(q *mqtt.Queue) {
	if device == "" {
		log.Fatalln("-cmd requires -device")
	}
	action, text := command, ""
	if n := strings.IndexByte(command, ':'); n >= 0 {
		action, text = command[:n], command[n+1:]
	}
	payload, err := msgs.Marshal(msgs.NewLogCommand(action, text))
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); !token.WaitTimeout(mqtt.PublishTimeout) || token.Error() != nil {
		log.Fatalf("connect: %v", token.Error())
	}
	defer q.Close()
	token := q.PubWith(mqtt.Topic(device, mqtt.TopicCmd), payload, 1, false)
	if !token.WaitTimeout(mqtt.PublishTimeout) {
		log.Fatalln("publish timeout")
	}
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q := newQueue()
	if command != "" {
		sendCommand(q)
		return
	}

	filter := "#"
	if device != "" {
		filter = mqtt.Topic(device, "#")
	}
	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			msg.(msgs.SerializableMessage).Serializable().String())
	}))
	q.Connect()
	for range time.Tick(time.Minute) {
		if !q.Client.IsConnected() {
			log.Println("waiting for broker")
		}
	}
}
