package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/board"
	"github.com/robotalks/hamster/pkg/console"
	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/sensing"
	"github.com/robotalks/hamster/pkg/telemetry"
	"github.com/robotalks/hamster/pkg/telemetry/mqtt"
	"github.com/robotalks/hamster/pkg/telemetry/stream"
	"github.com/robotalks/hamster/pkg/telemetry/websocket"
)

func init() {
	board.SetupFlags()
}

func httpServer(addr string, hub *websocket.Hub) fx.Runnable {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	return fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
		glog.Infof("websocket on %s/ws", addr)
		err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}))
}

func run(conf *board.Config) error {
	b := conf.New()
	defer b.Close()

	imu, err := b.OpenIMU()
	if err != nil {
		return err
	}
	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(sensing.NewSampler(imu))

	log, err := b.OpenLog()
	switch {
	case log == nil:
		glog.Warningf("recording disabled: %v", err)
	case err != nil:
		glog.Warningf("flash log needs wipe: %v", err)
		fallthrough
	default:
		loop.Add(sensing.NewRecorder(log, conf.DeviceID))
	}

	var sinks []telemetry.Sink
	if conf.MQTTBrokerURL != "" {
		host, _ := os.Hostname()
		pub, err := mqtt.NewPublisher(conf.MQTTBrokerURL, mqtt.Meta{DeviceID: conf.DeviceID, Kind: "bmi323", Host: host})
		if err != nil {
			return err
		}
		loop.Add(pub)
		sinks = append(sinks, pub)
	}
	if conf.HTTPAddr != "" {
		hub := websocket.NewHub()
		defer hub.Close()
		loop.Add(hub)
		loop.AddRunnable(httpServer(conf.HTTPAddr, hub))
		sinks = append(sinks, hub)
	}
	if conf.StreamPort != "" {
		port, err := console.OpenPort(conf.StreamPort, console.PortOptions{Baud: conf.ConsoleBaud})
		if err != nil {
			return err
		}
		link := stream.NewLink(conf.StreamPort, port)
		loop.Add(link)
		sinks = append(sinks, link)
	}
	if len(sinks) > 0 {
		pub := sensing.NewPublisher(conf.DeviceID, sinks...)
		if conf.Decimation > 0 {
			pub.Decimation = conf.Decimation
		}
		loop.Add(pub)
	}

	runner := fx.NewRunner().HandleSignals()
	glog.Infof("%s: sampling every %s", conf.DeviceID, conf.Interval)
	return loop.Run(runner.Context())
}

func main() {
	flag.Parse()
	if err := run(board.NewConfig()); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}
