package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gopkg.in/yaml.v3"

	"github.com/itohio/goresponsive/pkg/analog"
	"github.com/itohio/goresponsive/pkg/calibrate"
	"github.com/itohio/goresponsive/pkg/config"
	"github.com/itohio/goresponsive/pkg/filter"
)

// reading is the JSON payload reported on each responsive value change.
type reading struct {
	Timestamp time.Time `json:"timestamp"`
	Raw       int       `json:"raw"`
	Value     int       `json:"value"`
	Byte      int       `json:"byte"`
	Sleeping  bool      `json:"sleeping"`
}

// logTracer routes filter and calibration diagnostics to the log.
type logTracer struct{}

func (logTracer) Emit(text string) { log.Print(text) }

func main() {
	var (
		portFlag      = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag      = flag.Bool("mock", false, "Use a simulated sensor instead of the serial bridge")
		calibrateFlag = flag.Bool("calibrate", false, "Run the interactive calibration procedure and exit")
		verboseFlag   = flag.Bool("v", false, "Trace responsive value changes")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	src, closeSource, err := newSource(cfg, *mockFlag)
	if err != nil {
		log.Fatalf("Failed to open sampling source: %v", err)
	}
	if closeSource != nil {
		defer closeSource()
	}

	if *calibrateFlag {
		runCalibration(cfg, src)
		return
	}

	f := newFilter(cfg, src)
	if *verboseFlag {
		f.SetTracer(logTracer{})
	}

	publish := newPublisher(cfg)

	log.Printf("monitoring sensor %d every %v", cfg.Sensor.ID, cfg.Measurement.PollInterval)

	ticker := time.NewTicker(cfg.Measurement.PollInterval)
	defer ticker.Stop()

	for range ticker.C {
		f.Poll()
		// A sleeping filter stops changing, which quiets reporting without
		// any extra bookkeeping.
		if !f.HasChanged() {
			continue
		}

		r := reading{
			Timestamp: time.Now(),
			Raw:       f.RawValue(),
			Value:     f.Value(),
			Byte:      f.ByteValue(),
			Sleeping:  f.IsSleeping(),
		}
		log.Printf("raw=%4d value=%4d byte=%3d", r.Raw, r.Value, r.Byte)
		publish(r)
	}
}

// newSource builds the configured sampling source and returns it with an
// optional teardown function.
func newSource(cfg *config.Config, mock bool) (filter.Source, func(), error) {
	if mock {
		return analog.NewMock(&cfg.Mock, cfg.Sensor.Resolution), nil, nil
	}

	s := analog.NewSerial(cfg.Serial.Port, cfg.Serial.Baud, cfg.Sensor.ID)
	if err := s.Connect(); err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			log.Printf("Failed to close serial source: %v", err)
		}
	}, nil
}

// newFilter wires the configuration into a filter attached to src.
func newFilter(cfg *config.Config, src filter.Source) *filter.Filter {
	f := filter.New(cfg.Sensor.ID, cfg.Filter.SleepEnable, cfg.Filter.EdgeSnapEnable, float32(cfg.Filter.SnapMultiplier))
	f.SetResolution(cfg.Sensor.Resolution)
	f.SetActivityThreshold(cfg.Filter.ActivityThreshold)
	f.SetByteOutput(cfg.Filter.ByteOutput)
	f.SetRange(cfg.Mapping.FromMin, cfg.Mapping.FromMax, cfg.Mapping.ToMin, cfg.Mapping.ToMax)
	f.SetSource(src)

	if len(cfg.Mapping.Points) >= 2 {
		points := make([]filter.Breakpoint, len(cfg.Mapping.Points))
		for i, p := range cfg.Mapping.Points {
			points[i] = filter.Breakpoint{In: p.In, Out: p.Out}
		}
		f.SetCalibration(points)
	}

	return f
}

// newPublisher returns a change-report sink: MQTT when a broker is
// configured, a no-op otherwise.
func newPublisher(cfg *config.Config) func(reading) {
	if cfg.MQTT.Broker == "" {
		return func(reading) {}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
	}

	return func(r reading) {
		payload, err := json.Marshal(r)
		if err != nil {
			log.Printf("json marshal error: %v", err)
			return
		}
		client.Publish(cfg.MQTT.Topic, 0, true, payload)
	}
}

// runCalibration runs the guided sweep against the live source and prints
// the resulting table as a config snippet. The active configuration file is
// left untouched.
func runCalibration(cfg *config.Config, src filter.Source) {
	proc := calibrate.New(src, &cfg.Calibration)
	proc.SetTracer(logTracer{})

	points, err := proc.Run()
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}

	mapping := cfg.Mapping
	mapping.Points = make([]config.MapPoint, len(points))
	for i, p := range points {
		mapping.Points[i] = config.MapPoint{In: p.In, Out: p.Out}
	}

	snippet, err := yaml.Marshal(map[string]config.MappingConfig{"mapping": mapping})
	if err != nil {
		log.Fatalf("Failed to render calibration table: %v", err)
	}

	fmt.Println("Add this to your configuration file:")
	fmt.Print(string(snippet))
}
