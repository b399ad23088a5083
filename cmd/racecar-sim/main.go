// Command racecar-sim runs the simulated lidar with its network bridges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar-sim/internal/bridge"
	"github.com/banshee-data/racecar-sim/internal/config"
	"github.com/banshee-data/racecar-sim/internal/drive"
	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/lidar/scene"
	"github.com/banshee-data/racecar-sim/internal/recorder"
	"github.com/banshee-data/racecar-sim/internal/sim"
	"github.com/banshee-data/racecar-sim/internal/timeutil"
	"github.com/banshee-data/racecar-sim/internal/version"
)

var (
	configFile = flag.String("config", "", "Path to a JSON config file (defaults apply when empty)")
	listen     = flag.String("listen", "", "HTTP listen address (overrides http_listen)")
	profile    = flag.String("profile", "", "Sensor profile: hokuyo-ust-10lx or ydlidar-x4")
	realism    = flag.Bool("realism", false, "Enable the sensor noise model")
	timing     = flag.String("timing", "", "Loop timing: fixed or variable")
	wsURL      = flag.String("ws", "", "Bridge server WebSocket URL")
	mqttBroker = flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	grpcListen = flag.String("grpc", "", "gRPC scan stream listen address")
	serialPort = flag.String("serial", "", "Serial port to forward drive commands to")
	recordDB   = flag.String("record", "", "SQLite file to record rotations into")
	arenaSize  = flag.Float64("arena", 5, "Half width of the square arena in metres")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

// recordQueue bounds the rotations waiting for the recorder.
const recordQueue = 64

func main() {
	flag.Parse()

	if *showVer {
		v := version.Current()
		fmt.Printf("racecar-sim %s (%s, built %s)\n", v.Version, v.GitSHA, v.BuildTime)
		return
	}

	cfg := &config.Config{}
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(cfg, set)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	p, err := cfg.SensorProfile()
	if err != nil {
		log.Fatalf("invalid sensor profile: %v", err)
	}
	sensor, err := lidar.New(p, lidar.Options{
		Environment: buildScene(*arenaSize),
		Mask:        scene.IgnoreUIMask,
		Seed:        uint64(cfg.GetSeed()),
		MountOffset: r3.Vec{Y: 0.2, Z: 0.15},
	})
	if err != nil {
		log.Fatalf("failed to create sensor: %v", err)
	}
	loop, err := sim.New(sensor, timeutil.RealClock{}, sim.Config{
		Mode:      cfg.GetTimingMode(),
		FixedStep: cfg.GetFixedTimestep(),
		Realism:   cfg.GetRealism(),
	})
	if err != nil {
		log.Fatalf("failed to create simulation loop: %v", err)
	}

	driveState := drive.NewState()
	if port := cfg.GetSerialPort(); port != "" {
		fwd, err := drive.OpenSerialForwarder(port, drive.DefaultBaudRate)
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
		defer fwd.Close()
		driveState.Attach(fwd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	mux := bridge.NewServer(sensor, driveState, loop).ServeMux()

	if path := cfg.GetRecordDB(); path != "" {
		rec, err := recorder.Open(path)
		if err != nil {
			log.Fatalf("failed to open recorder: %v", err)
		}
		defer rec.Close()
		if err := rec.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach recorder admin routes: %v", err)
		}
		episode, err := rec.StartEpisode(ctx, p, cfg.GetRealism(), cfg.GetSeed())
		if err != nil {
			log.Fatalf("failed to start episode: %v", err)
		}

		rotations := make(chan sim.Rotation, recordQueue)
		loop.OnRotation(func(r sim.Rotation) {
			select {
			case rotations <- r:
			default:
				log.Printf("recorder queue full, dropping rotation %d", r.Sequence)
			}
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Printf("recorder routine terminated")
					return
				case r := <-rotations:
					if err := rec.RecordScan(ctx, episode, r.Sequence, r.SimTime, r.Samples); err != nil {
						log.Printf("failed to record rotation: %v", err)
					}
				}
			}
		}()
	}

	// simulation loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			log.Printf("simulation loop failed: %v", err)
			stop()
		}
		log.Print("simulation routine terminated")
	}()

	if url := cfg.GetWebsocketURL(); url != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := bridge.NewWSClient(url, sensor, driveState, cfg.GetWebsocketInterval())
			if err := client.Run(ctx); err != nil {
				log.Printf("websocket client failed: %v", err)
			}
		}()
	}

	if broker := cfg.GetMQTTBroker(); broker != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := bridge.NewMQTTClient(broker, fmt.Sprintf("racecar-sim-%d", os.Getpid()))
			exporter := bridge.NewMQTTExporter(client, sensor, cfg.GetMQTTTopic(), cfg.GetWebsocketInterval())
			if err := exporter.Run(ctx); err != nil {
				log.Printf("MQTT exporter failed: %v", err)
			}
		}()
	}

	if addr := cfg.GetGRPCListen(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("failed to listen for gRPC on %s: %v", addr, err)
		}
		grpcServer := grpc.NewServer()
		bridge.NewScanService(sensor).Register(grpcServer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				<-ctx.Done()
				grpcServer.Stop()
			}()
			log.Printf("gRPC scan stream listening on %s", lis.Addr())
			if err := grpcServer.Serve(lis); err != nil {
				log.Printf("gRPC server error: %v", err)
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:              cfg.GetHTTPListen(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("HTTP API listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// applyFlags copies explicitly set command-line flags over the file config.
func applyFlags(cfg *config.Config, set map[string]bool) {
	str := func(name string, v string, dst **string) {
		if set[name] {
			s := v
			*dst = &s
		}
	}
	str("listen", *listen, &cfg.HTTPListen)
	str("profile", *profile, &cfg.Profile)
	str("timing", *timing, &cfg.TimingMode)
	str("ws", *wsURL, &cfg.WebsocketURL)
	str("mqtt", *mqttBroker, &cfg.MQTTBroker)
	str("grpc", *grpcListen, &cfg.GRPCListen)
	str("serial", *serialPort, &cfg.SerialPort)
	str("record", *recordDB, &cfg.RecordDB)
	if set["realism"] {
		r := *realism
		cfg.Realism = &r
	}
}

// buildScene is a square walled arena with a few posts and a UI marker the
// sensor must not see.
func buildScene(halfWidth float64) *scene.Scene {
	s := scene.New(scene.Arena(halfWidth, halfWidth, 1, 0.2)...)
	s.Add(
		scene.Cylinder{Base: r3.Vec{X: 1.5, Z: 2.5}, Radius: 0.25, Height: 1, Mask: scene.LayerDefault},
		scene.Cylinder{Base: r3.Vec{X: -2, Z: -1}, Radius: 0.4, Height: 1, Mask: scene.LayerDefault},
		scene.Box{Min: r3.Vec{X: -0.5, Z: 1}, Max: r3.Vec{X: 0.5, Y: 2, Z: 1.1}, Mask: scene.LayerUI},
	)
	return s
}
