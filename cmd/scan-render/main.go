// Command scan-render renders one lidar scan as a PNG polar scatter, or as
// an HTML chart when the output file ends in .html. The scan comes from a
// recorder database, a running simulator's HTTP API or its gRPC stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/banshee-data/racecar-sim/internal/bridge"
	"github.com/banshee-data/racecar-sim/internal/httputil"
	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/lidar/visualiser"
	"github.com/banshee-data/racecar-sim/internal/recorder"
)

var (
	dbPath    = flag.String("db", "", "Recorder database to read from")
	episodeID = flag.String("episode", "", "Episode ID (defaults to the newest episode)")
	apiURL    = flag.String("url", "", "Simulator HTTP base URL, e.g. http://localhost:5000")
	grpcAddr  = flag.String("grpc", "", "Simulator gRPC address, e.g. localhost:50051")
	outPath   = flag.String("out", "scan.png", "Output file (.png or .html)")
	timeout   = flag.Duration("timeout", 10*time.Second, "Timeout for fetching the scan")
)

// scan is a profile with one rotation of samples.
type scan struct {
	profile lidar.SensorProfile
	samples []float64
	title   string
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		s   scan
		err error
	)
	switch {
	case *dbPath != "":
		s, err = loadFromDB(ctx, *dbPath, *episodeID)
	case *apiURL != "":
		s, err = loadFromHTTP(ctx, httputil.NewStandardClient(&http.Client{Timeout: *timeout}), *apiURL)
	case *grpcAddr != "":
		s, err = loadFromGRPC(ctx, *grpcAddr)
	default:
		log.Fatal("one of -db, -url or -grpc is required")
	}
	if err != nil {
		log.Fatalf("failed to load scan: %v", err)
	}

	if err := render(*outPath, s); err != nil {
		log.Fatalf("failed to render: %v", err)
	}
	log.Printf("wrote %s (%d samples, profile %s)", *outPath, len(s.samples), s.profile.Name)
}

func loadFromDB(ctx context.Context, path, episode string) (scan, error) {
	rec, err := recorder.Open(path)
	if err != nil {
		return scan{}, err
	}
	defer rec.Close()

	episodes, err := rec.Episodes(ctx)
	if err != nil {
		return scan{}, err
	}
	var chosen *recorder.Episode
	for i := range episodes {
		if episode == "" || episodes[i].ID.String() == episode {
			chosen = &episodes[i]
			break
		}
	}
	if chosen == nil {
		if episode == "" {
			return scan{}, fmt.Errorf("%s has no episodes", path)
		}
		if _, err := uuid.Parse(episode); err != nil {
			return scan{}, fmt.Errorf("invalid episode ID %q: %w", episode, err)
		}
		return scan{}, fmt.Errorf("episode %s: %w", episode, recorder.ErrNotFound)
	}

	latest, err := rec.LatestScan(ctx, chosen.ID)
	if err != nil {
		return scan{}, fmt.Errorf("episode %s: %w", chosen.ID, err)
	}
	p, err := lidar.ProfileByName(chosen.Profile)
	if err != nil {
		return scan{}, err
	}
	p.NumSamples = chosen.NumSamples
	return scan{
		profile: p,
		samples: latest.Samples,
		title:   fmt.Sprintf("%s rotation %d (t=%.2fs)", p.Name, latest.Sequence, latest.SimTime),
	}, nil
}

func loadFromHTTP(ctx context.Context, c httputil.HTTPClient, base string) (scan, error) {
	base = strings.TrimRight(base, "/")

	var p lidar.SensorProfile
	if err := httputil.GetJSON(ctx, c, base+"/lidar/profile", &p); err != nil {
		return scan{}, err
	}
	var msg bridge.SamplesMessage
	if err := httputil.GetJSON(ctx, c, base+"/lidar/samples", &msg); err != nil {
		return scan{}, err
	}
	samples := make([]float64, len(msg.Samples))
	for i, v := range msg.Samples {
		samples[i] = float64(v)
	}
	return scan{profile: p, samples: samples, title: fmt.Sprintf("%s live", p.Name)}, nil
}

func loadFromGRPC(ctx context.Context, addr string) (scan, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return scan{}, fmt.Errorf("failed to create gRPC client: %w", err)
	}
	defer cc.Close()
	return firstFrame(ctx, bridge.NewScanClient(cc))
}

func firstFrame(ctx context.Context, client *bridge.ScanClient) (scan, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Stream(ctx, time.Second)
	if err != nil {
		return scan{}, err
	}
	frame, err := stream.Recv()
	if err != nil {
		return scan{}, fmt.Errorf("receive frame: %w", err)
	}
	p, err := lidar.ProfileByName(frame.Profile)
	if err != nil {
		return scan{}, err
	}
	p.NumSamples = len(frame.Samples)
	return scan{profile: p, samples: frame.Samples, title: fmt.Sprintf("%s frame %d", p.Name, frame.Sequence)}, nil
}

func render(path string, s scan) error {
	if len(s.samples) != s.profile.NumSamples {
		return fmt.Errorf("scan has %d samples, profile %s expects %d", len(s.samples), s.profile.Name, s.profile.NumSamples)
	}
	cfg := lidar.DefaultProjection(s.profile)
	points := lidar.Project(s.profile, lidar.SliceReader(s.samples), cfg)
	opts := visualiser.Options{Title: s.title, Range: cfg.MaxDisplayRange}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".html") {
		err = visualiser.WriteHTML(f, points, opts)
	} else {
		err = visualiser.WritePNG(f, points, opts)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
