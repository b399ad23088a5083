package bridge

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/banshee-data/racecar-sim/internal/drive"
	"github.com/banshee-data/racecar-sim/internal/httputil"
	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/lidar/visualiser"
	"github.com/banshee-data/racecar-sim/internal/version"
)

// Server serves the HTTP control API.
type Server struct {
	src     ScanSource
	drive   *drive.State
	realism RealismSwitch
}

// NewServer returns a server over src and d. realism may be nil, in which
// case the realism endpoint is read-only and reports false.
func NewServer(src ScanSource, d *drive.State, realism RealismSwitch) *Server {
	return &Server{src: src, drive: d, realism: realism}
}

// ServeMux builds the route table, including the tsweb /debug/ index.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/lidar/samples", s.handleSamples)
	mux.HandleFunc("/lidar/clear", s.handleClear)
	mux.HandleFunc("/lidar/stats", s.handleStats)
	mux.HandleFunc("/lidar/profile", s.handleProfile)
	mux.HandleFunc("/lidar/realism", s.handleRealism)
	mux.HandleFunc("/lidar/polar", s.handlePolar)
	mux.HandleFunc("/lidar/scan.png", s.handlePNG)
	mux.HandleFunc("/car/control", s.handleControl)
	mux.HandleFunc("/car/state", s.handleCarState)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/version", s.handleVersion)

	debug := tsweb.Debugger(mux)
	debug.Handle("lidar", "Current lidar scan", http.HandlerFunc(s.handlePolar))
	debug.KV("Sensor profile", s.src.Profile().Name)
	return mux
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, NewSamplesMessage(s.src))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	halfWidth := lidar.DefaultForwardHalfWidth
	if v := r.URL.Query().Get("half_width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "half_width must be a non-negative integer")
			return
		}
		halfWidth = n
	}
	// The default threshold is in centimetres; follow the profile's units.
	threshold := float64(lidar.DefaultClearanceThreshold) * s.src.Profile().UnitScale / 100
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, "threshold must be a number")
			return
		}
		threshold = f
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"clear":      lidar.IsForwardClear(s.src.Profile(), s.src.Buffer(), halfWidth, threshold),
		"half_width": halfWidth,
		"threshold":  threshold,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p, buf := s.src.Profile(), s.src.Buffer()

	resp := map[string]interface{}{
		"stats":   lidar.Stats(p, buf),
		"forward": lidar.ForwardDistance(p, buf, 15),
		"sectors": lidar.SectorMinimums(p, buf, 8),
		"cursor":  s.src.Cursor(),
	}
	if d, idx, ok := lidar.ClosestObstacle(p, buf); ok {
		resp["closest"] = map[string]interface{}{"distance": d, "index": idx, "heading_deg": p.Heading(idx)}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.src.Profile())
}

func (s *Server) handleRealism(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if s.realism == nil {
			httputil.WriteJSONError(w, http.StatusNotImplemented, "realism cannot be changed")
			return
		}
		var body struct {
			Enabled *bool `json:"enabled"`
		}
		if err := httputil.DecodeJSON(r, &body); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if body.Enabled == nil {
			httputil.BadRequest(w, "enabled is required")
			return
		}
		s.realism.SetRealism(*body.Enabled)
	default:
		httputil.MethodNotAllowed(w)
		return
	}
	enabled := s.realism != nil && s.realism.Realism()
	httputil.WriteJSONOK(w, map[string]bool{"enabled": enabled})
}

func (s *Server) projection() []lidar.ScanPoint {
	p := s.src.Profile()
	return lidar.Project(p, s.src.Buffer(), lidar.DefaultProjection(p))
}

func (s *Server) renderOptions() visualiser.Options {
	p := s.src.Profile()
	return visualiser.Options{
		Title: fmt.Sprintf("LiDAR %s", p.Name),
		Range: lidar.DefaultProjection(p).MaxDisplayRange,
	}
}

func (s *Server) handlePolar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := visualiser.WriteHTML(&buf, s.projection(), s.renderOptions()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := visualiser.WritePNG(&buf, s.projection(), s.renderOptions()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteBody(w, "image/png", buf.Bytes())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var body struct {
		Speed *float64 `json:"speed"`
		Angle *float64 `json:"angle"`
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if body.Speed == nil || body.Angle == nil {
		httputil.BadRequest(w, "speed and angle are required")
		return
	}

	if err := s.drive.Apply(drive.Command{Speed: *body.Speed, Angle: *body.Angle}); err != nil {
		// The command is stored even when forwarding fails.
		httputil.InternalServerError(w, err.Error())
		return
	}
	cur := s.drive.Current()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "ok",
		"speed":  cur.Speed,
		"angle":  cur.Angle,
	})
}

func (s *Server) handleCarState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.drive.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "ok",
		"cursor": s.src.Cursor(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}
