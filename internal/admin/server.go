// Package admin serves a small HTTP surface over a running show: roster
// and plan snapshots plus raw wire-frame injection for operators.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"dronechoreo/internal/logging"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/swarm"
)

// Controller is the slice of the show runner the admin surface needs.
type Controller interface {
	State() []swarm.VehicleState
	Generation() uint64
	Formation() planner.Formation
	LatestPlan() (*planner.Plan, uint64)
	Inject(ctx context.Context, frame string) (swarm.Decision, error)
}

//go:embed templates/index.html
var content embed.FS

type Server struct {
	ctrl Controller
	tpl  *template.Template
	mux  *http.ServeMux
}

func NewServer(ctrl Controller) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{ctrl: ctrl, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/roster", s.handleRoster)
	s.mux.HandleFunc("/plan", s.handlePlan)
	s.mux.HandleFunc("/generation", s.handleGeneration)
	s.mux.HandleFunc("/notify", s.handleNotify)
}

// Start serves until the context is done, then shuts the listener down.
// The returned error is http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f := s.ctrl.Formation()
	data := struct {
		Generation uint64
		Formation  string
		Slots      int
		Roster     []swarm.VehicleState
	}{
		Generation: s.ctrl.Generation(),
		Formation:  f.Name,
		Slots:      len(f.Slots),
		Roster:     s.ctrl.State(),
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ctrl.State())
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, gen := s.ctrl.LatestPlan()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"generation": gen, "plan": plan})
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uint64{"generation": s.ctrl.Generation()})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dec, err := s.ctrl.Inject(r.Context(), strings.TrimSpace(string(body)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dec)
}
