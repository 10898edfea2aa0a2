// Package admin serves the viewer's admin endpoints: Prometheus metrics,
// a health check, a dump of the plane index and pprof.
package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/engine/localspace"
	"github.com/Faultbox/mapview/internal/logger"
	"github.com/Faultbox/mapview/internal/roommap"
	"github.com/Faultbox/mapview/internal/spatial"
)

// IndexReport is the body of /debug/index.
type IndexReport struct {
	Rooms       int                  `json:"rooms"`
	Planes      int                  `json:"planes"`
	Reroots     int                  `json:"reroots"`
	LocalSpaces []LocalSpaceReport   `json:"local_spaces"`
	PlaneStats  []spatial.PlaneStats `json:"plane_stats"`
}

// LocalSpaceReport describes one local space.
type LocalSpaceReport struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Rooms     int     `json:"rooms"`
	HasPortal bool    `json:"has_portal"`
	HasBounds bool    `json:"has_bounds"`
	Scale     float32 `json:"scale,omitempty"`
}

// Handler returns the admin mux for the graph.
func Handler(graph *roommap.Graph) http.Handler {
	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealthCheck)
	mux.Handle("/debug/index", handleIndex(graph))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &mux
}

func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleIndex reports the plane index. It answers 503 while the map is
// being edited rather than waiting for the edit to finish.
func handleIndex(graph *roommap.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var report IndexReport
		ok := graph.View(func(s *roommap.State) {
			report = buildReport(s)
		})
		if !ok {
			http.Error(w, "map is being edited", http.StatusServiceUnavailable)
			return
		}

		body, err := json.Marshal(report)
		if err != nil {
			logger.Error("encoding index report", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func buildReport(s *roommap.State) IndexReport {
	planes := s.PlaneList()
	report := IndexReport{
		Rooms:      s.Size(),
		Planes:     planes.Len(),
		Reroots:    planes.Reroots(),
		PlaneStats: planes.Stats(),
	}
	for _, ls := range s.LocalSpaces() {
		lr := LocalSpaceReport{
			ID:        ls.ID,
			Name:      ls.Name,
			Rooms:     len(s.RoomsInLocalSpace(ls.ID)),
			HasPortal: ls.HasPortal,
			HasBounds: ls.HasBounds,
		}
		if ls.HasPortal && ls.HasBounds {
			if scale, ok := localspace.Scale(ls); ok {
				lr.Scale = scale
			}
		}
		report.LocalSpaces = append(report.LocalSpaces, lr)
	}
	return report
}

// ListenAndServe runs the servers until ctx is cancelled, then shuts them
// down.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		for _, s := range servers {
			if err := s.Shutdown(context.Background()); err != nil {
				logger.Warn("shutting down the server failed",
					zap.String("addr", s.Addr),
					zap.Error(err),
				)
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logger.Info("starting server", zap.String("addr", s.Addr))

			err := s.ListenAndServe()
			switch {
			case err == nil, errors.Is(err, http.ErrServerClosed), errors.Is(err, context.Canceled):
				logger.Info("stopping server", zap.String("addr", s.Addr))

			default:
				logger.Warn("server stopped",
					zap.String("addr", s.Addr),
					zap.Error(err),
				)
			}
		}(s)
	}

	wg.Wait()
}
