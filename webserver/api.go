// Package webserver exposes the correlation engine's operational surface:
// stats, config inspection and reload, Prometheus metrics, and a websocket
// feed of batch-run progress.
package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"CDRGo/internal/batch"
	"CDRGo/internal/config"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
	"CDRGo/internal/metrics"
	"CDRGo/internal/sink"
)

// Server hosts the admin HTTP surface around one engine configuration.
// Reload endpoints mutate the shared classifiers in place; every Driver
// holding a pointer to them sees the new table on its next lookup.
type Server struct {
	cfg       *config.Config
	ext       *extension.Classifier
	endpoints *endpoint.Classifier
	runCfg    engine.Config
	metrics   *metrics.Metrics
	tokens    *TokenIssuer
	hub       *Hub
	startedAt time.Time

	mu         sync.Mutex
	running    bool
	lastReport batch.Report
}

// NewServer wires a Server around already-loaded classifiers, the engine
// configuration a triggered run should use, and a metrics registry. Call
// Start to begin serving and running the progress hub.
func NewServer(cfg *config.Config, ext *extension.Classifier, endpoints *endpoint.Classifier, runCfg engine.Config, m *metrics.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		ext:       ext,
		endpoints: endpoints,
		runCfg:    runCfg,
		metrics:   m,
		tokens:    NewTokenIssuer(cfg.AdminToken),
		hub:       NewHub(),
		startedAt: time.Now(),
	}
}

// SetLastReport records the most recent batch run so /api/v1/stats can
// report on it and pushes a batch_finished frame to progress subscribers.
func (s *Server) SetLastReport(r batch.Report) {
	s.mu.Lock()
	s.lastReport = r
	s.mu.Unlock()
	s.hub.Broadcast(EventBatchFinished, r.Totals)
}

// NotifyFileStarted and NotifyFileFinished push per-file progress frames to
// websocket subscribers as a batch run proceeds.
func (s *Server) NotifyFileStarted(file string) {
	s.hub.Broadcast(EventFileStarted, map[string]string{"file": file})
}

func (s *Server) NotifyFileFinished(file string) {
	s.hub.Broadcast(EventFileFinished, map[string]string{"file": file})
}

// Handler builds the routed mux; admin-only routes are wrapped with the
// token middleware, which is a no-op when no admin token is configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/stats", s.serveStats)
	mux.HandleFunc("GET /api/v1/config", s.serveConfig)
	mux.Handle("PATCH /api/v1/config", s.tokens.Middleware(http.HandlerFunc(s.reloadConfig)))
	mux.Handle("POST /api/v1/run", s.tokens.Middleware(http.HandlerFunc(s.serveRun)))
	mux.HandleFunc("GET /api/v1/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.hub.serveWS(w, r)
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /", s.serveHome)

	return mux
}

// Start runs the hub loop and blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	global.LogInfof(global.LTWebserver, "admin webserver listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) serveHome(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write(fmt.Appendf(nil, "<h1>CDRGo admin API</h1>\n<p>up since %s</p>\n", s.startedAt.Format(time.RFC3339)))
}

func (s *Server) serveStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	toMB := func(b uint64) uint64 { return b / 1000 / 1000 }

	s.mu.Lock()
	lastReport := s.lastReport
	s.mu.Unlock()

	data := struct {
		UptimeSeconds   float64        `json:"uptime_seconds"`
		CPUCount        int            `json:"cpu_count"`
		GoRoutinesCount int            `json:"goroutines"`
		AllocMB         uint64         `json:"alloc_mb"`
		SystemMB        uint64         `json:"system_mb"`
		GCCycles        uint32         `json:"gc_cycles"`
		EndpointsLoaded bool           `json:"endpoints_loaded"`
		UnknownCount    int            `json:"unknown_endpoints"`
		LastRun         map[string]int `json:"last_run_totals"`
		LastRunFiles    int            `json:"last_run_files"`
	}{
		UptimeSeconds:   time.Since(s.startedAt).Seconds(),
		CPUCount:        runtime.NumCPU(),
		GoRoutinesCount: runtime.NumGoroutine(),
		AllocMB:         toMB(m.Alloc),
		SystemMB:        toMB(m.Sys),
		GCCycles:        m.NumGC,
		EndpointsLoaded: s.endpoints.IsLoaded(),
		UnknownCount:    len(s.endpoints.UnknownEndpoints()),
		LastRun: map[string]int{
			"records_parsed": lastReport.Totals.RecordsParsed,
			"calls_emitted":  lastReport.Totals.CallsEmitted,
			"trunk_to_trunk": lastReport.Totals.TrunkToTrunkSplit,
			"suppressed":     len(lastReport.Totals.Suppressed),
			"parse_failures": len(lastReport.Totals.ParseFailures),
		},
		LastRunFiles: len(lastReport.PerFile),
	}

	response, err := json.Marshal(data)
	if err != nil {
		global.LogErrorf(global.LTWebserver, "marshaling stats: %v", err)
		http.Error(w, "failed to marshal stats", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(response)
}

func (s *Server) serveConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	safe := *s.cfg
	safe.AdminToken = ""
	safe.MySQLDSN = ""

	response, err := json.Marshal(safe)
	if err != nil {
		global.LogErrorf(global.LTWebserver, "marshaling config: %v", err)
		http.Error(w, "failed to marshal config", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(response)
}

// serveRun kicks off a batch correlation run over the configured input
// directory in the background and returns immediately; progress is
// observable via /api/v1/ws/progress and the eventual totals via
// /api/v1/stats. A run already in flight is rejected rather than queued.
func (s *Server) serveRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	s.running = true
	s.mu.Unlock()

	files, err := listCDRFiles(s.cfg.InputDir)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		http.Error(w, fmt.Sprintf("listing input directory: %v", err), http.StatusInternalServerError)
		return
	}

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		newSink := func(file string) (engine.LegSink, error) {
			outPath := filepath.Join(s.cfg.OutputDir, filepath.Base(file)+".csv")
			return sink.NewCSVSink(outPath)
		}

		for _, f := range files {
			s.NotifyFileStarted(f)
		}
		result, err := batch.Run(context.WithoutCancel(r.Context()), files, s.ext, s.endpoints, newSink, s.runCfg, 4)
		if err != nil {
			global.LogErrorf(global.LTWebserver, "triggered run failed: %v", err)
			return
		}
		s.metrics.ObserveRunReport(
			result.Totals.RecordsParsed,
			result.Totals.CallsEmitted,
			result.Totals.TrunkToTrunkSplit,
			len(result.Totals.Suppressed),
			len(result.Totals.ParseFailures),
			len(result.Totals.UnknownEndpoints),
		)
		s.SetLastReport(result)
		for _, f := range files {
			s.NotifyFileFinished(f)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("run started\n"))
}

func listCDRFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// reloadConfig re-reads the endpoint and extension documents named in the
// current config, validating and loading each in turn into its live
// classifier. A bad document leaves its own table untouched; an endpoint
// table already reloaded stays loaded if the extension document then fails.
func (s *Server) reloadConfig(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.EndpointDocumentPath != "" {
		data, err := os.ReadFile(s.cfg.EndpointDocumentPath)
		if err != nil {
			global.LogErrorf(global.LTConfiguration, "reading endpoint document: %v", err)
			http.Error(w, "failed to reload endpoint document", http.StatusInternalServerError)
			return
		}
		if err := config.ValidateEndpointDocument(data); err != nil {
			global.LogErrorf(global.LTConfiguration, "validating endpoint document: %v", err)
			http.Error(w, "endpoint document failed schema validation", http.StatusBadRequest)
			return
		}
		entries, err := endpoint.Parse(data)
		if err != nil {
			global.LogErrorf(global.LTConfiguration, "reloading endpoint document: %v", err)
			http.Error(w, "failed to reload endpoint document", http.StatusInternalServerError)
			return
		}
		s.endpoints.Load(entries)
	}

	if s.cfg.ExtensionDocumentPath != "" {
		data, err := os.ReadFile(s.cfg.ExtensionDocumentPath)
		if err != nil {
			global.LogErrorf(global.LTConfiguration, "reading extension document: %v", err)
			http.Error(w, "failed to reload extension document", http.StatusInternalServerError)
			return
		}
		if err := config.ValidateExtensionDocument(data); err != nil {
			global.LogErrorf(global.LTConfiguration, "validating extension document: %v", err)
			http.Error(w, "extension document failed schema validation", http.StatusBadRequest)
			return
		}
		doc, err := extension.ParseDocument(data)
		if err != nil {
			global.LogErrorf(global.LTConfiguration, "reloading extension document: %v", err)
			http.Error(w, "failed to reload extension document", http.StatusInternalServerError)
			return
		}
		s.ext.Load(doc.Ranges)
	}

	global.LogInfo(global.LTConfiguration, "reference documents reloaded")
	_, _ = w.Write([]byte("<h1>CDRGo admin API - config reloaded successfully</h1>\n"))
}
