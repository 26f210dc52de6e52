// Package httpapi exposes the QueryService, scanjob.Runner, and
// progresschannel/gc over HTTP. No HTTP framework (gin/echo/chi) appears
// in any complete example repo's dependency graph, so this is built on
// net/http.ServeMux directly -- the justified stdlib exception noted in
// DESIGN.md.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/gc"
	"github.com/runsascoded/disk-tree/internal/logging"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/query"
	"github.com/runsascoded/disk-tree/internal/scanjob"
)

// Server wires the HTTP surface onto the core services.
type Server struct {
	Query    *query.Service
	Scans    *scanjob.Runner
	Progress *progresschannel.Channel
	GC       *gc.Service
	mux      *http.ServeMux
}

// NewServer builds the routed mux described in SPEC_FULL.md §6.
func NewServer(q *query.Service, scans *scanjob.Runner, progress *progresschannel.Channel, gcSvc *gc.Service) *Server {
	s := &Server{Query: q, Scans: scans, Progress: progress, GC: gcSvc}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /list-scans", s.handleListScans)
	s.mux.HandleFunc("GET /get-scan", s.handleGetScan)
	s.mux.HandleFunc("GET /scan-history", s.handleScanHistory)
	s.mux.HandleFunc("GET /compare", s.handleCompare)
	s.mux.HandleFunc("POST /start-scan", s.handleStartScan)
	s.mux.HandleFunc("GET /scan-status", s.handleScanStatus)
	s.mux.HandleFunc("POST /delete", s.handleDelete)
	s.mux.HandleFunc("GET /progress", s.handleProgress)
	s.mux.HandleFunc("POST /gc", s.handleGC)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the typed query-layer sentinel errors to HTTP status
// codes, per spec.md §7 kinds 4-7.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, query.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	logging.Query.Printf("request failed: %v", err)
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.Query.ListScans()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := query.GetScanRequest{URI: q.Get("uri")}
	if v := q.Get("depth"); v != "" {
		req.Depth, _ = strconv.Atoi(v)
	}
	if v := q.Get("max_rows"); v != "" {
		req.MaxRows, _ = strconv.Atoi(v)
	}
	if v := q.Get("scan_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, errBadScanID)
			return
		}
		req.ScanID = &id
	}

	resp, err := s.Query.GetScan(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, errMissingURI)
		return
	}
	hist, err := s.Query.ScanHistory(uri)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uri := q.Get("uri")
	id1, err1 := strconv.ParseInt(q.Get("scan1_id"), 10, 64)
	id2, err2 := strconv.ParseInt(q.Get("scan2_id"), 10, 64)
	if uri == "" || err1 != nil || err2 != nil {
		writeError(w, errMissingURI)
		return
	}
	depth, _ := strconv.Atoi(q.Get("depth"))

	resp, err := s.Query.Compare(uri, id1, id2, depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	if root == "" {
		writeError(w, errMissingURI)
		return
	}
	// Run to completion in the background; the caller polls scan-status.
	go func() {
		if _, err := s.Scans.Start(context.Background(), root); err != nil {
			logging.Scan.Printf("background scan of %s failed: %v", root, err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"root": root, "status": "started"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Progress.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	root := r.URL.Query().Get("root")
	if root == "" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	for _, p := range snap {
		if p.Path == root {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusOK, catalog.Progress{Path: root, Status: "not_running"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.handleScanStatus(w, r)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, errMissingURI)
		return
	}
	if err := s.Query.Delete(path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGC(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	cutoff, err := strconv.ParseInt(q.Get("cutoff"), 10, 64)
	if path == "" || err != nil {
		writeError(w, errMissingURI)
		return
	}
	removed, err := s.GC.Collect(path, cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

var (
	errMissingURI = errors.Join(query.ErrBadRequest, errors.New("uri/path parameter is required"))
	errBadScanID  = errors.Join(query.ErrBadRequest, errors.New("scan_id must be an integer"))
)
