package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ironsheep/pgm-tools-mcp/internal/imaging"
)

// maxRequestBytes matches the line limit of the stdio transport.
const maxRequestBytes = 1024 * 1024

var contentTypes = map[string]string{
	"pgm":  "image/x-portable-graymap",
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"pcx":  "image/x-pcx",
}

// Handler returns the HTTP transport:
//
//	POST /rpc                    one JSON-RPC request, same methods as stdio
//	GET  /rasters/{id}.{format}  a raster encoded as pgm, png, jpeg, ...
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware)

	r.Path("/rpc").
		Methods(http.MethodPost).
		HandlerFunc(s.handleRPC)

	r.Path("/rasters/{id}.{format:[a-z]+}").
		Methods(http.MethodGet).
		HandlerFunc(s.handleRasterGet)

	return r
}

// ListenAndServe serves Handler on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Error in %s request of '%s': %v", r.Method, r.URL.Path, err)
				s.debugf("stacktrace from panic:\n%s", debug.Stack())
				http.Error(w, fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req MCPRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, s.errorResponse(nil, -32700, "Parse error", err.Error()))
		return
	}

	resp := s.handleRequest(&req)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRasterGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := imaging.ParseFormat(vars["format"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.handles.get(vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	opts := imaging.ExportOptions{Format: format, JPEGQuality: s.cfg.JPEGQuality}
	if err := imaging.Encode(&buf, img, opts); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write raster %s: %v", vars["id"], err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
