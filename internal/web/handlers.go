package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/load"
	"github.com/argius/stew5/internal/logging"
	"github.com/argius/stew5/internal/stream"
)

const (
	defaultPreviewRows = 20
	maxPreviewRows     = 1000
)

// PreviewResponse is the JSON reply of the preview endpoint.
type PreviewResponse struct {
	Header    []string   `json:"header,omitempty"`
	Rows      [][]string `json:"rows"`
	Truncated bool       `json:"truncated"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLoad streams the request body into a table.
//
//	POST /api/load/{table}?sep=,&header=true&columns=a,b
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	q := r.URL.Query()

	header, err := boolParam(r, "header", false)
	if err != nil {
		respondError(w, r, err)
		return
	}

	imp, err := s.openBody(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer imp.Close()

	fileName := q.Get("name")
	logging.FromContext(r.Context()).Info("load requested", "table", table, "file", fileName)

	result, err := s.loader.Load(r.Context(), load.Request{
		Table:    table,
		Columns:  splitList(q.Get("columns")),
		Header:   header,
		FileName: fileName,
		Importer: imp,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handlePreview parses the first rows of the body without loading them.
//
//	POST /api/preview?sep=,&header=true&limit=20
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultPreviewRows)
	if limit > maxPreviewRows {
		limit = maxPreviewRows
	}
	header, err := boolParam(r, "header", false)
	if err != nil {
		respondError(w, r, err)
		return
	}

	imp, err := s.openBody(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer imp.Close()

	resp := PreviewResponse{Rows: [][]string{}}
	if header {
		h, err := imp.Header()
		if err != nil {
			respondError(w, r, err)
			return
		}
		resp.Header = h
	}

	for row, err := range imp.Rows() {
		if err != nil {
			respondError(w, r, err)
			return
		}
		if len(resp.Rows) == limit {
			resp.Truncated = true
			break
		}
		resp.Rows = append(resp.Rows, row)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// openBody wraps the request body in an Importer using the separator from
// the query or the configured default.
func (s *Server) openBody(w http.ResponseWriter, r *http.Request) (*delim.Importer, error) {
	sep := s.cfg.Import.Separator
	if v := r.URL.Query().Get("sep"); v != "" {
		sep = config.ParseSeparator(v)
	}

	opts := []delim.Option{delim.WithChunkSize(s.cfg.Import.ChunkSize)}
	if s.cfg.Import.StrictQuotes {
		opts = append(opts, delim.WithStrictQuotes())
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	return delim.New(stream.Wrap(body, r.ContentLength), sep, opts...)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// boolParam parses a boolean query parameter.
func boolParam(r *http.Request, name string, defaultVal bool) (bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errBadParam, name, val)
	}
	return b, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
