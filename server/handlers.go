package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/query"
)

const (
	mimeSPARQLResults = "application/sparql-results+json"
	mimeFormURL       = "application/x-www-form-urlencoded"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.db.Keys(r.Context(), core.ParseKey(r.URL.Query().Get("prefix")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keys": out})
}

func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	key := core.ParseKey(chi.URLParam(r, "*"))
	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := s.readQuery(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.db.Run(r.Context(), key, text, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch res := res.(type) {
	case *query.BindingsResult:
		writeResults(w, bindingsDocument(res))
	case *query.BooleanResult:
		writeResults(w, resultsDocument{Head: resultsHead{}, Boolean: &res.Value})
	case *query.QuadsResult:
		store := graph.NewStore()
		store.AddAll(res.Quads.Collect()...)
		blob, err := s.db.Codec().Encode(store, s.negotiate(r, ""))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeBlob(w, blob)
	case *query.VoidResult:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := core.ParseKey(chi.URLParam(r, "*"))
	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := opts.Format
	if format == "" {
		format = s.negotiate(r, "")
	}
	blob, err := s.db.ExportGraph(r.Context(), key, format, opts.Consistency)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBlob(w, blob)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := core.ParseKey(chi.URLParam(r, "*"))
	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	var tag string
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			tag = mt
		} else {
			tag = ct
		}
	}
	commit, err := s.db.ImportGraph(r.Context(), key, core.NewBlob(tag, data), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commitDocument(commit))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := core.ParseKey(chi.URLParam(r, "*"))
	if err := s.db.DeleteGraph(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readQuery takes the operation from a form field or the raw body.
func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == mimeFormURL {
		if err := r.ParseForm(); err != nil {
			return "", fmt.Errorf("%w: %w", errBadRequest, err)
		}
		if q := r.PostForm.Get("query"); q != "" {
			return q, nil
		}
		if u := r.PostForm.Get("update"); u != "" {
			return u, nil
		}
		return "", fmt.Errorf("%w: form has no query or update field", errBadRequest)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("%w: empty request body", errBadRequest)
	}
	return string(body), nil
}

// negotiate picks the first Accept entry the codec supports, or fallback.
func (s *Server) negotiate(r *http.Request, fallback string) string {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil || mt == "*/*" {
			continue
		}
		if s.db.Codec().Supported(mt) {
			return mt
		}
	}
	return fallback
}

// parseOptions reads format, expireIn, consistency and skipReadOnlyWrite
// from the query string.
func parseOptions(r *http.Request) (*core.Options, error) {
	q := r.URL.Query()
	opts := &core.Options{Format: q.Get("format")}

	if v := q.Get("expireIn"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: expireIn: %w", core.ErrInvalidOptions, err)
		}
		opts.ExpireIn = d
	}
	if v := q.Get("consistency"); v != "" {
		c, err := core.ParseConsistency(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidOptions, err)
		}
		opts.Consistency = c
	}
	if v := q.Get("skipReadOnlyWrite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: skipReadOnlyWrite: %w", core.ErrInvalidOptions, err)
		}
		opts.SkipReadOnlyWrite = b
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResults(w http.ResponseWriter, doc resultsDocument) {
	w.Header().Set("Content-Type", mimeSPARQLResults)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

func writeBlob(w http.ResponseWriter, blob *core.Blob) {
	w.Header().Set("Content-Type", blob.Format)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("ETag", strconv.Quote(blob.Digest))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidKey),
		errors.Is(err, core.ErrInvalidOptions),
		errors.Is(err, core.ErrQuery):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
