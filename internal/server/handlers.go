package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/export"
	"github.com/leapstack-labs/flowdoc/internal/flow"
)

// Response headers and names.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	DefaultFilename = "flow_documentation.xlsx"

	uploadField = "file"
)

// upload is a flow document received in a request.
type upload struct {
	name   string
	format flow.Format
	body   io.Reader
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	catalog, ok := s.catalogFromRequest(w, r)
	if !ok {
		return
	}

	// Render fully before writing headers so failures still get a proper status.
	var buf bytes.Buffer
	if err := s.workbook.Write(catalog, &buf); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", ContentTypeXLSX)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": workbookFilename(catalog.Flow.ID, r),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, ok := s.catalogFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, export.NewReport(catalog))
}

// handleEvents streams watch-mode regenerations as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	_, _ = fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: regenerated\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// catalogFromRequest reads the uploaded document and assembles its catalog.
// On failure the error response has been written and ok is false.
func (s *Server) catalogFromRequest(w http.ResponseWriter, r *http.Request) (*docs.Catalog, bool) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	up, err := readUpload(r, limit)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return nil, false
	}

	catalog, err := s.generator.FromReader(up.body, up.format)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return nil, false
	}

	s.logger.Info("converted flow document",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("name", up.name),
		slog.Int("resources", len(catalog.Resources)))
	return catalog, true
}

// readUpload accepts either a multipart form with a "file" field or the raw
// document as the request body. The raw body format comes from the "format"
// query parameter or the Content-Type, defaulting to JSON.
func readUpload(r *http.Request, limit int64) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			err = fmt.Errorf("failed to parse upload: %w", err)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, err
			}
			return nil, &requestError{status: http.StatusBadRequest, err: err}
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			return nil, &requestError{status: http.StatusBadRequest, err: fmt.Errorf("missing form field %q: %w", uploadField, err)}
		}
		format, err := flow.FormatFromPath(header.Filename)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		// Multipart files are buffered by ParseMultipartForm; reading fully here lets the file close.
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return &upload{name: header.Filename, format: format, body: bytes.NewReader(data)}, nil
	}

	format := flow.FormatJSON
	switch q := strings.ToLower(r.URL.Query().Get("format")); {
	case q == "yaml" || q == "yml":
		format = flow.FormatYAML
	case q == "json":
	case q != "":
		return nil, fmt.Errorf("%w: %s", flow.ErrUnsupportedFormat, q)
	case strings.Contains(mediaType, "yaml"):
		format = flow.FormatYAML
	}
	return &upload{name: "body", format: format, body: r.Body}, nil
}

type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func statusFor(err error) int {
	var reqErr *requestError
	var maxErr *http.MaxBytesError
	var loadErr *flow.LoadError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, flow.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &loadErr), errors.Is(err, flow.ErrInvalidDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn("request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = export.EncodeJSON(w, data)
}

// workbookFilename names the download after the flow id, or the upload's
// "name" query parameter when given.
func workbookFilename(flowID string, r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		base := filepath.Base(name)
		return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
	}
	if flowID != "" {
		return "flow_" + flowID + ".xlsx"
	}
	return DefaultFilename
}
