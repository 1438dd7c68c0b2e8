package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

const maxUploadBytes = 128 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pdfvault"})
}

// handleUpload accepts either a multipart form with a "file" part or a raw
// PDF body with the filename in the X-Filename header or ?filename= query.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name, data, err := readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := s.ingestor.Ingest(r.Context(), name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func readUpload(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("%w: missing multipart field %q", models.ErrInvalidInput, "file")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("%w: failed to read upload: %v", models.ErrInvalidInput, err)
		}
		return header.Filename, data, nil
	}

	name := r.Header.Get("X-Filename")
	if name == "" {
		name = r.URL.Query().Get("filename")
	}
	if name == "" {
		return "", nil, fmt.Errorf("%w: filename required (X-Filename header or filename query parameter)", models.ErrInvalidInput)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read upload: %v", models.ErrInvalidInput, err)
	}
	return name, data, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*models.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	record, err := s.catalog.GetInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.catalog.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleGetText serves extracted text, optionally filtered to the 1-based
// page numbers in ?pages=1,3,5.
func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pages, err := parsePages(r.URL.Query().Get("pages"))
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := s.catalog.GetText(r.Context(), id, pages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TextResponse{ID: id, Text: text})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req models.MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	record, err := s.deriver.Merge(r.Context(), req.DocumentIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req models.SplitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	record, err := s.deriver.Split(r.Context(), r.PathValue("id"), req.Start, req.End)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req models.RotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	record, err := s.deriver.Rotate(r.Context(), r.PathValue("id"), req.Degrees)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req models.AnnotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	record, err := s.deriver.Annotate(r.Context(), r.PathValue("id"), req.Page, req.Text, req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// parsePages parses a comma-separated list of 1-based page numbers.
func parsePages(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: bad page number %q", models.ErrInvalidInput, part)
		}
		pages = append(pages, n)
	}
	return pages, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body.", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("Request failed.", "status", status, "error", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}
