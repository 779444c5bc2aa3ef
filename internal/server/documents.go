package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
)

func decodeJSONBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.InvalidArgumentErrorf("decode request body: %v", err)
	}
	return nil
}

// docIDFromRequest parses the {id} path variable and stamps it into the
// request context so error logs can carry the document id.
func docIDFromRequest(r *http.Request) (uuid.UUID, *http.Request, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, r, common.InvalidArgumentErrorf("invalid document id %q", raw)
	}
	return id, r.WithContext(common.WithDocumentID(r.Context(), id.String())), nil
}

// handleUpload accepts a multipart upload ("file" part) or, with a JSON body,
// registers an existing path on disk.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.Path == "" {
			s.writeError(w, r, common.InvalidArgumentError("path is required"))
			return
		}
		doc, err := s.ingest.RegisterPath(r.Context(), req.Path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, doc)
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, common.InvalidArgumentErrorf("parse multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.InvalidArgumentError("multipart part \"file\" is required"))
		return
	}
	defer file.Close()

	doc, err := s.ingest.RegisterUpload(r.Context(), header.Filename, file, s.cfg.UploadDir, s.cfg.MaxUploadBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.caster.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.orch.Start(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"documentId": id.String(), "state": "processing"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.orch.Stop(r.Context(), id)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"documentId": id.String(), "state": "stopping"})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.orch.Retry(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"documentId": id.String(), "state": "processing"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.exporter.ExportDocumentXLSX(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("http.export.write_failed", "doc_id", id.String(), "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.caster.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := repository.HealthCheck(r.Context(), s.db, 2*time.Second, s.logger); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
