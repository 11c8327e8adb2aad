package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nibzard/agileflow-go/internal/ledger"
	"github.com/nibzard/agileflow-go/internal/requirements"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type requirementRequest struct {
	Requirement string `json:"requirement"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type requirementsResponse struct {
	Requirements []requirements.Requirement `json:"requirements"`
	Pending      int                        `json:"pending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Version:   s.version,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var summary Summary
	err := s.store.View(func(l *ledger.Ledger) error {
		summary = Summarize(l)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleNextTask(w http.ResponseWriter, r *http.Request) {
	task, ok, err := s.store.Next()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no pending tasks")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.reqs.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := requirementsResponse{Requirements: reqs}
	if resp.Requirements == nil {
		resp.Requirements = []requirements.Requirement{}
	}
	for _, req := range reqs {
		if !req.Converted {
			resp.Pending++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddRequirement(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRequirement(w, r)
	if !ok {
		return
	}
	req, err := s.reqs.Append(body.Requirement)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("requirement added", "timestamp", req.Timestamp, "chars", len([]rune(req.Text)))
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "requirement added to the pool"})
}

func (s *Server) handleConvertRequirement(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRequirement(w, r)
	if !ok {
		return
	}
	if err := s.reqs.MarkConverted(body.Requirement); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "requirement marked as converted"})
}

func (s *Server) handleDeleteRequirement(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRequirement(w, r)
	if !ok {
		return
	}
	if err := s.reqs.Delete(body.Requirement); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "requirement deleted"})
}

// decodeRequirement reads a {"requirement": "..."} body. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decodeRequirement(w http.ResponseWriter, r *http.Request) (requirementRequest, bool) {
	var body requirementRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return body, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return body, false
	}
	return body, true
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, requirements.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, requirements.ErrEmpty),
		errors.Is(err, requirements.ErrTooLong),
		errors.Is(err, requirements.ErrSeparator):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
