package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"meeting-insights-go/internal/processor"
	"meeting-insights-go/internal/registry"
)

// multipart framing allowance on top of the audio size limit
const formOverhead = 1 << 20

type uploadResponse struct {
	MeetingID string          `json:"meeting_id"`
	Status    registry.Status `json:"status"`
	Message   string          `json:"message"`
}

type statusResponse struct {
	MeetingID string          `json:"meeting_id"`
	Status    registry.Status `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  "healthy",
		"version": version,
		"jobs":    s.store.Len(),
	})
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "awake",
		"message":   "Server is ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.intake.MaxBytes()+formOverhead)
	filename, data, status, msg := s.readAudioPart(r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	job, err := s.intake.Submit(filename, data)
	switch {
	case errors.Is(err, processor.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, processor.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		s.log.WithRequest(r).WithField("error", err.Error()).Error("upload failed")
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		MeetingID: job.ID,
		Status:    job.Status,
		Message:   "Audio file uploaded successfully. Processing started.",
	})
}

// readAudioPart streams the multipart body and returns the audio_file part.
// The filename is checked before any of the part is read, and nothing is
// spooled to disk. A non-zero status means the request was rejected.
func (s *Server) readAudioPart(r *http.Request) (string, []byte, int, string) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, http.StatusBadRequest, "expected multipart form with audio_file"
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, http.StatusBadRequest, "missing audio_file"
		}
		if err != nil {
			return "", nil, uploadErrorStatus(err), s.uploadErrorMessage(err)
		}
		if part.FormName() != "audio_file" {
			part.Close()
			continue
		}
		defer part.Close()

		filename := part.FileName()
		if filename == "" {
			return "", nil, http.StatusBadRequest, "missing audio_file"
		}
		if !processor.SupportedAudio(filename) {
			return "", nil, http.StatusBadRequest, processor.ErrUnsupportedFormat.Error()
		}

		limit := s.intake.MaxBytes()
		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return "", nil, uploadErrorStatus(err), s.uploadErrorMessage(err)
		}
		if err := s.intake.CheckSize(int64(len(data))); err != nil {
			return "", nil, http.StatusRequestEntityTooLarge, err.Error()
		}
		return filename, data, 0, ""
	}
}

func uploadErrorStatus(err error) int {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) uploadErrorMessage(err error) string {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return s.intake.CheckSize(s.intake.MaxBytes() + 1).Error()
	}
	return "could not read audio_file"
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	resp := statusResponse{
		MeetingID: job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
	}
	if job.Status == registry.StatusFailed {
		resp.Message = job.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	job, ok := s.completed(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.Results)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.completed(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=meeting_%s.txt", job.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, job.Results.TextOutputs.CombinedReport)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Meeting data deleted successfully"})
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.lookup(w, r); !ok {
		return
	}
	given, err := strconv.ParseBool(r.URL.Query().Get("consent_given"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "consent_given must be true or false")
		return
	}

	if !given {
		if err := s.store.Delete(id); err != nil {
			writeError(w, http.StatusNotFound, "Meeting not found")
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Meeting data deleted per user request"})
		return
	}
	if err := s.store.RecordConsent(id); err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Consent recorded"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (registry.Job, bool) {
	job, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return registry.Job{}, false
	}
	return job, true
}

func (s *Server) completed(w http.ResponseWriter, r *http.Request) (registry.Job, bool) {
	job, ok := s.lookup(w, r)
	if !ok {
		return job, false
	}
	if job.Status != registry.StatusCompleted || job.Results == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Meeting processing not completed. Status: %s", job.Status))
		return job, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
