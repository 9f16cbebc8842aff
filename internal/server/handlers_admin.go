package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/admin"
	"github.com/jonathan/govjob-alerts/internal/server/middleware"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// audit logs a write with the acting admin.
func (s *Server) audit(r *http.Request, action string, fields ...zap.Field) {
	adminID, _ := middleware.GetAdminID(r)
	s.logger.Info(action, append(fields, zap.Stringer("admin_id", adminID))...)
}

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.admin.ListCategories(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"categories": categories, "count": len(categories)})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.admin.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, category)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var form admin.CategoryForm
	if !s.decode(w, r, &form) {
		return
	}
	category, err := s.admin.CreateCategory(r.Context(), form)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context())
	s.audit(r, "category created", zap.String("category", category.ID))
	s.jsonResponse(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var upd admin.CategoryUpdate
	if !s.decode(w, r, &upd) {
		return
	}
	category, err := s.admin.UpdateCategory(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context())
	s.audit(r, "category updated", zap.String("category", category.ID))
	s.jsonResponse(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.admin.DeleteCategory(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context())
	s.audit(r, "category deleted", zap.String("category", id))
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Jobs
// -----------------------------------------------------------------------------

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.admin.ListJobs(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.admin.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var form admin.JobForm
	if !s.decode(w, r, &form) {
		return
	}
	job, err := s.admin.CreateJob(r.Context(), form)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), job.ID)
	s.audit(r, "job created", zap.String("job_id", job.ID), zap.String("category", job.Category))
	s.jsonResponse(w, http.StatusCreated, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var form admin.JobForm
	if !s.decode(w, r, &form) {
		return
	}
	job, err := s.admin.UpdateJob(r.Context(), r.PathValue("id"), form)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), job.ID)
	s.audit(r, "job updated", zap.String("job_id", job.ID))
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.admin.DeleteJob(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), id)
	s.audit(r, "job deleted", zap.String("job_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var req types.TestNotificationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Topic, title and body are required")
		return
	}
	if s.notifier == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "push delivery is not configured")
		return
	}

	messageID, err := s.notifier.SendTest(r.Context(), req)
	if err != nil {
		s.logger.Error("test notification failed", zap.String("topic", req.Topic), zap.Error(err))
		s.errorResponse(w, http.StatusBadGateway, "failed to send notification")
		return
	}
	s.audit(r, "test notification sent", zap.String("topic", req.Topic), zap.String("message_id", messageID))
	s.jsonResponse(w, http.StatusOK, map[string]string{"message_id": messageID})
}
