package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/govjob-alerts/internal/types"
)

type jobsResponse struct {
	Jobs  []types.Job `json:"jobs"`
	Count int         `json:"count"`
}

type categoriesResponse struct {
	Categories []types.JobCategory `json:"categories"`
	Count      int                 `json:"count"`
}

// handleListPublicJobs serves every job, newest first. ?category= narrows
// the list without touching the cache entry.
func (s *Server) handleListPublicJobs(w http.ResponseWriter, r *http.Request) {
	var resp jobsResponse
	if !s.cache.get(r.Context(), cacheKeyJobs, &resp) {
		jobs, err := s.admin.ListJobs(r.Context())
		if err != nil {
			s.serviceError(w, err)
			return
		}
		resp = jobsResponse{Jobs: jobs, Count: len(jobs)}
		s.cache.set(r.Context(), cacheKeyJobs, resp)
	}

	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filtered := make([]types.Job, 0, len(resp.Jobs))
		for _, job := range resp.Jobs {
			if job.Category == category {
				filtered = append(filtered, job)
			}
		}
		resp = jobsResponse{Jobs: filtered, Count: len(filtered)}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetPublicJob(w http.ResponseWriter, r *http.Request) {
	key := cacheKeyJobPrefix + r.PathValue("id")

	var job types.Job
	if s.cache.get(r.Context(), key, &job) {
		s.jsonResponse(w, http.StatusOK, job)
		return
	}

	found, err := s.admin.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.cache.set(r.Context(), key, found)
	s.jsonResponse(w, http.StatusOK, found)
}

func (s *Server) handleListPublicCategories(w http.ResponseWriter, r *http.Request) {
	var resp categoriesResponse
	if !s.cache.get(r.Context(), cacheKeyCategories, &resp) {
		categories, err := s.admin.ListCategories(r.Context())
		if err != nil {
			s.serviceError(w, err)
			return
		}
		resp = categoriesResponse{Categories: categories, Count: len(categories)}
		s.cache.set(r.Context(), cacheKeyCategories, resp)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
