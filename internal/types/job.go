// Package types provides type definitions for the job catalog, user state,
// attribution records and push payloads shared across the govjob-alerts system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// NewJobWindow is how long after creation a job is flagged as new.
const NewJobWindow = 7 * 24 * time.Hour

// Job type constants
const (
	JobTypePermanent   = "permanent"
	JobTypeTemporary   = "temporary"
	JobTypeContractual = "contractual"
)

// Job represents a government job posting.
type Job struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Organization         string     `json:"organization"`
	Category             string     `json:"category"`
	Description          string     `json:"description"`
	Qualification        string     `json:"qualification"`
	AgeLimit             string     `json:"age_limit"`
	TotalVacancies       int        `json:"total_vacancies"`
	ApplicationStart     time.Time  `json:"application_start_date"`
	ApplicationEnd       *time.Time `json:"application_end_date,omitempty"` // nil means to be announced
	ExamDate             *time.Time `json:"exam_date,omitempty"`
	ApplicationFee       string     `json:"application_fee"`
	ApplyURL             string     `json:"apply_url"`
	Location             string     `json:"location"`
	Salary               *string    `json:"salary,omitempty"`
	JobType              string     `json:"job_type"`
	Tags                 []string   `json:"tags"`
	NotificationImageURL *string    `json:"notification_image_url,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`

	// Derived, never stored
	IsNew bool `json:"is_new"`
}

// IsNewAt reports whether the job was created within NewJobWindow of now.
func (j *Job) IsNewAt(now time.Time) bool {
	if j.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(j.CreatedAt) <= NewJobWindow
}

// Derive fills the derived fields relative to now.
func (j *Job) Derive(now time.Time) {
	j.IsNew = j.IsNewAt(now)
}

// DeriveAll fills derived fields on every job in place.
func DeriveAll(jobs []Job, now time.Time) {
	for i := range jobs {
		jobs[i].Derive(now)
	}
}

// ApplicationOpen reports whether applications are being accepted at t.
// A job with no end date stays open once started.
func (j *Job) ApplicationOpen(t time.Time) bool {
	if t.Before(j.ApplicationStart) {
		return false
	}
	if j.ApplicationEnd == nil {
		return true
	}
	return !t.After(*j.ApplicationEnd)
}

// NormalizeTags trims tags and drops empties and repeats, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}

// SplitTags parses the comma separated tag field used by admin forms.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(raw, ","))
}
