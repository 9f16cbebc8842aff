package types

import "regexp"

var (
	// CategoryIDPattern restricts category identifiers.
	CategoryIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	// HexColorPattern matches a 6-digit hex color.
	HexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// JobCategory groups jobs for browsing and topic subscriptions.
type JobCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Color       string `json:"color"`

	// TotalJobs is derived from the job set on read
	TotalJobs int `json:"total_jobs"`
}

// CountJobs sets TotalJobs on each category from jobs and returns the slice.
func CountJobs(categories []JobCategory, jobs []Job) []JobCategory {
	counts := make(map[string]int, len(categories))
	for _, job := range jobs {
		counts[job.Category]++
	}
	for i := range categories {
		categories[i].TotalJobs = counts[categories[i].ID]
	}
	return categories
}

// DefaultCategories is the built-in category list used before the remote
// list has been loaded.
func DefaultCategories() []JobCategory {
	return []JobCategory{
		{ID: "banking", Name: "Banking", Icon: "🏦", Description: "Bank PO, Clerk, Specialist Officer positions", Color: "#1976D2"},
		{ID: "ssc", Name: "SSC", Icon: "📋", Description: "Staff Selection Commission exams and jobs", Color: "#388E3C"},
		{ID: "railway", Name: "Railway", Icon: "🚂", Description: "Indian Railway recruitment and exams", Color: "#FF5722"},
		{ID: "defence", Name: "Defence", Icon: "🛡️", Description: "Army, Navy, Air Force recruitment", Color: "#795548"},
		{ID: "teaching", Name: "Teaching", Icon: "📚", Description: "Teacher recruitment, TET, NET exams", Color: "#9C27B0"},
		{ID: "state_govt", Name: "State Govt", Icon: "🏛️", Description: "State government job notifications", Color: "#607D8B"},
		{ID: "psu", Name: "PSU", Icon: "🏭", Description: "Public Sector Undertaking jobs", Color: "#FF9800"},
		{ID: "police", Name: "Police", Icon: "👮", Description: "Police recruitment and constable posts", Color: "#3F51B5"},
	}
}
