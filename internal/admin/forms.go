package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// DateLayout is the date format used by form date fields.
const DateLayout = "2006-01-02"

// CategoryForm is the create-category form.
type CategoryForm struct {
	ID          string `json:"id" validate:"required,category_id"`
	Name        string `json:"name" validate:"required"`
	Icon        string `json:"icon" validate:"required"`
	Description string `json:"description" validate:"required"`
	Color       string `json:"color" validate:"required,hex_color"`
}

// CategoryUpdate carries the fields to change. Nil or blank fields are left
// untouched. The id cannot be changed.
type CategoryUpdate struct {
	Name        *string `json:"name,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hex_color"`
}

// JobForm is the create and edit job form. Dates use DateLayout or RFC 3339
// and tags are comma separated.
type JobForm struct {
	Title                string `json:"title" validate:"required"`
	Organization         string `json:"organization" validate:"required"`
	Category             string `json:"category" validate:"required,category_id"`
	Description          string `json:"description" validate:"required"`
	Qualification        string `json:"qualification" validate:"required"`
	AgeLimit             string `json:"age_limit" validate:"required"`
	TotalVacancies       int    `json:"total_vacancies" validate:"gte=0"`
	JobType              string `json:"job_type" validate:"required,oneof=permanent temporary contractual"`
	ApplicationStartDate string `json:"application_start_date" validate:"required,form_date"`
	ApplicationEndDate   string `json:"application_end_date" validate:"omitempty,form_date"`
	ExamDate             string `json:"exam_date" validate:"omitempty,form_date"`
	ApplicationFee       string `json:"application_fee" validate:"required"`
	Salary               string `json:"salary"`
	Location             string `json:"location" validate:"required"`
	ApplyURL             string `json:"apply_url" validate:"required,url"`
	NotificationImageURL string `json:"notification_image_url" validate:"omitempty,url"`
	Tags                 string `json:"tags"`
}

var messages = map[string]string{
	"CategoryForm.ID.required":          "Category ID is required",
	"CategoryForm.ID.category_id":       "Category ID must contain only lowercase letters, numbers, underscores, and dashes",
	"CategoryForm.Name.required":        "Category name is required",
	"CategoryForm.Icon.required":        "Category icon is required",
	"CategoryForm.Description.required": "Category description is required",
	"CategoryForm.Color.required":       "Category color is required",
	"CategoryForm.Color.hex_color":      "Category color must be a valid hex color (e.g., #ff0000)",
	"CategoryUpdate.Color.hex_color":    "Category color must be a valid hex color (e.g., #ff0000)",

	"JobForm.Title.required":                 "Job title is required",
	"JobForm.Organization.required":          "Organization is required",
	"JobForm.Category.required":              "Category is required",
	"JobForm.Category.category_id":           "Category must contain only lowercase letters, numbers, underscores, and dashes",
	"JobForm.Description.required":           "Description is required",
	"JobForm.Qualification.required":         "Qualification is required",
	"JobForm.AgeLimit.required":              "Age limit is required",
	"JobForm.TotalVacancies.gte":             "Total vacancies cannot be negative",
	"JobForm.JobType.required":               "Job type is required",
	"JobForm.JobType.oneof":                  "Job type must be permanent, temporary or contractual",
	"JobForm.ApplicationStartDate.required":  "Start date is required",
	"JobForm.ApplicationStartDate.form_date": "Start date must be a valid date",
	"JobForm.ApplicationEndDate.form_date":   "End date must be a valid date",
	"JobForm.ExamDate.form_date":             "Exam date must be a valid date",
	"JobForm.ApplicationFee.required":        "Application fee is required",
	"JobForm.Location.required":              "Location is required",
	"JobForm.ApplyURL.required":              "Apply URL is required",
	"JobForm.ApplyURL.url":                   "Apply URL must be a valid URL",
	"JobForm.NotificationImageURL.url":       "Notification image URL must be a valid URL",
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category_id", func(fl validator.FieldLevel) bool {
		return types.CategoryIDPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("hex_color", func(fl validator.FieldLevel) bool {
		return types.HexColorPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("form_date", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// check runs struct validation and turns field errors into readable problems.
func check(v *validator.Validate, form any) []string {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fe.StructNamespace() + "." + fe.Tag()
		if msg, ok := messages[key]; ok {
			problems = append(problems, msg)
			continue
		}
		problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return problems
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseOptionalDate(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// toJob builds a job from a validated form.
func (f *JobForm) toJob() (*types.Job, []string) {
	start, err := parseDate(f.ApplicationStartDate)
	if err != nil {
		return nil, []string{"Start date must be a valid date"}
	}
	job := &types.Job{
		Title:                strings.TrimSpace(f.Title),
		Organization:         strings.TrimSpace(f.Organization),
		Category:             strings.TrimSpace(f.Category),
		Description:          strings.TrimSpace(f.Description),
		Qualification:        strings.TrimSpace(f.Qualification),
		AgeLimit:             strings.TrimSpace(f.AgeLimit),
		TotalVacancies:       f.TotalVacancies,
		ApplicationStart:     start,
		ApplicationEnd:       parseOptionalDate(f.ApplicationEndDate),
		ExamDate:             parseOptionalDate(f.ExamDate),
		ApplicationFee:       strings.TrimSpace(f.ApplicationFee),
		ApplyURL:             strings.TrimSpace(f.ApplyURL),
		Location:             strings.TrimSpace(f.Location),
		Salary:               optionalString(f.Salary),
		JobType:              f.JobType,
		Tags:                 types.SplitTags(f.Tags),
		NotificationImageURL: optionalString(f.NotificationImageURL),
	}
	if job.ApplicationEnd != nil && job.ApplicationEnd.Before(job.ApplicationStart) {
		return nil, []string{"End date cannot be before the start date"}
	}
	return job, nil
}
