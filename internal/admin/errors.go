package admin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a category or job does not exist.
var ErrNotFound = errors.New("not found")

// ErrCategoryExists is returned when creating a category whose id is taken.
var ErrCategoryExists = errors.New("category already exists")

// ValidationError lists every problem found in a submitted form.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// CategoryInUseError refuses deletion of a category that jobs still reference.
type CategoryInUseError struct {
	CategoryID string
	JobCount   int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("cannot delete category '%s' because it has %d job(s) assigned to it", e.CategoryID, e.JobCount)
}
