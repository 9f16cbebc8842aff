package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// -----------------------------------------------------------------------------
// Category Methods
// -----------------------------------------------------------------------------

// ListCategories returns all categories ordered by name. TotalJobs is counted
// from the jobs table.
func (db *DB) ListCategories(ctx context.Context) ([]types.JobCategory, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.name, c.icon, c.description, c.color, COUNT(j.id)
		 FROM categories c
		 LEFT JOIN jobs j ON j.category = c.id
		 GROUP BY c.id
		 ORDER BY c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []types.JobCategory{}
	for rows.Next() {
		var c types.JobCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.Color, &c.TotalJobs); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by id, or nil if it does not exist.
func (db *DB) GetCategory(ctx context.Context, id string) (*types.JobCategory, error) {
	var c types.JobCategory
	err := db.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.icon, c.description, c.color,
		        (SELECT COUNT(*) FROM jobs j WHERE j.category = c.id)
		 FROM categories c WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.Color, &c.TotalJobs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// InsertCategory creates a category.
func (db *DB) InsertCategory(ctx context.Context, c *types.JobCategory) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO categories (id, name, icon, description, color)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Icon, c.Description, c.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// UpdateCategory updates the mutable fields of a category. The id is never changed.
func (db *DB) UpdateCategory(ctx context.Context, c *types.JobCategory) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE categories
		 SET name = $2, icon = $3, description = $4, color = $5, updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.Name, c.Icon, c.Description, c.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("category not found: %s", c.ID)
	}
	return nil
}

// DeleteCategory deletes a category. The jobs foreign key refuses the
// delete while any job references it.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// CountJobsInCategory counts the jobs referencing a category.
func (db *DB) CountJobsInCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE category = $1`,
		categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// SeedCategories inserts categories that do not exist yet and returns how
// many were added.
func (db *DB) SeedCategories(ctx context.Context, categories []types.JobCategory) (int, error) {
	added := 0
	for _, c := range categories {
		result, err := db.pool.Exec(ctx,
			`INSERT INTO categories (id, name, icon, description, color)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Icon, c.Description, c.Color,
		)
		if err != nil {
			return added, fmt.Errorf("failed to seed category %s: %w", c.ID, err)
		}
		added += int(result.RowsAffected())
	}
	return added, nil
}
