//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/govjob-alerts/internal/types"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return db
}

func testCategoryID() string {
	return "it-" + uuid.NewString()[:8]
}

func TestIntegration_CategoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := testCategoryID()

	c := &types.JobCategory{ID: id, Name: "Integration", Icon: "🧪", Description: "test", Color: "#123456"}
	require.NoError(t, db.InsertCategory(ctx, c))

	got, err := db.GetCategory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Integration", got.Name)
	assert.Equal(t, 0, got.TotalJobs)

	c.Name = "Integration Renamed"
	require.NoError(t, db.UpdateCategory(ctx, c))
	got, err = db.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Integration Renamed", got.Name)

	require.NoError(t, db.DeleteCategory(ctx, id))
	got, err = db.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIntegration_JobLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	catID := testCategoryID()
	require.NoError(t, db.InsertCategory(ctx, &types.JobCategory{ID: catID, Name: "Jobs", Icon: "x", Description: "d", Color: "#abcdef"}))

	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	job := &types.Job{
		ID:               uuid.NewString(),
		Title:            "Clerk",
		Organization:     "SBI",
		Category:         catID,
		TotalVacancies:   10,
		ApplicationStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ApplicationEnd:   &end,
		JobType:          types.JobTypePermanent,
		Tags:             []string{"bank", "clerk"},
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, db.InsertJob(ctx, job))

	got, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"bank", "clerk"}, got.Tags)
	require.NotNil(t, got.ApplicationEnd)
	assert.True(t, end.Equal(*got.ApplicationEnd))
	assert.Nil(t, got.ExamDate)
	assert.Nil(t, got.Salary)

	count, err := db.CountJobsInCategory(ctx, catID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the foreign key refuses to orphan the job
	assert.Error(t, db.DeleteCategory(ctx, catID))

	job.Title = "Senior Clerk"
	require.NoError(t, db.UpdateJob(ctx, job))
	got, err = db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Clerk", got.Title)

	require.NoError(t, db.DeleteJob(ctx, job.ID))
	require.NoError(t, db.DeleteCategory(ctx, catID))

	missing, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIntegration_Admins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	email := "admin-" + uuid.NewString() + "@example.com"

	exists, err := db.AdminEmailExists(ctx, email)
	require.NoError(t, err)
	assert.False(t, exists)

	id, err := db.CreateAdmin(ctx, " "+email+" ", "hash")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	admin, err := db.GetAdminByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, id, admin.ID)
	assert.Equal(t, "hash", admin.PasswordHash)

	none, err := db.GetAdminByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}
