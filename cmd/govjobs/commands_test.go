package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/schemas"
	"github.com/jonathan/govjob-alerts/internal/types"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "fanout", "device", "admin", "schema"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub, _, err := rootCmd.Find([]string{"device", "open-link"})
	require.NoError(t, err)
	assert.Equal(t, "open-link", sub.Name())

	sub, _, err = rootCmd.Find([]string{"admin", "seed-categories"})
	require.NoError(t, err)
	assert.Equal(t, "seed-categories", sub.Name())
}

func TestLoadDeviceConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := loadDeviceConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultStatePath, cfg.StatePath)
	assert.Equal(t, config.DefaultPlatform, cfg.Platform)
	assert.Equal(t, config.DefaultRefreshSpec, cfg.RefreshSpec)
}

func TestLoadDeviceConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform: ios\nnotifications_allowed: true\npush_token: tok-1\n"), 0o600))

	cfg, err := loadDeviceConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ios", cfg.Platform)
	assert.True(t, cfg.NotificationsAllowed)
	assert.Equal(t, "tok-1", cfg.PushToken)
	assert.Equal(t, "govjob-alerts-ios", cfg.MarketingAppID)
}

func TestLoadDeviceConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"platform":"windows"}`), 0o600))

	_, err := loadDeviceConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform")
}

func TestBuildJobPush(t *testing.T) {
	msg := buildJobPush("job-1", "ssc", "New job", "SSC CGL")
	assert.Equal(t, "job-1", msg.JobID())
	assert.Equal(t, "ssc", msg.Category())
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "New job", msg.Notification.Title)

	noCategory := buildJobPush("job-2", "", "t", "")
	assert.Empty(t, noCategory.Category())
}

func TestDescribeRoute(t *testing.T) {
	tests := []struct {
		name  string
		route navigation.Route
		want  string
	}{
		{"dropped", navigation.Route{}, "(dropped)"},
		{"main", navigation.Route{Screen: navigation.ScreenMain}, "MainTabs"},
		{"job", navigation.Route{Screen: navigation.ScreenJobDetail, Job: &types.Job{ID: "j1"}}, "JobDetail job=j1"},
		{"category", navigation.Route{Screen: navigation.ScreenCategoryJobs, Category: &types.JobCategory{ID: "ssc"}}, "CategoryJobs category=ssc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeRoute(tt.route))
		})
	}
}

const validPush = `{
  "topic": "jobs-ssc",
  "notification": {"title": "🚀 New SSC Job!", "body": "CGL 2026"},
  "data": {"jobId": "j1", "category": "ssc", "title": "CGL 2026", "organization": "SSC", "type": "new_job"}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateDocument_Embedded(t *testing.T) {
	require.NoError(t, validateDocument("push_message", writeFile(t, "push.json", validPush)))

	err := validateDocument("push_message", writeFile(t, "bad.json", `{"topic":"general"}`))
	var validationErr *schemas.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidateDocument_SchemaFile(t *testing.T) {
	schema := writeFile(t, "schema.json", `{"type":"object","required":["id"]}`)

	require.NoError(t, validateDocument(schema, writeFile(t, "ok.json", `{"id":"x"}`)))
	assert.Error(t, validateDocument(schema, writeFile(t, "missing.json", `{}`)))
}

func TestSchemaValidateCommand_Output(t *testing.T) {
	var out, errOut bytes.Buffer
	schemaValidateCmd.SetOut(&out)
	schemaValidateCmd.SetErr(&errOut)
	t.Cleanup(func() {
		schemaValidateCmd.SetOut(nil)
		schemaValidateCmd.SetErr(nil)
	})

	schemaName = "push_message"
	schemaJSON = writeFile(t, "push.json", validPush)
	require.NoError(t, runSchemaValidate(schemaValidateCmd, nil))
	assert.Contains(t, out.String(), "is valid")

	schemaJSON = writeFile(t, "bad.json", `{"topic":"jobs-ssc"}`)
	err := runSchemaValidate(schemaValidateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "notification")
}

func TestTestNotifier_DisabledWithoutProject(t *testing.T) {
	notifier, err := testNotifier(context.Background(), &config.ServerConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, notifier)
}
