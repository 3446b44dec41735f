package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `
ecs:
  cluster: example-cluster
  service: example-service
  pollingIntervalSeconds: 10
  timeoutSeconds: 600
prune:
  familyPrefix: web
  keepLatest: 5
  delete: true
variables:
  arns:
    - arn:aws:secretsmanager:us-east-1:123456789012:secret:app/config-AbCdEf
    - arn:aws:ssm:us-east-1:123456789012:parameter/app/config
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "example-cluster", cfg.ECS.Cluster)
	assert.Equal(t, "example-service", cfg.ECS.Service)
	assert.Equal(t, 10, cfg.ECS.PollingIntervalSeconds)
	assert.Equal(t, 600, cfg.ECS.TimeoutSeconds)
	assert.Equal(t, "web", cfg.Prune.FamilyPrefix)
	assert.Equal(t, 5, cfg.Prune.KeepLatest)
	assert.True(t, cfg.Prune.Delete)
	assert.Len(t, cfg.Variables.ARNs, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := writeConfig(t, "ecs: [not a mapping")
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative polling interval", "ecs:\n  pollingIntervalSeconds: -1\n"},
		{"negative timeout", "ecs:\n  timeoutSeconds: -1\n"},
		{"negative keep latest", "prune:\n  keepLatest: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.content)
			_, err := Load(dir)
			assert.ErrorContains(t, err, "must be positive")
		})
	}
}
