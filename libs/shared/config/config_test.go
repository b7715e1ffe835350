package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("APPROVER_CACHE_TTL", "")

	c := fromEnv()
	assert.Equal(t, StoragePostgres, c.StorageDriver)
	assert.Equal(t, 5*time.Minute, c.ApproverCacheTTL)
	assert.Equal(t, 300*time.Millisecond, c.SearchDebounce)
	assert.False(t, c.UsesMongo())
}

func TestDurationsAcceptSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("HTTP_CLIENT_TIMEOUT", "3")
	t.Setenv("APPROVER_CACHE_TTL", "90s")
	t.Setenv("SEARCH_DEBOUNCE", "not-a-duration")

	c := fromEnv()
	assert.Equal(t, 3*time.Second, c.HTTPClientTimeout)
	assert.Equal(t, 90*time.Second, c.ApproverCacheTTL)
	assert.Equal(t, 300*time.Millisecond, c.SearchDebounce)
}

func TestServiceScopedValues(t *testing.T) {
	t.Setenv("MATAPANG_FORM_HTTP_PORT", "9101")
	t.Setenv("FORM_DATABASE_DSN", "postgres://form")
	t.Setenv("STORAGE_DRIVER", "Mongo")
	t.Setenv("HTTP_PORT", "unset")
	os.Unsetenv("HTTP_PORT")

	c := fromEnv()
	assert.Equal(t, "9101", c.ResolveServiceHTTPPort("form", "8081"))
	assert.Equal(t, "8082", c.ResolveServiceHTTPPort("identity", "8082"))
	assert.Equal(t, "postgres://form", c.DatabaseDSN("form"))
	assert.Equal(t, c.PostgresDSN, c.DatabaseDSN("identity"))
	assert.True(t, c.UsesMongo())
}

func TestKafkaBrokerList(t *testing.T) {
	c := &AppConfig{KafkaBrokers: " a:9092, ,b:9092 "}
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokerList())

	var missing *AppConfig
	assert.Nil(t, missing.KafkaBrokerList())
	assert.Equal(t, "8080", missing.ResolveServiceHTTPPort("form", ""))
}
