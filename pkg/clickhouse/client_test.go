package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "perpdesk",
		User:         "desk",
		Password:     "p@ss",
		UseHTTP:      true,
		DialTimeout:  2 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:8123", u.Host)
	assert.Equal(t, "/perpdesk", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)

	q := u.Query()
	assert.Equal(t, "http", q.Get("protocol"))
	assert.Equal(t, "2s", q.Get("dial_timeout"))
	assert.Equal(t, "30", q.Get("max_execution_time"))
	assert.Equal(t, "1", q.Get("wait_for_async_insert"))
	assert.Empty(t, q.Get("read_timeout"))
}

func TestBuildDSNNativeDefaults(t *testing.T) {
	u, err := url.Parse(buildDSN(ClientConfig{Host: "localhost", Port: 9000, Database: "default", User: "default"}))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("protocol"))
	assert.Empty(t, u.Query().Get("async_insert"))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.ErrorContains(t, err, "host is required")
}
