//go:build integration

package embedcache

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := sql.Open("postgres", fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_PutGet(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	c, err := NewPostgres(ctx, db)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, HashImage([]byte("photo")))
	require.NoError(t, err)
	assert.False(t, ok)

	hash := HashImage([]byte("photo"))
	require.NoError(t, c.Put(ctx, hash, []float32{0.5, 0.25}))
	require.NoError(t, c.Put(ctx, hash, []float32{0.75, 0.25}))

	emb, ok, err := c.Get(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.75, 0.25}, emb)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
