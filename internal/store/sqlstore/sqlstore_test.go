package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/store"
)

type student struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "")
	require.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "whatever")
	require.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))

	versions, err := s.MigrationsApplied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_collections.sql", "002_sessions.sql"}, versions)
}

func TestStore_LoadMissingCollection(t *testing.T) {
	s := openSQLite(t)

	data, err := s.Load(context.Background(), store.Roster)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_ReplaceAndRead(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	first := []student{{Name: "Ava", RegNo: "S001"}}
	require.NoError(t, store.Replace(ctx, s, store.Roster, first))

	second := []student{{Name: "Ava", RegNo: "S001"}, {Name: "Ben", RegNo: "S002"}}
	require.NoError(t, store.Replace(ctx, s, store.Roster, second))

	got := store.Read[student](ctx, s, store.Roster)
	assert.Equal(t, second, got)

	// other collections are untouched
	assert.Empty(t, store.Read[student](ctx, s, store.Ledger))
}

func TestStore_CorruptPayloadReadsEmpty(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, store.Ledger, []byte("{not json")))

	got := store.Read[student](ctx, s, store.Ledger)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records := make([]student, i+1)
			assert.NoError(t, store.Replace(ctx, s, store.Ledger, records))
		}(i)
	}
	wg.Wait()

	got := store.Read[student](ctx, s, store.Ledger)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 10)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	s := openSQLite(t)
	repo := NewSessionRepository(s)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Save(ctx, "live", "admin", now, now.Add(time.Hour)))
	require.NoError(t, repo.Save(ctx, "stale", "admin", now.Add(-2*time.Hour), now.Add(-time.Hour)))

	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), got.ExpiresAt.Unix())

	expired, err := repo.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, expired)

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "live"))
	gone, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, stmts)
}
