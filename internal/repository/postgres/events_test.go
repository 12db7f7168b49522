package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/smbv/pkg/models"
)

// setupDatabase starts a PostgreSQL container and returns an open handle
func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("smbv_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

func TestEventRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupDatabase(t)
	repo := NewPostgresEventRepository(db)
	ctx := context.Background()

	freq, power := 2.87e9, -20.0
	start, stop, points := 1e9, 2e9, 5
	base := time.Now().UTC().Truncate(time.Millisecond)

	cwOn := &models.OutputEvent{
		ID:        uuid.New().String(),
		Kind:      models.EventCWOn,
		Model:     "SMBV100A",
		Frequency: &freq,
		Power:     &power,
		CreatedAt: base,
	}
	scan := &models.OutputEvent{
		ID:        uuid.New().String(),
		Kind:      models.EventScanStart,
		Model:     "SMBV100A",
		Start:     &start,
		Stop:      &stop,
		Points:    &points,
		Power:     &power,
		CreatedAt: base.Add(time.Second),
	}
	off := &models.OutputEvent{
		ID:        uuid.New().String(),
		Kind:      models.EventOff,
		Model:     "SMBV100A",
		CreatedAt: base.Add(2 * time.Second),
	}

	for _, e := range []*models.OutputEvent{cwOn, scan, off} {
		require.NoError(t, repo.Record(ctx, e))
	}

	events, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, off.ID, events[0].ID)
	assert.Nil(t, events[0].Frequency)
	assert.Nil(t, events[0].Points)

	assert.Equal(t, scan.ID, events[1].ID)
	assert.Equal(t, models.EventScanStart, events[1].Kind)
	require.NotNil(t, events[1].Points)
	assert.Equal(t, 5, *events[1].Points)
	assert.Equal(t, 1e9, *events[1].Start)
	assert.True(t, scan.CreatedAt.Equal(events[1].CreatedAt))

	// schema creation is idempotent
	require.NoError(t, EnsureSchema(ctx, db))
}
