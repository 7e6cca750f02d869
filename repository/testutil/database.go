package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"casino/database"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	adminDatabase = "casino_test"
	testUser      = "test_user"
	testPassword  = "test_password"
)

// TestDatabase is a freshly migrated database owned by one test
type TestDatabase struct {
	Name string
	DB   *database.DB
	URL  string
}

// cluster is the postgres container shared by every test in the process
type cluster struct {
	container *postgres.PostgresContainer
	baseURL   string
	adminURL  string
}

var (
	shared     *cluster
	sharedErr  error
	sharedOnce sync.Once
	databaseID atomic.Int64
)

// SetupTestDatabase creates an isolated, migrated database inside a shared
// postgres container. Tests may run in parallel. Skipped under -short since
// it needs a Docker daemon.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	sharedOnce.Do(func() {
		shared, sharedErr = startCluster(context.Background())
	})
	require.NoError(t, sharedErr, "postgres container unavailable")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	name := fmt.Sprintf("casino_%d_%d", time.Now().Unix(), databaseID.Add(1))
	require.NoError(t, shared.exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()))

	url := database.ConstructDatabaseURL(shared.baseURL, name)
	require.NoError(t, database.RunMigrationsWithURL(url))

	db, err := database.NewConnection(ctx, url)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		dropCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := shared.exec(dropCtx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)"); err != nil {
			t.Logf("Warning: failed to drop test database %s: %v", name, err)
		}
	})

	return &TestDatabase{Name: name, DB: db, URL: url}
}

// Terminate stops the shared container. Call it from TestMain after m.Run.
func Terminate() {
	if shared == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shared.container.Terminate(ctx)
}

func startCluster(ctx context.Context) (*cluster, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(adminDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":    "casino-repository",
			"cleanup": "auto",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve container port: %w", err)
	}

	baseURL := fmt.Sprintf("postgres://%s:%s@%s:%s", testUser, testPassword, host, port.Port())
	return &cluster{
		container: container,
		baseURL:   baseURL,
		adminURL:  database.ConstructDatabaseURL(baseURL, adminDatabase),
	}, nil
}

// exec runs a statement against the admin database on its own connection
func (c *cluster) exec(ctx context.Context, statement string) error {
	conn, err := pgx.Connect(ctx, c.adminURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, statement)
	return err
}
