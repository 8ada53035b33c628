package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/mikailyan/moscow-zoo-bot/internal/app"
	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/postgres"
	pgmigrations "github.com/mikailyan/moscow-zoo-bot/internal/infra/postgres/migrations"
	infraredis "github.com/mikailyan/moscow-zoo-bot/internal/infra/redis"
	"github.com/mikailyan/moscow-zoo-bot/internal/scoring"
)

func TestTotemQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	catalogs := postgres.NewCatalogStore(pool)
	if err := catalogs.SaveCatalog(ctx, catalog.TotemDefinition()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	// Saving twice must upsert, not fail.
	if err := catalogs.SaveCatalog(ctx, catalog.TotemDefinition()); err != nil {
		t.Fatalf("reseed catalog: %v", err)
	}
	if _, err := catalog.Load(ctx, catalogs, "missing"); err == nil {
		t.Fatalf("expected missing catalog error")
	}

	cat, err := catalog.Load(ctx, catalogs, catalog.TotemID)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if cat.Len() != 3 || len(cat.Categories()) != 7 {
		t.Fatalf("unexpected catalog shape: %d questions, %d categories", cat.Len(), len(cat.Categories()))
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute, time.Minute, nil)
	engine := app.NewQuizEngine(cat, store, scoring.FirstPick{})

	if _, err := engine.OnStart(ctx, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	var effect domain.Effect
	for q := 0; q < cat.Len(); q++ {
		effect, err = engine.OnAnswer(ctx, "u1", q, 1)
		if err != nil {
			t.Fatalf("answer %d: %v", q, err)
		}
	}
	if effect.Kind != domain.EffectPresentResult {
		t.Fatalf("expected result, got %s", effect.Kind)
	}
	if effect.Result.Winner != catalog.Elephant {
		t.Fatalf("expected elephant, got %s (tally %+v)", effect.Result.Winner, effect.Result.Tally)
	}

	// Close writes the queued markers.
	store.Close()
	phase, err := redisClient.HGet(ctx, "quiz:session:u1", "phase").Result()
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if phase != string(domain.PhaseCompleted) {
		t.Fatalf("expected completed marker, got %q", phase)
	}
	ttl, err := redisClient.TTL(ctx, "quiz:session:u1").Result()
	if err != nil {
		t.Fatalf("read ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected completed ttl within grace, got %s", ttl)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "zoo", "POSTGRES_PASSWORD": "zoopass", "POSTGRES_DB": "zoo"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://zoo:zoopass@%s/zoo?sslmode=disable", addr), cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	return "redis://" + addr, cleanup
}

// startContainer runs req and returns host:port of its first exposed port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	cleanup := func() { _ = container.Terminate(ctx) }

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatalf("%s host: %v", req.Image, err)
	}
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		cleanup()
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return net.JoinHostPort(host, port.Port()), cleanup
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
