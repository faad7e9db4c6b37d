package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupMySQL поднимает MySQL в контейнере и возвращает DSN в формате
// go-sql-driver. Пропускает тест в режиме -short и когда Docker недоступен.
func SetupMySQL(t *testing.T) (string, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("mysql integration tests are skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	myContainer, err := mysql.Run(ctx,
		"mysql:8.0.36",
		mysql.WithDatabase("todobot"),
		mysql.WithUsername("testuser"),
		mysql.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start mysql container: %v", err)
	}

	dsn, err := myContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	cleanup := func() {
		if err := myContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return dsn, cleanup
}
