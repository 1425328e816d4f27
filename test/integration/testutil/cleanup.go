//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates all tables and resets the captured outbound traffic.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"login_attempts",
		"event_outbox",
		"admins",
		"users",
	}
	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE")
	}

	env.Mailer.Reset()
	env.Google.Reset()
}
