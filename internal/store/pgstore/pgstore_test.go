package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/park285/cheese-social/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// Set TEST_DATABASE_URL to a disposable database to run these tests.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		ctx := context.Background()
		st, err := Open(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		require.NoError(t, st.Migrate(ctx))
		_, err = st.db.ExecContext(ctx, `TRUNCATE challenges, friend_relations, users`)
		require.NoError(t, err)
		require.NoError(t, st.AddUsers(ctx, storetest.Users...))
		return st
	})
}

func TestPairLockKeyIsOrderFree(t *testing.T) {
	if pairLockKey("bobby", "alice") != pairLockKey("alice", "bobby") {
		t.Fatalf("lock key depends on argument order")
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
