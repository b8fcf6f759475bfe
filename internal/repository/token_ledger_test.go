package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLedger(t *testing.T) (*TokenLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewTokenLedger(rdb), mr
}

func TestRecordAndExists(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Record(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	for _, tok := range []string{"acc1", "ref1"} {
		ok, err := ledger.Exists(ctx, "alice@example.com", tok, "jit1")
		if err != nil {
			t.Fatalf("Exists(%s): %v", tok, err)
		}
		if !ok {
			t.Fatalf("Exists(%s) = false after Record", tok)
		}
	}

	// Same token under a different jit is a different session instance.
	ok, err := ledger.Exists(ctx, "alice@example.com", "acc1", "jit2")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("token under foreign jit should not exist")
	}
}

func TestRevokeSessionLeavesOtherSessions(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Record(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ledger.Record(ctx, "alice@example.com", "acc2", "ref2", "jit2"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := ledger.RevokeSession(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	if ok, _ := ledger.Exists(ctx, "alice@example.com", "acc1", "jit1"); ok {
		t.Fatal("revoked access token still exists")
	}
	if ok, _ := ledger.Exists(ctx, "alice@example.com", "ref1", "jit1"); ok {
		t.Fatal("revoked refresh token still exists")
	}
	if ok, _ := ledger.Exists(ctx, "alice@example.com", "acc2", "jit2"); !ok {
		t.Fatal("unrelated session was revoked")
	}

	// Revoking again is a no-op.
	if err := ledger.RevokeSession(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("repeat RevokeSession: %v", err)
	}
}

func TestRevokeSessionIfPresent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Record(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	ok, err := ledger.RevokeSessionIfPresent(ctx, "alice@example.com", "acc1", "ref1", "jit1")
	if err != nil {
		t.Fatalf("RevokeSessionIfPresent: %v", err)
	}
	if !ok {
		t.Fatal("first rotation should win")
	}

	// Second attempt on the same pair loses.
	ok, err = ledger.RevokeSessionIfPresent(ctx, "alice@example.com", "acc1", "ref1", "jit1")
	if err != nil {
		t.Fatalf("RevokeSessionIfPresent: %v", err)
	}
	if ok {
		t.Fatal("second rotation on the same pair should lose")
	}

	if ok, _ := ledger.Exists(ctx, "alice@example.com", "acc1", "jit1"); ok {
		t.Fatal("access entry survived rotation")
	}
}

func TestRevokeAll(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Record(ctx, "alice@example.com", "acc1", "ref1", "jit1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ledger.Record(ctx, "alice@example.com", "acc2", "ref2", "jit2"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ledger.Record(ctx, "bob@example.com", "acc3", "ref3", "jit3"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := ledger.RevokeAll(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	for _, tc := range []struct{ tok, jit string }{{"acc1", "jit1"}, {"ref1", "jit1"}, {"acc2", "jit2"}, {"ref2", "jit2"}} {
		if ok, _ := ledger.Exists(ctx, "alice@example.com", tc.tok, tc.jit); ok {
			t.Fatalf("entry %s:%s survived RevokeAll", tc.tok, tc.jit)
		}
	}
	if ok, _ := ledger.Exists(ctx, "bob@example.com", "acc3", "jit3"); !ok {
		t.Fatal("RevokeAll touched another user's sessions")
	}
}

func TestResetCodeLifecycle(t *testing.T) {
	ledger, mr := newTestLedger(t)
	ctx := context.Background()

	code, found, err := ledger.GetResetCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetResetCode: %v", err)
	}
	if found || code != "" {
		t.Fatalf("unexpected code before Put: %q found=%v", code, found)
	}

	if err := ledger.PutResetCode(ctx, "alice@example.com", "123456", 15*time.Minute); err != nil {
		t.Fatalf("PutResetCode: %v", err)
	}
	code, found, err = ledger.GetResetCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetResetCode: %v", err)
	}
	if !found || code != "123456" {
		t.Fatalf("got %q found=%v, want 123456", code, found)
	}

	// Reissue overwrites the previous code.
	if err := ledger.PutResetCode(ctx, "alice@example.com", "654321", 15*time.Minute); err != nil {
		t.Fatalf("PutResetCode: %v", err)
	}
	code, _, _ = ledger.GetResetCode(ctx, "alice@example.com")
	if code != "654321" {
		t.Fatalf("got %q, want reissued code", code)
	}

	if err := ledger.DeleteResetCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("DeleteResetCode: %v", err)
	}
	if _, found, _ = ledger.GetResetCode(ctx, "alice@example.com"); found {
		t.Fatal("code still present after delete")
	}

	// TTL expiry reads as absence.
	if err := ledger.PutResetCode(ctx, "alice@example.com", "111111", 15*time.Minute); err != nil {
		t.Fatalf("PutResetCode: %v", err)
	}
	mr.FastForward(16 * time.Minute)
	if _, found, _ = ledger.GetResetCode(ctx, "alice@example.com"); found {
		t.Fatal("code survived past its TTL")
	}
}
