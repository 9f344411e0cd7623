package installer

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "installs.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestLedgerPutGetDelete(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	if rec, err := ledger.Get(ctx, "dia"); err != nil || rec != nil {
		t.Fatalf("expected no record, got %v err %v", rec, err)
	}

	want := Record{
		Engine:      "dia",
		Installed:   true,
		EnvPath:     "/tmp/envs/dia",
		Platform:    "linux/amd64",
		InstalledAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := ledger.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := ledger.Get(ctx, "dia")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.Installed || got.EnvPath != want.EnvPath || !got.InstalledAt.Equal(want.InstalledAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Upsert replaces in place.
	want.EnvPath = "/tmp/envs/dia2"
	if err := ledger.Put(ctx, want); err != nil {
		t.Fatalf("put again: %v", err)
	}
	got, err = ledger.Get(ctx, "dia")
	if err != nil || got.EnvPath != "/tmp/envs/dia2" {
		t.Fatalf("upsert failed: %+v err %v", got, err)
	}

	if err := ledger.Delete(ctx, "dia"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec, err := ledger.Get(ctx, "dia"); err != nil || rec != nil {
		t.Fatalf("expected record gone, got %v err %v", rec, err)
	}
	// Idempotent.
	if err := ledger.Delete(ctx, "dia"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLedgerList(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, engine := range []string{"dia", "bark"} {
		if err := ledger.Put(ctx, Record{Engine: engine, Installed: true, EnvPath: "/e/" + engine, Platform: Platform(), InstalledAt: now}); err != nil {
			t.Fatalf("put %s: %v", engine, err)
		}
	}

	records, err := ledger.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].Engine != "bark" || records[1].Engine != "dia" {
		t.Fatalf("unexpected records: %+v", records)
	}
}
