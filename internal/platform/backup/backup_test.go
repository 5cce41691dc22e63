package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/session"
)

type fakeStore struct {
	snap     *Snapshot
	restored *Snapshot
}

func (f *fakeStore) Dump(ctx context.Context) (*Snapshot, error) {
	return f.snap, nil
}

func (f *fakeStore) Restore(ctx context.Context, snap *Snapshot) error {
	f.restored = snap
	return nil
}

func sampleSnapshot() *Snapshot {
	pid := uuid.New()
	return &Snapshot{
		Patients: []*patient.Patient{
			{ID: pid, Name: "Ana", BillingType: patient.BillingStandard, Balance: 140},
		},
		Sessions: []*session.Session{
			{ID: uuid.New(), PatientID: pid, Price: 80, State: session.StatePending},
		},
	}
}

func TestBackup_WritesSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{snap: sampleSnapshot()}
	svc := NewService(store, dir)

	name, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("parse backup: %v", err)
	}
	if len(snap.Patients) != 1 || snap.Patients[0].Name != "Ana" {
		t.Errorf("unexpected patients: %+v", snap.Patients)
	}
	if len(snap.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(snap.Sessions))
	}
	if snap.CreatedAt.IsZero() {
		t.Error("expected created_at stamped")
	}
}

func TestRestore_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{snap: sampleSnapshot()}
	svc := NewService(store, dir)

	name, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := svc.Restore(context.Background(), name); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if store.restored == nil {
		t.Fatal("expected store restore invoked")
	}
	if len(store.restored.Patients) != 1 || store.restored.Patients[0].ID != store.snap.Patients[0].ID {
		t.Errorf("restored snapshot differs: %+v", store.restored.Patients)
	}
}

func TestRestore_RejectsBadNames(t *testing.T) {
	svc := NewService(&fakeStore{}, t.TempDir())

	for _, name := range []string{"../etc/passwd", "/tmp/x.json", "notes.txt", ""} {
		if err := svc.Restore(context.Background(), name); err == nil {
			t.Errorf("expected rejection for %q", name)
		}
	}
}

func TestRestore_MissingFile(t *testing.T) {
	svc := NewService(&fakeStore{}, t.TempDir())
	if err := svc.Restore(context.Background(), "backup-20260101-000000.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"backup-20260101-000000.json",
		"backup-20260301-000000.json",
		"backup-20260201-000000.json",
		"unrelated.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewService(&fakeStore{}, dir)

	names, err := svc.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"backup-20260301-000000.json",
		"backup-20260201-000000.json",
		"backup-20260101-000000.json",
	}
	if len(names) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestList_NoDirectory(t *testing.T) {
	svc := NewService(&fakeStore{}, filepath.Join(t.TempDir(), "missing"))
	names, err := svc.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names != nil {
		t.Errorf("expected no files, got %v", names)
	}
}
