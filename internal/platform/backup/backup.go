// Package backup snapshots the practice's records to timestamped JSON
// files and restores from them. A snapshot is a full dump of all four
// collections; restore replaces the current data wholesale.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/payment"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
)

const filePrefix = "backup-"

// Snapshot is the on-disk backup format.
type Snapshot struct {
	CreatedAt time.Time          `json:"created_at"`
	Patients  []*patient.Patient `json:"patients"`
	Sessions  []*session.Session `json:"sessions"`
	Payments  []*payment.Payment `json:"payments"`
	Reports   []*report.Report   `json:"reports"`
}

// Store dumps and restores the complete dataset. Restore must be atomic:
// either the snapshot replaces everything or nothing changes.
type Store interface {
	Dump(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) error
}

type Service struct {
	store Store
	dir   string
}

func NewService(store Store, dir string) *Service {
	return &Service{store: store, dir: dir}
}

// Backup dumps the dataset to a new timestamped file and returns its name.
func (s *Service) Backup(ctx context.Context) (string, error) {
	snap, err := s.store.Dump(ctx)
	if err != nil {
		return "", err
	}
	snap.CreatedAt = time.Now()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%s.json", filePrefix, snap.CreatedAt.Format("20060102-150405"))

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Restore loads the named backup file and replaces the current dataset with
// its contents. Only plain file names from the backup directory are
// accepted.
func (s *Service) Restore(ctx context.Context, name string) error {
	if name != filepath.Base(name) || !strings.HasPrefix(name, filePrefix) {
		return fmt.Errorf("invalid backup name: %s", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt backup file: %w", err)
	}
	return s.store.Restore(ctx, &snap)
}

// List returns the available backup file names, newest first.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
