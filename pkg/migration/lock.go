package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// DefaultLockName is the conventional lockfile name.
const DefaultLockName = "schema.lock.json"

// LockVersion is the lockfile format version.
const LockVersion = 1

// Lockfile pins the generated schema: one hash over the whole canonical
// script and one per table. Committed alongside the models, it turns schema
// drift into something a deploy can refuse instead of discover.
type Lockfile struct {
	Version     int               `json:"version"`
	GeneratedAt time.Time         `json:"generated_at"`
	Hash        string            `json:"hash"`
	Tables      map[string]string `json:"tables"`
}

// ComputeLock hashes the canonical schema script for the models.
func ComputeLock(schemas []*schema.Schema) *Lockfile {
	tables := make(map[string]string, len(schemas))
	for _, sch := range schemas {
		tables[sch.Table()] = tableHash(sch)
	}
	return &Lockfile{
		Version:     LockVersion,
		GeneratedAt: time.Now().UTC(),
		Hash:        hashText(SchemaSQL(schemas, DefaultOptions())),
		Tables:      tables,
	}
}

// Write persists the lockfile as indented JSON.
func (l *Lockfile) Write(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}

// ReadLock loads a lockfile.
func ReadLock(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lockfile: %w", err)
	}
	var l Lockfile
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lockfile %s: %w", path, err)
	}
	if l.Version != LockVersion {
		return nil, fmt.Errorf("lockfile %s: unsupported version %d", path, l.Version)
	}
	return &l, nil
}

// DriftReport lists the tables whose DDL no longer matches a lockfile.
type DriftReport struct {
	Changed []string // present on both sides with different DDL
	Added   []string // in the models, not in the lockfile
	Removed []string // in the lockfile, not in the models
}

// Clean reports whether nothing drifted.
func (r *DriftReport) Clean() bool {
	return len(r.Changed) == 0 && len(r.Added) == 0 && len(r.Removed) == 0
}

func (r *DriftReport) String() string {
	if r.Clean() {
		return "schema matches lockfile"
	}
	return fmt.Sprintf("schema drift: %d changed, %d added, %d removed",
		len(r.Changed), len(r.Added), len(r.Removed))
}

// Verify compares the models against a lockfile. Drift is reported, never
// resolved: what to do about it is the caller's call.
func Verify(schemas []*schema.Schema, lock *Lockfile) *DriftReport {
	report := &DriftReport{}

	current := make(map[string]string, len(schemas))
	for _, sch := range schemas {
		current[sch.Table()] = tableHash(sch)
	}

	for table, hash := range current {
		locked, ok := lock.Tables[table]
		switch {
		case !ok:
			report.Added = append(report.Added, table)
		case locked != hash:
			report.Changed = append(report.Changed, table)
		}
	}
	for table := range lock.Tables {
		if _, ok := current[table]; !ok {
			report.Removed = append(report.Removed, table)
		}
	}

	sort.Strings(report.Changed)
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	return report
}

// tableHash is the canonical per-model DDL hash shared by the lockfile and
// the migration tracking table.
func tableHash(sch *schema.Schema) string {
	return hashText(modelSQL(sch, DefaultOptions()))
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
