// Package ledger tracks every mutated byte of an editing session and holds
// the pristine copy of the image taken at load time. Revert always restores
// the exact loaded bytes, no matter how many profiles were applied since.
package ledger

import (
	"sort"

	"github.com/google/uuid"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// Ledger is the ordered change log for one editing session.
type Ledger struct {
	session  string
	pristine []byte
	records  []models.ChangeRecord
	applied  []string
}

// Summary aggregates the current log by table.
type Summary struct {
	TotalChangedBytes int
	ChangedRegions    int
	PerTable          map[string]int
}

// New snapshots as as the pristine backup and starts an empty session log.
func New(as *image.AddressSpace) *Ledger {
	return &Ledger{
		session:  uuid.NewString(),
		pristine: as.Snapshot(),
	}
}

// Session returns the session identifier.
func (l *Ledger) Session() string { return l.session }

// Record appends a batch of change records, preserving arrival order, and
// notes the originating profile names.
func (l *Ledger) Record(batch []models.ChangeRecord) {
	l.records = append(l.records, batch...)
	for _, r := range batch {
		l.markApplied(r.Profile)
	}
}

// MarkApplied notes a profile name even when its apply produced no records
// (a profile of all-zero deltas still counts as applied).
func (l *Ledger) MarkApplied(profile string) {
	l.markApplied(profile)
}

func (l *Ledger) markApplied(profile string) {
	if profile == "" {
		return
	}
	for _, name := range l.applied {
		if name == profile {
			return
		}
	}
	l.applied = append(l.applied, profile)
}

// Applied reports whether a profile name has been recorded this session.
// Advisory only: the engine does not refuse double application, since
// deltas are deliberately relative, but callers can.
func (l *Ledger) Applied(profile string) bool {
	for _, name := range l.applied {
		if name == profile {
			return true
		}
	}
	return false
}

// AppliedProfiles returns the profile names recorded so far, in first-apply
// order.
func (l *Ledger) AppliedProfiles() []string {
	out := make([]string, len(l.applied))
	copy(out, l.applied)
	return out
}

// Len returns the number of records in the session log.
func (l *Ledger) Len() int { return len(l.records) }

// Revert restores every byte of as to the pristine backup and clears the
// session log.
func (l *Ledger) Revert(as *image.AddressSpace) error {
	if err := as.Restore(l.pristine); err != nil {
		return err
	}
	l.records = nil
	l.applied = nil
	return nil
}

// Pristine returns a copy of the backup taken at load time.
func (l *Ledger) Pristine() []byte {
	out := make([]byte, len(l.pristine))
	copy(out, l.pristine)
	return out
}

// Export returns the session log in arrival order. The returned slice is a
// copy; the ledger is never mutated through it.
func (l *Ledger) Export() []models.ChangeRecord {
	out := make([]models.ChangeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Summarize groups the current log by table name. ChangedRegions counts
// distinct tables with at least one record.
func (l *Ledger) Summarize() Summary {
	perTable := make(map[string]int)
	for _, r := range l.records {
		perTable[r.Table]++
	}
	return Summary{
		TotalChangedBytes: len(l.records),
		ChangedRegions:    len(perTable),
		PerTable:          perTable,
	}
}

// Tables returns the table names present in the log, sorted, for stable
// report output.
func (s Summary) Tables() []string {
	names := make([]string, 0, len(s.PerTable))
	for name := range s.PerTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
