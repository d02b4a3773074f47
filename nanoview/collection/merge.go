package collection

import (
	"fmt"

	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/types"
)

// ConflictPolicy decides what Merge does with an incoming record that
// matches an existing one
type ConflictPolicy string

const (
	// ConflictSkip rejects the incoming record and reports it as failed
	ConflictSkip ConflictPolicy = "skip"
	// ConflictRegenerate adds the incoming record under a fresh id
	ConflictRegenerate ConflictPolicy = "regenerate"
	// ConflictOverwrite replaces the existing record, keeping its id
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// ConflictPolicies lists the accepted policies
func ConflictPolicies() []ConflictPolicy {
	return []ConflictPolicy{ConflictSkip, ConflictRegenerate, ConflictOverwrite}
}

// ParseConflictPolicy parses a policy name. Empty means ConflictSkip.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	if s == "" {
		return ConflictSkip, nil
	}
	for _, p := range ConflictPolicies() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown conflict policy %q (available: %v)", s, ConflictPolicies())
}

// MergeOptions configures Merge
type MergeOptions struct {
	// Conflict is applied when an incoming record matches an existing one.
	// Defaults to ConflictSkip.
	Conflict ConflictPolicy `json:"conflict,omitempty" yaml:"conflict,omitempty"`

	// Key matches incoming records by this business field instead of the id
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// DryRun reports what would happen without changing the collection
	DryRun bool `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// MergeResult reports the outcome of a Merge
type MergeResult struct {
	// Added lists the ids of appended records
	Added []string `json:"added"`

	// Updated lists the ids of overwritten records
	Updated []string `json:"updated"`

	// Failed lists the incoming records that were rejected
	Failed []MergeFailure `json:"failed"`

	// Warnings lists non-fatal changes such as regenerated ids
	Warnings []string `json:"warnings"`
}

// MergeFailure is one rejected incoming record
type MergeFailure struct {
	// Index is the record's position in the Merge input
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// Merge adds a batch of records, typically from an import. The whole batch is
// persisted once at the end.
func (c *Collection) Merge(records []types.Record, opts MergeOptions) (*MergeResult, error) {
	policy, err := ParseConflictPolicy(string(opts.Conflict))
	if err != nil {
		return nil, err
	}
	if opts.Key != "" {
		if _, err := c.schema.MustField(opts.Key); err != nil {
			return nil, fmt.Errorf("merge key: %w", err)
		}
	}

	result := &MergeResult{
		Added:    make([]string, 0),
		Updated:  make([]string, 0),
		Failed:   make([]MergeFailure, 0),
		Warnings: make([]string, 0),
	}

	var notice *Notice
	err = c.lockManager.Execute(storage.WriteOperation, func() error {
		m := newMerger(c, opts.Key)

		for i, rec := range records {
			if err := m.merge(rec, policy, result); err != nil {
				result.Failed = append(result.Failed, MergeFailure{
					Index: i,
					ID:    types.AsString(rec[c.schema.IDField]),
					Error: err.Error(),
				})
			}
		}

		if opts.DryRun || (len(result.Added) == 0 && len(result.Updated) == 0) {
			return nil
		}
		c.records = m.records
		c.reindex()
		notice = c.persist()
		return nil
	})
	c.emit(notice)

	c.logger.Info("merged records", "key", c.key,
		"added", len(result.Added), "updated", len(result.Updated),
		"failed", len(result.Failed), "dry_run", opts.DryRun)
	return result, err
}

// merger works on a copy of the records so a dry run leaves no trace
type merger struct {
	c       *Collection
	key     string
	records []types.Record
	byID    map[string]int
	byKey   map[string]int
}

func newMerger(c *Collection, key string) *merger {
	m := &merger{
		c:       c,
		key:     key,
		records: append([]types.Record(nil), c.records...),
		byID:    make(map[string]int, len(c.records)),
		byKey:   make(map[string]int),
	}
	for i, rec := range m.records {
		m.track(i, rec)
	}
	return m
}

func (m *merger) track(i int, rec types.Record) {
	m.byID[rec.ID(m.c.schema.IDField)] = i
	if m.key != "" && !types.IsEmpty(rec[m.key]) {
		m.byKey[types.AsString(rec[m.key])] = i
	}
}

// match finds the existing record an incoming one collides with, or -1
func (m *merger) match(rec types.Record) int {
	if m.key != "" {
		if v := rec[m.key]; !types.IsEmpty(v) {
			if i, ok := m.byKey[types.AsString(v)]; ok {
				return i
			}
		}
		return -1
	}
	if i, ok := m.byID[rec.ID(m.c.schema.IDField)]; ok {
		return i
	}
	return -1
}

func (m *merger) merge(rec types.Record, policy ConflictPolicy, result *MergeResult) error {
	c := m.c
	idField := c.schema.IDField

	prepared, err := c.normalize(rec)
	if err != nil {
		return err
	}
	id := prepared.ID(idField)

	existing := m.match(prepared)
	if existing >= 0 {
		switch policy {
		case ConflictSkip:
			if m.key != "" {
				return fmt.Errorf("%w: %s %q already exists", types.ErrDuplicateID, m.key, types.AsString(prepared[m.key]))
			}
			return fmt.Errorf("%w: %s", types.ErrDuplicateID, id)

		case ConflictOverwrite:
			previous := m.records[existing]
			prepared[idField] = previous.ID(idField)
			if err := c.finish(prepared, previous); err != nil {
				return err
			}
			m.records[existing] = prepared
			m.track(existing, prepared)
			result.Updated = append(result.Updated, prepared.ID(idField))
			return nil

		case ConflictRegenerate:
			fresh := c.newID()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("duplicate id %s, added as %s", id, fresh))
			prepared[idField] = fresh
			id = fresh
		}
	}

	if id == "" {
		prepared[idField] = c.newID()
	} else if _, taken := m.byID[id]; taken {
		// Matched by business key only; the incoming id still has to be unique
		fresh := c.newID()
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("id %s already in use, added as %s", id, fresh))
		prepared[idField] = fresh
	}

	if err := c.finish(prepared, nil); err != nil {
		return err
	}
	m.records = append(m.records, prepared)
	m.track(len(m.records)-1, prepared)
	result.Added = append(result.Added, prepared.ID(idField))
	return nil
}
