// Package collection holds one application's records for the length of a
// session. It loads them from a storage.Store once, applies mutations in
// memory, and writes the whole collection back after each mutation.
//
// Persistence is best effort: a failed save never fails the mutation. It is
// logged, published as a Notice and remembered in LastSaveError, and the next
// mutation tries again with the full collection.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arthur-debert/nanoview/nanoview/query"
	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/types"
	"github.com/google/uuid"
)

// Bookkeeping fields maintained automatically when the schema declares them
// as dates
const (
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// Collection is the in-memory record set of one application
type Collection struct {
	store       storage.Store
	key         string
	schema      *types.Schema
	engine      *query.Engine
	lockManager *storage.LockManager

	records []types.Record
	index   map[string]int

	seeds      []types.Record
	aggregates []types.AggregateSpec
	onNotice   NoticeHandler
	logger     *slog.Logger
	timeFunc   func() time.Time
	newID      func() string

	notices     []Notice
	lastSaveErr error
}

// Open loads the collection stored under key.
//
// An absent key starts from the seed records and persists them right away.
// A storage error or an unreadable blob also starts from the seeds, with a
// NoticeRecovered; the stored data is left alone until the next mutation.
// Individually invalid stored records are dropped with a NoticeDropped.
func Open(store storage.Store, key string, schema *types.Schema, opts ...Option) (*Collection, error) {
	if store == nil {
		return nil, errors.New("collection: nil store")
	}
	if key == "" {
		return nil, errors.New("collection: empty key")
	}

	c := &Collection{
		store:       store,
		key:         key,
		schema:      schema,
		lockManager: storage.NewLockManager(),
		logger:      slog.Default(),
		timeFunc:    time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}

	engine, err := query.NewEngine(schema, c.aggregates...)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", key, err)
	}
	c.engine = engine

	seeds, err := c.prepareSeeds()
	if err != nil {
		return nil, fmt.Errorf("collection %s: seed records: %w", key, err)
	}

	data, ok, err := store.Load(key)
	switch {
	case err != nil:
		c.logger.Warn("failed to load collection, using seed records", "key", key, "error", err)
		c.records = seeds
		c.notices = append(c.notices, Notice{Kind: NoticeRecovered, Key: key, Count: len(seeds), Err: err})
	case !ok:
		c.logger.Debug("collection not found, seeding", "key", key, "seeds", len(seeds))
		c.records = seeds
		c.reindex()
		if n := c.persist(); n != nil {
			c.notices = append(c.notices, *n)
		}
	default:
		records, dropped, err := c.decode(data)
		if err != nil {
			c.logger.Warn("stored collection is unreadable, using seed records", "key", key, "error", err)
			c.records = seeds
			c.notices = append(c.notices, Notice{Kind: NoticeRecovered, Key: key, Count: len(seeds), Err: err})
			break
		}
		c.records = records
		if dropped > 0 {
			c.logger.Warn("dropped invalid stored records", "key", key, "dropped", dropped)
			c.notices = append(c.notices, Notice{Kind: NoticeDropped, Key: key, Count: dropped})
		}
	}
	c.reindex()

	for _, n := range c.notices {
		c.emit(&n)
	}
	c.logger.Debug("collection opened", "key", key, "records", len(c.records))
	return c, nil
}

// Key returns the storage key
func (c *Collection) Key() string {
	return c.key
}

// Schema returns the record schema
func (c *Collection) Schema() *types.Schema {
	return c.schema
}

// Notices returns the notices raised while opening
func (c *Collection) Notices() []Notice {
	return append([]Notice(nil), c.notices...)
}

// LastSaveError returns the error of the most recent save, or nil if it
// succeeded
func (c *Collection) LastSaveError() error {
	var err error
	_ = c.lockManager.Execute(storage.ReadOperation, func() error {
		err = c.lastSaveErr
		return nil
	})
	return err
}

// Len returns the number of records
func (c *Collection) Len() int {
	var n int
	_ = c.lockManager.Execute(storage.ReadOperation, func() error {
		n = len(c.records)
		return nil
	})
	return n
}

// All returns copies of every record in collection order
func (c *Collection) All() []types.Record {
	var out []types.Record
	_ = c.lockManager.Execute(storage.ReadOperation, func() error {
		out = make([]types.Record, len(c.records))
		for i, rec := range c.records {
			out[i] = rec.Clone()
		}
		return nil
	})
	return out
}

// Get returns a copy of the record with the given id
func (c *Collection) Get(id string) (types.Record, bool) {
	var (
		rec types.Record
		ok  bool
	)
	_ = c.lockManager.Execute(storage.ReadOperation, func() error {
		var i int
		if i, ok = c.index[id]; ok {
			rec = c.records[i].Clone()
		}
		return nil
	})
	return rec, ok
}

// View derives the filtered, sorted, paginated and aggregated view of the
// current records
func (c *Collection) View(params types.ViewParams) (types.DerivedView, error) {
	var snapshot []types.Record
	_ = c.lockManager.Execute(storage.ReadOperation, func() error {
		// Records are replaced, never mutated, so a slice copy is a snapshot
		snapshot = append([]types.Record(nil), c.records...)
		return nil
	})
	return c.engine.Derive(snapshot, params)
}

// Add validates and appends a record. A missing id is generated;
// a colliding one is ErrDuplicateID.
func (c *Collection) Add(rec types.Record) (types.Record, error) {
	var (
		added  types.Record
		notice *Notice
	)
	err := c.lockManager.Execute(storage.WriteOperation, func() error {
		prepared, err := c.normalize(rec)
		if err != nil {
			return err
		}
		id := prepared.ID(c.schema.IDField)
		if id == "" {
			id = c.newID()
			prepared[c.schema.IDField] = id
		}
		if _, exists := c.index[id]; exists {
			return fmt.Errorf("%w: %s", types.ErrDuplicateID, id)
		}
		if err := c.finish(prepared, nil); err != nil {
			return err
		}

		c.records = append(c.records, prepared)
		c.index[id] = len(c.records) - 1
		added = prepared.Clone()
		notice = c.persist()
		return nil
	})
	c.emit(notice)
	return added, err
}

// Update applies patch to the record with the given id. Patch values that are
// empty clear the field. The id itself cannot change.
func (c *Collection) Update(id string, patch types.Record) (types.Record, error) {
	var (
		updated types.Record
		notice  *Notice
	)
	err := c.lockManager.Execute(storage.WriteOperation, func() error {
		i, ok := c.index[id]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		if v, ok := patch[c.schema.IDField]; ok && types.AsString(v) != id {
			return fmt.Errorf("%w: %s", types.ErrImmutableID, id)
		}

		merged := c.records[i].Clone()
		for k, v := range patch {
			if types.IsEmpty(v) {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		prepared, err := c.schema.NormalizeRecord(merged)
		if err != nil {
			return err
		}
		if err := c.finish(prepared, c.records[i]); err != nil {
			return err
		}

		c.records[i] = prepared
		updated = prepared.Clone()
		notice = c.persist()
		return nil
	})
	c.emit(notice)
	return updated, err
}

// Delete removes the record with the given id
func (c *Collection) Delete(id string) error {
	var notice *Notice
	err := c.lockManager.Execute(storage.WriteOperation, func() error {
		i, ok := c.index[id]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		c.records = append(c.records[:i:i], c.records[i+1:]...)
		c.reindex()
		notice = c.persist()
		return nil
	})
	c.emit(notice)
	return err
}

// normalize coerces a new record and fills in defaults
func (c *Collection) normalize(rec types.Record) (types.Record, error) {
	prepared, err := c.schema.NormalizeRecord(rec)
	if err != nil {
		return nil, err
	}
	return c.schema.ApplyDefaults(prepared), nil
}

// finish stamps the bookkeeping fields and validates. previous is the record
// being replaced, nil for a new one.
func (c *Collection) finish(rec types.Record, previous types.Record) error {
	now := c.timeFunc().UTC().Format(time.RFC3339)
	if f, ok := c.schema.Field(CreatedAtField); ok && f.Type == types.Date {
		switch {
		case previous != nil && !types.IsEmpty(previous[CreatedAtField]):
			rec[CreatedAtField] = previous[CreatedAtField]
		case types.IsEmpty(rec[CreatedAtField]):
			rec[CreatedAtField] = now
		}
	}
	if f, ok := c.schema.Field(UpdatedAtField); ok && f.Type == types.Date {
		rec[UpdatedAtField] = now
	}
	return c.schema.Validate(rec)
}

// prepareSeeds normalizes the seed records. Unlike stored data, a bad seed is
// a programming error and fails Open.
func (c *Collection) prepareSeeds() ([]types.Record, error) {
	out := make([]types.Record, 0, len(c.seeds))
	seen := make(map[string]bool, len(c.seeds))
	for i, seed := range c.seeds {
		rec, err := c.normalize(seed)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		id := rec.ID(c.schema.IDField)
		if id == "" {
			id = c.newID()
			rec[c.schema.IDField] = id
		}
		if seen[id] {
			return nil, fmt.Errorf("seed %d: %w: %s", i, types.ErrDuplicateID, id)
		}
		seen[id] = true
		if err := c.finish(rec, nil); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeBlob parses a stored collection blob into raw, unnormalized records
func DecodeBlob(data []byte) ([]types.Record, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]types.Record, len(raw))
	for i, item := range raw {
		out[i] = types.Record(item)
	}
	return out, nil
}

// EncodeBlob renders records in the stored collection format
func EncodeBlob(records []types.Record) ([]byte, error) {
	if records == nil {
		records = []types.Record{}
	}
	return json.Marshal(records)
}

// decode parses a stored blob. Records that fail validation or repeat an id
// are dropped and counted.
func (c *Collection) decode(data []byte) ([]types.Record, int, error) {
	raw, err := DecodeBlob(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", c.key, err)
	}

	out := make([]types.Record, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	dropped := 0
	for _, item := range raw {
		rec, err := c.schema.NormalizeRecord(item)
		if err == nil {
			err = c.schema.Validate(rec)
		}
		if err != nil {
			c.logger.Debug("dropping stored record", "key", c.key, "error", err)
			dropped++
			continue
		}
		id := rec.ID(c.schema.IDField)
		if seen[id] {
			c.logger.Debug("dropping stored record", "key", c.key, "error", types.ErrDuplicateID, "id", id)
			dropped++
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}
	return out, dropped, nil
}

// persist writes the full collection; caller holds the write lock. A failure
// is returned as a notice for the caller to emit after unlocking.
func (c *Collection) persist() *Notice {
	data, err := EncodeBlob(c.records)
	if err == nil {
		err = c.store.Save(c.key, data)
	}
	c.lastSaveErr = err
	if err != nil {
		c.logger.Error("failed to save collection", "key", c.key, "records", len(c.records), "error", err)
		return &Notice{Kind: NoticeSaveFailed, Key: c.key, Count: len(c.records), Err: err}
	}
	return nil
}

func (c *Collection) emit(n *Notice) {
	if n != nil && c.onNotice != nil {
		c.onNotice(*n)
	}
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.records))
	for i, rec := range c.records {
		c.index[rec.ID(c.schema.IDField)] = i
	}
}
