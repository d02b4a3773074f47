package collection

import (
	"strings"
	"testing"

	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/testutil"
	"github.com/arthur-debert/nanoview/types"
)

func TestParseConflictPolicy(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    ConflictPolicy
		wantErr bool
	}{
		{"", ConflictSkip, false},
		{"skip", ConflictSkip, false},
		{"regenerate", ConflictRegenerate, false},
		{"overwrite", ConflictOverwrite, false},
		{"replace", "", true},
	} {
		got, err := ParseConflictPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseConflictPolicy(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseConflictPolicy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func incoming() []types.Record {
	return []types.Record{
		{"id": "t1", "name": "Ada King", "role": "lead"},
		{"id": "n1", "name": "Nora Ruiz", "role": "junior"},
		{"name": "No Id", "department": "design"},
		{"id": "n2", "name": "Broken", "role": "ceo"},
	}
}

func TestMerge(t *testing.T) {
	t.Run("skip rejects duplicates", func(t *testing.T) {
		store := newFlakyStore()
		c := openTeam(t, store)
		saves := store.saves

		result, err := c.Merge(incoming(), MergeOptions{})
		if err != nil {
			t.Fatal(err)
		}

		if got := strings.Join(result.Added, ","); got != "n1,gen-1" {
			t.Errorf("expected n1,gen-1 added, got %s", got)
		}
		if len(result.Updated) != 0 {
			t.Errorf("skip should not update, got %v", result.Updated)
		}
		if len(result.Failed) != 2 || result.Failed[0].Index != 0 || result.Failed[1].Index != 3 {
			t.Fatalf("expected failures at 0 and 3, got %+v", result.Failed)
		}
		if result.Failed[0].ID != "t1" {
			t.Errorf("failure should name the id, got %+v", result.Failed[0])
		}

		ada, _ := c.Get("t1")
		if ada["name"] != "Ada Lovelace" {
			t.Errorf("skipped record changed the original: %v", ada["name"])
		}
		if c.Len() != 10 {
			t.Errorf("expected 10 records, got %d", c.Len())
		}
		if store.saves != saves+1 {
			t.Errorf("expected one save for the batch, got %d", store.saves-saves)
		}
	})

	t.Run("regenerate adds under a fresh id", func(t *testing.T) {
		c := openTeam(t, storage.NewMemoryStore())

		result, err := c.Merge(incoming()[:1], MergeOptions{Conflict: ConflictRegenerate})
		if err != nil {
			t.Fatal(err)
		}
		assertAdded(t, result, "gen-1")
		if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "t1") {
			t.Errorf("expected a warning naming t1, got %v", result.Warnings)
		}

		ada, _ := c.Get("t1")
		dup, _ := c.Get("gen-1")
		if ada["name"] != "Ada Lovelace" || dup["name"] != "Ada King" {
			t.Errorf("expected both records, got %v and %v", ada["name"], dup["name"])
		}
	})

	t.Run("overwrite replaces in place", func(t *testing.T) {
		c := openTeam(t, storage.NewMemoryStore())

		result, err := c.Merge(incoming()[:2], MergeOptions{Conflict: ConflictOverwrite})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(result.Updated, ",") != "t1" {
			t.Errorf("expected t1 updated, got %v", result.Updated)
		}
		assertAdded(t, result, "n1")

		ada, _ := c.Get("t1")
		if ada["name"] != "Ada King" {
			t.Errorf("expected overwritten name, got %v", ada["name"])
		}
		if _, ok := ada["salary"]; ok {
			t.Error("overwrite replaces the whole record")
		}
		if ada["active"] != true {
			t.Errorf("defaults apply to overwritten records, got %v", ada["active"])
		}
		testutil.AssertIDs(t, c.All()[:1], "t1")
	})

	t.Run("business key matching", func(t *testing.T) {
		c := openTeam(t, storage.NewMemoryStore())

		batch := []types.Record{
			{"id": "x1", "name": "Carla Diaz", "salary": 115000},
			{"id": "t2", "name": "Brand New"},
		}
		result, err := c.Merge(batch, MergeOptions{Conflict: ConflictOverwrite, Key: "name"})
		if err != nil {
			t.Fatal(err)
		}

		if strings.Join(result.Updated, ",") != "t3" {
			t.Errorf("expected Carla (t3) updated by name, got %v", result.Updated)
		}
		carla, _ := c.Get("t3")
		if carla["salary"] != 115000.0 {
			t.Errorf("expected new salary, got %v", carla["salary"])
		}
		if _, ok := c.Get("x1"); ok {
			t.Error("overwrite by key keeps the existing id")
		}

		// t2 matches no name but its id is taken
		assertAdded(t, result, "gen-1")
		if len(result.Warnings) != 1 {
			t.Errorf("expected one id warning, got %v", result.Warnings)
		}
		bob, _ := c.Get("t2")
		if bob["name"] != "bob Martin" {
			t.Errorf("t2 should be untouched, got %v", bob["name"])
		}
	})

	t.Run("duplicates within the batch", func(t *testing.T) {
		c := openTeam(t, storage.NewMemoryStore())

		batch := []types.Record{
			{"id": "n1", "name": "First"},
			{"id": "n1", "name": "Second"},
		}
		result, err := c.Merge(batch, MergeOptions{})
		if err != nil {
			t.Fatal(err)
		}
		assertAdded(t, result, "n1")
		if len(result.Failed) != 1 || result.Failed[0].Index != 1 {
			t.Errorf("expected the second record to fail, got %+v", result.Failed)
		}
	})

	t.Run("dry run leaves the collection alone", func(t *testing.T) {
		store := newFlakyStore()
		c := openTeam(t, store)
		saves := store.saves

		result, err := c.Merge(incoming(), MergeOptions{Conflict: ConflictOverwrite, DryRun: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Added) != 2 || len(result.Updated) != 1 || len(result.Failed) != 1 {
			t.Errorf("unexpected dry run result %+v", result)
		}

		if c.Len() != 8 {
			t.Errorf("dry run added records: %d", c.Len())
		}
		ada, _ := c.Get("t1")
		if ada["name"] != "Ada Lovelace" {
			t.Errorf("dry run changed a record: %v", ada["name"])
		}
		if store.saves != saves {
			t.Errorf("dry run saved %d times", store.saves-saves)
		}
	})

	t.Run("nothing to merge does not save", func(t *testing.T) {
		store := newFlakyStore()
		c := openTeam(t, store)
		saves := store.saves

		if _, err := c.Merge(incoming()[:1], MergeOptions{}); err != nil {
			t.Fatal(err)
		}
		if store.saves != saves {
			t.Errorf("expected no save, got %d", store.saves-saves)
		}
	})

	t.Run("bad options", func(t *testing.T) {
		c := openTeam(t, storage.NewMemoryStore())

		if _, err := c.Merge(nil, MergeOptions{Conflict: "replace"}); err == nil {
			t.Error("expected error for unknown policy")
		}
		if _, err := c.Merge(nil, MergeOptions{Key: "colour"}); err == nil {
			t.Error("expected error for unknown key field")
		}
	})
}

func assertAdded(t *testing.T, result *MergeResult, want ...string) {
	t.Helper()
	if got, exp := strings.Join(result.Added, ","), strings.Join(want, ","); got != exp {
		t.Errorf("expected added %s, got %s", exp, got)
	}
}
