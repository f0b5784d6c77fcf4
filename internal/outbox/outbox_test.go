package outbox

import (
	"encoding/json"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "outbox.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueKeepsOrder(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		item := Item{Entity: EntityTask, Operation: OperationPut, EntityID: id, Data: json.RawMessage(`{"id":"` + id + `"}`)}
		if err := store.Enqueue(item); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	size, err := store.Size()
	if err != nil || size != 3 {
		t.Fatalf("Size = %d, %v", size, err)
	}

	items, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	var order []string
	for _, item := range items {
		if item.ID == "" || item.Timestamp.IsZero() {
			t.Errorf("item not normalized: %+v", item)
		}
		order = append(order, item.EntityID)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Errorf("Batch order = %v, want [c a b]", order)
	}
}

func TestBatchLimitAndRemove(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.Enqueue(Item{Entity: EntityEvent, Operation: OperationDelete, EntityID: "e"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	items, err := store.Batch(2)
	if err != nil || len(items) != 2 {
		t.Fatalf("Batch(2) = %d items, %v", len(items), err)
	}
	for _, item := range items {
		if err := store.Remove(item); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}
	if size, _ := store.Size(); size != 3 {
		t.Errorf("Size after removing two = %d, want 3", size)
	}

	// Items rebuilt without their key are removed by ID.
	rest, _ := store.Batch(1)
	if err := store.Remove(Item{ID: rest[0].ID}); err != nil {
		t.Fatalf("Remove by id failed: %v", err)
	}
	if size, _ := store.Size(); size != 2 {
		t.Errorf("Size after removing by id = %d, want 2", size)
	}
}

func TestRetryKeepsPosition(t *testing.T) {
	store := openTestStore(t)
	for _, id := range []string{"first", "second"} {
		if err := store.Enqueue(Item{Entity: EntityNote, Operation: OperationPut, EntityID: id}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	items, _ := store.Batch(1)
	if err := store.Retry(items[0]); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	items, _ = store.Batch(2)
	if items[0].EntityID != "first" || items[0].Retries != 1 {
		t.Errorf("head after retry = %+v", items[0])
	}
	if items[1].Retries != 0 {
		t.Errorf("second item retries = %d", items[1].Retries)
	}
}

func TestReopenKeepsItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Enqueue(Item{Entity: EntityPreferences, Operation: OperationPut}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if size, _ := reopened.Size(); size != 1 {
		t.Errorf("Size after reopen = %d, want 1", size)
	}
}

func TestClosedStoreErrors(t *testing.T) {
	var store *Store
	if err := store.Enqueue(Item{}); err == nil {
		t.Error("Enqueue on nil store should fail")
	}
	if _, err := store.Size(); err == nil {
		t.Error("Size on nil store should fail")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close on nil store = %v", err)
	}
}

func TestBatchMovesUndecodableEntriesAside(t *testing.T) {
	store := openTestStore(t)
	if err := store.Enqueue(Item{Entity: EntityTask, Operation: OperationDelete, EntityID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(store.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), []byte("{not json"))
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Enqueue(Item{Entity: EntityTask, Operation: OperationDelete, EntityID: "b"}); err != nil {
		t.Fatal(err)
	}

	items, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(items) != 2 || items[0].EntityID != "a" || items[1].EntityID != "b" {
		t.Fatalf("Batch = %+v, want a then b", items)
	}
	if size, _ := store.Size(); size != 2 {
		t.Errorf("Size = %d, want 2 once the broken entry is gone", size)
	}
	if dead, _ := store.Dead(); dead != 1 {
		t.Errorf("Dead = %d, want 1", dead)
	}

	for _, item := range items {
		if err := store.Remove(item); err != nil {
			t.Fatal(err)
		}
	}
	if size, _ := store.Size(); size != 0 {
		t.Errorf("Size after draining = %d, want 0", size)
	}
}
