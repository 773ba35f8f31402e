package suggest

import (
	"testing"

	"github.com/nhle/deletion-planner/internal/model"
)

func TestMergeDeduplicatesByTaskID(t *testing.T) {
	q := NewQueue()
	q.Merge([]model.DeletionSuggestion{
		{ID: 1, Title: "Learn Esperanto", DeletionReasoning: "old"},
		{ID: 2, Title: "Clean garage"},
	})
	q.Merge([]model.DeletionSuggestion{
		{ID: 3, Title: "Write novel"},
		{ID: 1, Title: "Learn Esperanto", DeletionReasoning: "new"},
		{ID: 3, Title: "Write novel", DeletionReasoning: "twice"},
	})

	items := q.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	for i, want := range []int64{1, 2, 3} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %d, want %d", i, items[i].ID, want)
		}
	}
	if items[0].DeletionReasoning != "new" {
		t.Errorf("reasoning = %q, want newer content", items[0].DeletionReasoning)
	}
	if items[2].DeletionReasoning != "twice" {
		t.Errorf("reasoning = %q, want last duplicate in batch", items[2].DeletionReasoning)
	}
}

func TestRemoveAndClear(t *testing.T) {
	q := NewQueue()
	q.Merge([]model.DeletionSuggestion{{ID: 1}, {ID: 2}})

	if !q.Remove(1) {
		t.Error("Remove(1) = false")
	}
	if q.Remove(1) {
		t.Error("second Remove(1) = true")
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len after Clear = %d", q.Len())
	}
}

func TestQueueSubscribe(t *testing.T) {
	q := NewQueue()
	var seen []int
	cancel := q.Subscribe(func(items []model.DeletionSuggestion) {
		seen = append(seen, len(items))
	})

	q.Merge([]model.DeletionSuggestion{{ID: 1}, {ID: 2}})
	q.Remove(2)
	q.Merge(nil)
	cancel()
	q.Clear()

	if len(seen) != 2 || seen[0] != 2 || seen[1] != 1 {
		t.Errorf("seen = %v, want [2 1]", seen)
	}
}

func TestItemsIsACopy(t *testing.T) {
	q := NewQueue()
	q.Merge([]model.DeletionSuggestion{{ID: 1, Title: "A"}})

	items := q.Items()
	items[0].Title = "changed"

	if got, _ := q.Get(1); got.Title != "A" {
		t.Errorf("queue mutated through Items: %q", got.Title)
	}
}
