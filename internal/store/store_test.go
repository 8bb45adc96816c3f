package store

import (
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	ts := time.Unix(1700000000, 0)
	return func() time.Time { return ts }
}

func newBackends() []Store {
	return []Store{
		NewReducerStore("redux", NewIDSource(fixedClock())),
		NewAtomStore("alt", NewIDSource(fixedClock())),
	}
}

func TestCounterGoldenSequence(t *testing.T) {
	ops := []int{+1, +1, -1, +1, +1, +1, -1, -1, -1, -1, -1}
	want := 0
	for _, d := range ops {
		want += d
	}
	var finals []int
	for _, s := range newBackends() {
		for _, d := range ops {
			if d > 0 {
				s.Increment()
			} else {
				s.Decrement()
			}
		}
		got := s.Snapshot().Count
		if got != want {
			t.Errorf("%s: count = %d, want %d", s.Name(), got, want)
		}
		finals = append(finals, got)
	}
	if finals[0] != finals[1] {
		t.Fatalf("backends disagree: %v", finals)
	}
}

func TestIncrementByAmount(t *testing.T) {
	for _, s := range newBackends() {
		s.IncrementByAmount(5)
		s.IncrementByAmount(0)
		s.IncrementByAmount(-2)
		if got := s.Snapshot().Count; got != 3 {
			t.Errorf("%s: count = %d, want 3", s.Name(), got)
		}
	}
}

func TestResetCounter(t *testing.T) {
	for _, s := range newBackends() {
		s.IncrementByAmount(42)
		s.Decrement()
		s.ResetCounter()
		if got := s.Snapshot().Count; got != 0 {
			t.Errorf("%s: count after reset = %d", s.Name(), got)
		}
		s.IncrementByAmount(-7)
		s.ResetCounter()
		if got := s.Snapshot().Count; got != 0 {
			t.Errorf("%s: count after negative reset = %d", s.Name(), got)
		}
	}
}

func TestBulkAddTodos(t *testing.T) {
	for _, s := range newBackends() {
		s.AddTodo("first")
		before := s.Snapshot().TodoCount()
		s.BulkAddTodos([]string{"a", "b", "c"})
		st := s.Snapshot()
		if st.TodoCount() != before+3 {
			t.Fatalf("%s: len = %d, want %d", s.Name(), st.TodoCount(), before+3)
		}
		added := st.Todos[before:]
		for i, text := range []string{"a", "b", "c"} {
			if added[i].Text != text {
				t.Errorf("%s: todo %d text = %q, want %q", s.Name(), i, added[i].Text, text)
			}
			if added[i].Completed {
				t.Errorf("%s: todo %d should not be completed", s.Name(), i)
			}
		}
		seen := map[int64]bool{}
		for _, td := range st.Todos {
			if seen[td.ID] {
				t.Fatalf("%s: duplicate id %d", s.Name(), td.ID)
			}
			seen[td.ID] = true
		}
	}
}

func TestToggleTodo(t *testing.T) {
	for _, s := range newBackends() {
		s.BulkAddTodos([]string{"a", "b"})
		id := s.Snapshot().Todos[1].ID
		s.ToggleTodo(id)
		st := s.Snapshot()
		if !st.Todos[1].Completed || st.Todos[0].Completed {
			t.Fatalf("%s: unexpected todos after toggle: %+v", s.Name(), st.Todos)
		}
		if len(st.Completed()) != 1 || len(st.Pending()) != 1 {
			t.Fatalf("%s: completed/pending = %d/%d", s.Name(), len(st.Completed()), len(st.Pending()))
		}
		s.ToggleTodo(id)
		if s.Snapshot().Todos[1].Completed {
			t.Fatalf("%s: second toggle did not clear completed", s.Name())
		}
	}
}

func TestToggleMissingTodoLeavesListUnchanged(t *testing.T) {
	for _, s := range newBackends() {
		s.BulkAddTodos([]string{"a", "b", "c"})
		before := s.Snapshot().Todos
		s.ToggleTodo(-1)
		after := s.Snapshot().Todos
		if len(before) != len(after) {
			t.Fatalf("%s: length changed %d -> %d", s.Name(), len(before), len(after))
		}
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("%s: todo %d changed: %+v -> %+v", s.Name(), i, before[i], after[i])
			}
		}
	}
}

func TestRemoveTodo(t *testing.T) {
	for _, s := range newBackends() {
		s.BulkAddTodos([]string{"a", "b", "c"})
		todos := s.Snapshot().Todos
		s.RemoveTodo(todos[1].ID)
		st := s.Snapshot()
		if st.TodoCount() != 2 || st.Todos[0].Text != "a" || st.Todos[1].Text != "c" {
			t.Fatalf("%s: unexpected todos after remove: %+v", s.Name(), st.Todos)
		}
		s.RemoveTodo(12345)
		if s.Snapshot().TodoCount() != 2 {
			t.Fatalf("%s: removing a missing id changed the list", s.Name())
		}
	}
}

func TestSetLoading(t *testing.T) {
	for _, s := range newBackends() {
		s.SetLoading(true)
		if !s.Snapshot().IsLoading {
			t.Fatalf("%s: loading not set", s.Name())
		}
		s.SetLoading(false)
		if s.Snapshot().IsLoading {
			t.Fatalf("%s: loading not cleared", s.Name())
		}
	}
}

func TestSubscribeNotifiesOncePerCall(t *testing.T) {
	for _, s := range newBackends() {
		calls := 0
		var last AppState
		unsub := s.Subscribe(func(st AppState) {
			calls++
			last = st
		})
		s.Increment()
		if calls != 1 || last.Count != 1 {
			t.Fatalf("%s: calls=%d count=%d after increment", s.Name(), calls, last.Count)
		}
		s.IncrementByAmount(0)
		s.ToggleTodo(99)
		s.BulkAddTodos([]string{"x", "y"})
		if calls != 4 {
			t.Fatalf("%s: calls = %d, want 4", s.Name(), calls)
		}
		if last.TodoCount() != 2 {
			t.Fatalf("%s: subscriber saw %d todos", s.Name(), last.TodoCount())
		}
		unsub()
		s.Increment()
		if calls != 4 {
			t.Fatalf("%s: notified after unsubscribe", s.Name())
		}
	}
}

func TestSubscriberCanReadSnapshot(t *testing.T) {
	for _, s := range newBackends() {
		var seen int
		s.Subscribe(func(AppState) { seen = s.Snapshot().Count })
		s.IncrementByAmount(3)
		if seen != 3 {
			t.Fatalf("%s: snapshot inside listener = %d, want 3", s.Name(), seen)
		}
	}
}

func TestListenerStateSharesTodosWithoutCopy(t *testing.T) {
	for _, s := range newBackends() {
		s.BulkAddTodos([]string{"a", "b", "c"})
		var seen []AppState
		unsub := s.Subscribe(func(st AppState) { seen = append(seen, st) })
		s.Increment()
		s.Increment()
		if len(seen) != 2 || len(seen[0].Todos) != 3 {
			t.Fatalf("%s: unexpected notifications %+v", s.Name(), seen)
		}
		if &seen[0].Todos[0] != &seen[1].Todos[0] {
			t.Fatalf("%s: counter change copied the todo list", s.Name())
		}

		s.ToggleTodo(seen[0].Todos[0].ID)
		if seen[0].Todos[0].Completed {
			t.Fatalf("%s: toggle modified a delivered todo list", s.Name())
		}
		if !seen[2].Todos[0].Completed || &seen[2].Todos[0] == &seen[0].Todos[0] {
			t.Fatalf("%s: toggle did not publish a new todo list", s.Name())
		}

		snap := s.Snapshot()
		snap.Todos[1].Text = "changed"
		if s.Snapshot().Todos[1].Text != "b" || seen[2].Todos[1].Text != "b" {
			t.Fatalf("%s: snapshot shares storage with the store", s.Name())
		}
		unsub()
	}
}

func TestIDSourceMonotonic(t *testing.T) {
	src := NewIDSource(fixedClock())
	a := src.Next()
	b := src.Next()
	if b != a+1 {
		t.Fatalf("ids %d, %d not consecutive on a frozen clock", a, b)
	}
	ids := src.NextN(3)
	if ids[0] != b+1 || ids[2] != b+3 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestReduceUnknownAction(t *testing.T) {
	st := AppState{Count: 2, Todos: []Todo{{ID: 1, Text: "a"}}}
	next := reduce(st, Action{Type: "counter/unknown"})
	if next.Count != 2 || len(next.Todos) != 1 {
		t.Fatalf("unknown action changed state: %+v", next)
	}
}

func TestReduceDoesNotMutatePrevious(t *testing.T) {
	prev := AppState{Todos: []Todo{{ID: 1, Text: "a"}}}
	next := reduce(prev, Action{Type: ActionToggleTodo, Payload: int64(1)})
	if prev.Todos[0].Completed {
		t.Fatalf("previous state mutated")
	}
	if !next.Todos[0].Completed {
		t.Fatalf("next state not toggled")
	}
}
