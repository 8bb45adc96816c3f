// Shared state model and backend contract
package store

// Todo is a single item in the todo list.
type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// AppState is the workload every backend keeps.
type AppState struct {
	Count     int    `json:"count"`
	Todos     []Todo `json:"todos"`
	IsLoading bool   `json:"isLoading"`
}

// Completed returns the todos marked done.
func (s AppState) Completed() []Todo {
	return filterTodos(s.Todos, true)
}

// Pending returns the todos still open.
func (s AppState) Pending() []Todo {
	return filterTodos(s.Todos, false)
}

// TodoCount returns the number of todos.
func (s AppState) TodoCount() int {
	return len(s.Todos)
}

func filterTodos(todos []Todo, completed bool) []Todo {
	var out []Todo
	for _, t := range todos {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

// Listener receives the state after every mutation. The state shares the
// store's todo slice, which is never modified in place, so listeners must
// treat it as read-only and call Snapshot for a copy they can change.
type Listener func(AppState)

// Store is the contract both backends implement. Every mutation is applied
// synchronously and notifies each subscriber exactly once before returning.
type Store interface {
	Name() string
	Snapshot() AppState
	Subscribe(Listener) (unsubscribe func())

	Increment()
	Decrement()
	IncrementByAmount(n int)
	ResetCounter()

	AddTodo(text string)
	BulkAddTodos(texts []string)
	ToggleTodo(id int64)
	RemoveTodo(id int64)

	SetLoading(loading bool)
}

// listeners is a registry of subscribers keyed by a handle so that
// unsubscribing one does not disturb the order of the others.
type listeners struct {
	next  int
	order []int
	fns   map[int]Listener
}

func (l *listeners) add(fn Listener) int {
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.order = append(l.order, id)
	return id
}

func (l *listeners) remove(id int) {
	if _, ok := l.fns[id]; !ok {
		return
	}
	delete(l.fns, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// snapshot copies the current listeners so callers can notify without
// holding the store lock.
func (l *listeners) snapshot() []Listener {
	out := make([]Listener, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.fns[id])
	}
	return out
}

func cloneTodos(todos []Todo) []Todo {
	if todos == nil {
		return nil
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}
