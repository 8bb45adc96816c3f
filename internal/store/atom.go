package store

import "sync"

// Atom holds a single value and notifies its listeners on every write.
type Atom[T any] struct {
	mu    sync.Mutex
	value T
	subs  []atomSub[T]
	next  int
}

type atomSub[T any] struct {
	id int
	fn func(T)
}

// NewAtom creates an atom with an initial value.
func NewAtom[T any](initial T) *Atom[T] {
	return &Atom[T]{value: initial}
}

// Get returns the current value.
func (a *Atom[T]) Get() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Set replaces the value and notifies listeners.
func (a *Atom[T]) Set(v T) {
	a.Update(func(T) T { return v })
}

// Update applies fn to the current value under the atom lock, then notifies
// listeners with the result.
func (a *Atom[T]) Update(fn func(T) T) {
	a.mu.Lock()
	a.value = fn(a.value)
	v := a.value
	subs := make([]func(T), len(a.subs))
	for i, s := range a.subs {
		subs[i] = s.fn
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Listen registers fn for future writes.
func (a *Atom[T]) Listen(fn func(T)) func() {
	a.mu.Lock()
	id := a.next
	a.next++
	a.subs = append(a.subs, atomSub[T]{id: id, fn: fn})
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i], a.subs[i+1:]...)
				return
			}
		}
	}
}

// AtomStore is the atomic backend: count, todos and loading live in
// separate atoms and the store republishes a combined snapshot whenever any
// of them changes.
type AtomStore struct {
	name    string
	count   *Atom[int]
	todos   *Atom[[]Todo]
	loading *Atom[bool]
	ids     *IDSource

	mu   sync.Mutex
	subs listeners
}

// NewAtomStore creates an empty atom-backed store.
func NewAtomStore(name string, ids *IDSource) *AtomStore {
	if ids == nil {
		ids = NewIDSource(nil)
	}
	s := &AtomStore{
		name:    name,
		count:   NewAtom(0),
		todos:   NewAtom[[]Todo](nil),
		loading: NewAtom(false),
		ids:     ids,
	}
	s.count.Listen(func(int) { s.publish() })
	s.todos.Listen(func([]Todo) { s.publish() })
	s.loading.Listen(func(bool) { s.publish() })
	return s
}

// Name returns the backend name.
func (s *AtomStore) Name() string { return s.name }

// Snapshot combines the atoms into an AppState.
func (s *AtomStore) Snapshot() AppState {
	return AppState{
		Count:     s.count.Get(),
		Todos:     cloneTodos(s.todos.Get()),
		IsLoading: s.loading.Get(),
	}
}

// Subscribe registers fn for changes to any atom.
func (s *AtomStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
}

func (s *AtomStore) publish() {
	s.mu.Lock()
	subs := s.subs.snapshot()
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	st := AppState{Count: s.count.Get(), Todos: s.todos.Get(), IsLoading: s.loading.Get()}
	for _, fn := range subs {
		fn(st)
	}
}

func (s *AtomStore) Increment() {
	s.count.Update(func(c int) int { return c + 1 })
}

func (s *AtomStore) Decrement() {
	s.count.Update(func(c int) int { return c - 1 })
}

func (s *AtomStore) IncrementByAmount(n int) {
	s.count.Update(func(c int) int { return c + n })
}

func (s *AtomStore) ResetCounter() { s.count.Set(0) }

func (s *AtomStore) AddTodo(text string) {
	t := Todo{ID: s.ids.Next(), Text: text}
	s.todos.Update(func(todos []Todo) []Todo {
		out := make([]Todo, 0, len(todos)+1)
		out = append(out, todos...)
		return append(out, t)
	})
}

func (s *AtomStore) BulkAddTodos(texts []string) {
	ids := s.ids.NextN(len(texts))
	s.todos.Update(func(todos []Todo) []Todo {
		if len(texts) == 0 {
			return todos
		}
		out := make([]Todo, 0, len(todos)+len(texts))
		out = append(out, todos...)
		for i, text := range texts {
			out = append(out, Todo{ID: ids[i], Text: text})
		}
		return out
	})
}

func (s *AtomStore) ToggleTodo(id int64) {
	s.todos.Update(func(todos []Todo) []Todo {
		for i, t := range todos {
			if t.ID == id {
				out := cloneTodos(todos)
				out[i].Completed = !out[i].Completed
				return out
			}
		}
		return todos
	})
}

func (s *AtomStore) RemoveTodo(id int64) {
	s.todos.Update(func(todos []Todo) []Todo {
		out := make([]Todo, 0, len(todos))
		for _, t := range todos {
			if t.ID != id {
				out = append(out, t)
			}
		}
		if len(out) == len(todos) {
			return todos
		}
		return out
	})
}

func (s *AtomStore) SetLoading(loading bool) { s.loading.Set(loading) }
