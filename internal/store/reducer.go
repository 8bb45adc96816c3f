package store

import "sync"

// ActionType names a reducer action.
type ActionType string

// Actions understood by the reducer.
const (
	ActionIncrement         ActionType = "counter/increment"
	ActionDecrement         ActionType = "counter/decrement"
	ActionIncrementByAmount ActionType = "counter/incrementByAmount"
	ActionResetCounter      ActionType = "counter/resetCounter"
	ActionAddTodo           ActionType = "counter/addTodo"
	ActionBulkAddTodos      ActionType = "counter/bulkAddTodos"
	ActionToggleTodo        ActionType = "counter/toggleTodo"
	ActionRemoveTodo        ActionType = "counter/removeTodo"
	ActionSetLoading        ActionType = "counter/setLoading"
)

// Action is a plain description of a state change.
type Action struct {
	Type    ActionType
	Payload any
}

// ReducerStore is the Redux-style backend: every operation is an Action
// dispatched through a pure reducer.
type ReducerStore struct {
	mu    sync.Mutex
	name  string
	state AppState
	subs  listeners
	ids   *IDSource
}

// NewReducerStore creates an empty reducer-backed store.
func NewReducerStore(name string, ids *IDSource) *ReducerStore {
	if ids == nil {
		ids = NewIDSource(nil)
	}
	return &ReducerStore{name: name, ids: ids}
}

// Name returns the backend name.
func (s *ReducerStore) Name() string { return s.name }

// Snapshot returns a copy of the current state.
func (s *ReducerStore) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Todos = cloneTodos(st.Todos)
	return st
}

// Subscribe registers fn for every dispatched action.
func (s *ReducerStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
}

// Dispatch runs the reducer and notifies subscribers once.
func (s *ReducerStore) Dispatch(a Action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	st := s.state
	subs := s.subs.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (s *ReducerStore) Increment() { s.Dispatch(Action{Type: ActionIncrement}) }

func (s *ReducerStore) Decrement() { s.Dispatch(Action{Type: ActionDecrement}) }

func (s *ReducerStore) IncrementByAmount(n int) {
	s.Dispatch(Action{Type: ActionIncrementByAmount, Payload: n})
}

func (s *ReducerStore) ResetCounter() { s.Dispatch(Action{Type: ActionResetCounter}) }

// AddTodo appends a todo. The id is assigned here, outside the reducer, so
// the reducer stays pure.
func (s *ReducerStore) AddTodo(text string) {
	s.Dispatch(Action{Type: ActionAddTodo, Payload: Todo{ID: s.ids.Next(), Text: text}})
}

func (s *ReducerStore) BulkAddTodos(texts []string) {
	ids := s.ids.NextN(len(texts))
	todos := make([]Todo, len(texts))
	for i, text := range texts {
		todos[i] = Todo{ID: ids[i], Text: text}
	}
	s.Dispatch(Action{Type: ActionBulkAddTodos, Payload: todos})
}

func (s *ReducerStore) ToggleTodo(id int64) {
	s.Dispatch(Action{Type: ActionToggleTodo, Payload: id})
}

func (s *ReducerStore) RemoveTodo(id int64) {
	s.Dispatch(Action{Type: ActionRemoveTodo, Payload: id})
}

func (s *ReducerStore) SetLoading(loading bool) {
	s.Dispatch(Action{Type: ActionSetLoading, Payload: loading})
}

// reduce returns the next state. The todo slice of the previous state is
// never modified in place.
func reduce(state AppState, a Action) AppState {
	switch a.Type {
	case ActionIncrement:
		state.Count++
	case ActionDecrement:
		state.Count--
	case ActionIncrementByAmount:
		if n, ok := a.Payload.(int); ok {
			state.Count += n
		}
	case ActionResetCounter:
		state.Count = 0
	case ActionAddTodo:
		if t, ok := a.Payload.(Todo); ok {
			t.Completed = false
			todos := make([]Todo, 0, len(state.Todos)+1)
			todos = append(todos, state.Todos...)
			state.Todos = append(todos, t)
		}
	case ActionBulkAddTodos:
		if added, ok := a.Payload.([]Todo); ok && len(added) > 0 {
			todos := make([]Todo, 0, len(state.Todos)+len(added))
			todos = append(todos, state.Todos...)
			for _, t := range added {
				t.Completed = false
				todos = append(todos, t)
			}
			state.Todos = todos
		}
	case ActionToggleTodo:
		if id, ok := a.Payload.(int64); ok {
			for i, t := range state.Todos {
				if t.ID == id {
					todos := cloneTodos(state.Todos)
					todos[i].Completed = !todos[i].Completed
					state.Todos = todos
					break
				}
			}
		}
	case ActionRemoveTodo:
		if id, ok := a.Payload.(int64); ok {
			for i, t := range state.Todos {
				if t.ID == id {
					todos := make([]Todo, 0, len(state.Todos)-1)
					todos = append(todos, state.Todos[:i]...)
					state.Todos = append(todos, state.Todos[i+1:]...)
					break
				}
			}
		}
	case ActionSetLoading:
		if b, ok := a.Payload.(bool); ok {
			state.IsLoading = b
		}
	}
	return state
}
