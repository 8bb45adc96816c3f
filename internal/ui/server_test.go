package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"storebench/internal/bench"
	"storebench/internal/lab"
	"storebench/internal/store"
)

func newTestServer(t *testing.T, opts ...bench.Option) (*Server, *lab.Lab) {
	t.Helper()
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	backends := []bench.Backend{
		{ID: bench.BackendRedux, Name: "Redux Toolkit", BundleSizeKB: 13.5, Store: store.NewReducerStore("redux", store.NewIDSource(clock))},
		{ID: bench.BackendAlt, Name: "Nanostores", BundleSizeKB: 2.1, Store: store.NewAtomStore("alt", store.NewIDSource(clock))},
	}
	var tick time.Time
	base := []bench.Option{
		bench.WithClock(func() time.Time { tick = tick.Add(time.Millisecond); return tick }),
		bench.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		bench.WithYield(func() {}),
		bench.WithMemorySampler(bench.MemorySamplerFunc(func() (uint64, error) { return 2048, nil })),
	}
	runner, err := bench.NewRunner(bench.Config{
		Variant:          "test",
		Iterations:       5,
		RenderOp:         bench.RenderIncrement,
		ThroughputWindow: 5 * time.Millisecond,
	}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	l := lab.New(runner, backends, nil, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics")) })
	s := NewServer(l, metrics, nil)
	t.Cleanup(s.Close)
	return s, l
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) store.AppState {
	t.Helper()
	var s store.AppState
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestCounterEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	for _, backend := range []string{bench.BackendRedux, bench.BackendAlt} {
		do(t, h, http.MethodPost, "/api/"+backend+"/increment", "")
		do(t, h, http.MethodPost, "/api/"+backend+"/increment", "")
		w := do(t, h, http.MethodPost, "/api/"+backend+"/decrement", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s decrement status = %d", backend, w.Code)
		}
		if got := decodeState(t, w).Count; got != 1 {
			t.Errorf("%s count = %d, want 1", backend, got)
		}
		w = do(t, h, http.MethodPost, "/api/"+backend+"/reset", "")
		if got := decodeState(t, w).Count; got != 0 {
			t.Errorf("%s count after reset = %d", backend, got)
		}
	}
}

func TestTodoEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/api/alt/todos", `{"text":"write tests"}`)
	state := decodeState(t, w)
	if len(state.Todos) != 1 || state.Todos[0].Text != "write tests" {
		t.Fatalf("unexpected todos %+v", state.Todos)
	}
	id := state.Todos[0].ID

	w = do(t, h, http.MethodPost, "/api/alt/todos", `{"texts":["a","b"]}`)
	if got := len(decodeState(t, w).Todos); got != 3 {
		t.Fatalf("bulk add produced %d todos", got)
	}

	path := "/api/alt/todos/" + strconv.FormatInt(id, 10)
	w = do(t, h, http.MethodPost, path+"/toggle", "")
	if !decodeState(t, w).Todos[0].Completed {
		t.Fatalf("todo not toggled")
	}
	w = do(t, h, http.MethodDelete, path, "")
	if got := len(decodeState(t, w).Todos); got != 2 {
		t.Fatalf("delete left %d todos", got)
	}

	if w := do(t, h, http.MethodPost, "/api/alt/todos", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty todo status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/alt/todos/abc/toggle", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
}

func TestUnknownBackend(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	for _, path := range []string{"/api/vuex/increment", "/api/vuex/run"} {
		if w := do(t, h, http.MethodPost, path, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, w.Code)
		}
	}
	if w := do(t, h, http.MethodGet, "/api/vuex/state", ""); w.Code != http.StatusNotFound {
		t.Errorf("state status = %d, want 404", w.Code)
	}
}

func TestResultsPlaceholderUntilBothRuns(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/results", "")
	if !strings.Contains(w.Body.String(), ResultsPlaceholder) {
		t.Fatalf("placeholder missing from %q", w.Body.String())
	}

	if w := do(t, h, http.MethodPost, "/api/redux/run", ""); w.Code != http.StatusOK {
		t.Fatalf("run redux status = %d: %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/results", "")
	if !strings.Contains(w.Body.String(), ResultsPlaceholder) {
		t.Fatalf("placeholder should remain with one record")
	}
	var api map[string]any
	json.NewDecoder(do(t, h, http.MethodGet, "/api/results", "").Body).Decode(&api)
	if api["ready"] != false {
		t.Fatalf("api ready = %v", api["ready"])
	}

	w = do(t, h, http.MethodPost, "/api/alt/run", "")
	var rec bench.MetricsRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil || rec.Backend != bench.BackendAlt {
		t.Fatalf("unexpected run response %+v, %v", rec, err)
	}

	w = do(t, h, http.MethodGet, "/results", "")
	body := w.Body.String()
	if strings.Contains(body, ResultsPlaceholder) {
		t.Fatalf("placeholder shown with both records")
	}
	for _, want := range []string{"Render Time", "Bundle Size", "Operations/sec", "Overall winner"} {
		if !strings.Contains(body, want) {
			t.Errorf("results page missing %q", want)
		}
	}

	api = nil
	json.NewDecoder(do(t, h, http.MethodGet, "/api/results", "").Body).Decode(&api)
	if api["ready"] != true || api["comparison"] == nil {
		t.Fatalf("unexpected api results %v", api)
	}
}

func TestBackendPages(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Redux Toolkit") {
		t.Fatalf("redux page: %d %q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "No benchmark recorded yet.") {
		t.Errorf("expected empty record notice")
	}
	w = do(t, h, http.MethodGet, "/alt", "")
	if !strings.Contains(w.Body.String(), `data-backend="alt"`) {
		t.Fatalf("alt page missing backend marker")
	}
	if w := do(t, h, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown page status = %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	if w := do(t, h, http.MethodGet, "/healthz", ""); w.Body.String() != "ok" {
		t.Errorf("healthz body %q", w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/metrics", ""); !strings.Contains(w.Body.String(), "# metrics") {
		t.Errorf("metrics not routed")
	}
}

func TestMutationRefusedWhileRunning(t *testing.T) {
	var h http.Handler
	status := 0
	s, _ := newTestServer(t, bench.WithObserver(func(ev bench.PhaseEvent) {
		if status == 0 && ev.Phase == bench.PhaseRender {
			status = do(t, h, http.MethodPost, "/api/redux/increment", "").Code
		}
	}))
	h = s.Handler()
	if w := do(t, h, http.MethodPost, "/api/redux/run", ""); w.Code != http.StatusOK {
		t.Fatalf("run status = %d", w.Code)
	}
	if status != http.StatusConflict {
		t.Fatalf("mutation during run status = %d, want 409", status)
	}
	if w := do(t, h, http.MethodPost, "/api/alt/increment", ""); w.Code != http.StatusOK {
		t.Fatalf("other backend mutation status = %d", w.Code)
	}
}

// openEvents connects to the backend's SSE stream and returns a function
// reading the next event kind and payload.
func openEvents(t *testing.T, s *Server, backend string) func() (string, string) {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/"+backend+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
	rd := bufio.NewReader(resp.Body)
	return func() (string, string) {
		var kind, data string
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				t.Fatalf("read event: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				kind = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return kind, data
			}
		}
	}
}

func TestEventsStream(t *testing.T) {
	s, _ := newTestServer(t)
	readEvent := openEvents(t, s, bench.BackendRedux)

	if kind, _ := readEvent(); kind != eventState {
		t.Fatalf("first event %q, want state", kind)
	}
	s.Observe(bench.PhaseEvent{Backend: bench.BackendAlt, Phase: bench.PhaseRender})
	s.Observe(bench.PhaseEvent{Backend: bench.BackendRedux, Phase: bench.PhaseUpdate, Status: bench.PhaseStarted})
	kind, data := readEvent()
	if kind != eventPhase || !strings.Contains(data, `"phase":"update"`) {
		t.Fatalf("unexpected event %s %s", kind, data)
	}
}

func TestEventsStreamFollowsStoreChanges(t *testing.T) {
	s, l := newTestServer(t)
	readEvent := openEvents(t, s, bench.BackendAlt)
	if kind, _ := readEvent(); kind != eventState {
		t.Fatalf("first event %q, want state", kind)
	}

	b, _ := l.Backend(bench.BackendAlt)
	b.Store.Increment()
	kind, data := readEvent()
	if kind != eventState {
		t.Fatalf("event %q after direct increment, want state", kind)
	}
	var st store.AppState
	if err := json.Unmarshal([]byte(data), &st); err != nil || st.Count != 1 {
		t.Fatalf("state event %s, %v", data, err)
	}

	b.Store.AddTodo("from the store")
	if _, data := readEvent(); !strings.Contains(data, "from the store") {
		t.Fatalf("todo change not streamed: %s", data)
	}
}

func TestMutationStreamsOneStateEvent(t *testing.T) {
	s, _ := newTestServer(t)
	ch, cancel := s.events.subscribe(bench.BackendRedux)
	defer cancel()
	if w := do(t, s.Handler(), http.MethodPost, "/api/redux/increment", ""); w.Code != http.StatusOK {
		t.Fatalf("increment status = %d", w.Code)
	}
	if len(ch) != 1 {
		t.Fatalf("queued %d events, want 1", len(ch))
	}
}

func TestCloseStopsStoreEvents(t *testing.T) {
	s, l := newTestServer(t)
	ch, cancel := s.events.subscribe(bench.BackendRedux)
	defer cancel()
	s.Close()
	b, _ := l.Backend(bench.BackendRedux)
	b.Store.Increment()
	if len(ch) != 0 {
		t.Fatalf("store change forwarded after Close")
	}
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := newBroker()
	ch, cancel := b.subscribe(bench.BackendRedux)
	for i := 0; i < 100; i++ {
		b.publish(event{Kind: eventPhase, Backend: bench.BackendRedux})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffered %d events, want %d", len(ch), cap(ch))
	}
	cancel()
	if b.subscribers() != 0 {
		t.Fatalf("subscriber not removed")
	}
}
