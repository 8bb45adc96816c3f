// Package ui serves the two backend pages, the results page and a JSON API
// driving the lab.
package ui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"storebench/internal/bench"
	"storebench/internal/compare"
	"storebench/internal/lab"
	"storebench/internal/output"
	"storebench/internal/store"
)

// ResultsPlaceholder is shown until both backends have a record.
const ResultsPlaceholder = "Run both benchmarks first to see the comparison."

//go:embed templates/*.html
var content embed.FS

var funcs = template.FuncMap{
	"value":  output.FormatValue,
	"delta":  output.FormatDelta,
	"winner": output.BackendLabel,
}

// Server serves the backend pages, the results page and the JSON API for a
// Lab. Every store change is pushed to the backend's SSE subscribers.
type Server struct {
	Lab     *lab.Lab
	metrics http.Handler
	log     *slog.Logger
	events  *broker
	tpl     *template.Template
	unsubs  []func()
}

// NewServer returns a server for l and subscribes to each backend store.
// metrics may be nil to disable /metrics. Close releases the subscriptions.
func NewServer(l *lab.Lab, metrics http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("").Funcs(funcs).ParseFS(content, "templates/*.html"))
	s := &Server{Lab: l, metrics: metrics, log: log, events: newBroker(), tpl: tpl}
	for _, b := range l.Backends() {
		id := b.ID
		s.unsubs = append(s.unsubs, b.Store.Subscribe(func(st store.AppState) {
			s.events.publish(event{Kind: eventState, Backend: id, Data: st})
		}))
	}
	return s
}

// Close unsubscribes from the backend stores.
func (s *Server) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage(bench.BackendRedux))
	mux.HandleFunc("GET /alt", s.handlePage(bench.BackendAlt))
	mux.HandleFunc("GET /results", s.handleResults)

	mux.HandleFunc("GET /api/results", s.handleResultsAPI)
	mux.HandleFunc("GET /api/{backend}/state", s.withStore(s.handleState))
	mux.HandleFunc("GET /api/{backend}/events", s.withStore(s.handleEvents))
	mux.HandleFunc("POST /api/{backend}/run", s.handleRun)
	mux.HandleFunc("POST /api/{backend}/increment", s.mutate(func(st store.Store, _ *http.Request) error {
		st.Increment()
		return nil
	}))
	mux.HandleFunc("POST /api/{backend}/decrement", s.mutate(func(st store.Store, _ *http.Request) error {
		st.Decrement()
		return nil
	}))
	mux.HandleFunc("POST /api/{backend}/reset", s.mutate(func(st store.Store, _ *http.Request) error {
		st.ResetCounter()
		return nil
	}))
	mux.HandleFunc("POST /api/{backend}/todos", s.mutate(addTodos))
	mux.HandleFunc("POST /api/{backend}/todos/{id}/toggle", s.mutate(func(st store.Store, r *http.Request) error {
		id, err := todoID(r)
		if err != nil {
			return err
		}
		st.ToggleTodo(id)
		return nil
	}))
	mux.HandleFunc("DELETE /api/{backend}/todos/{id}", s.mutate(func(st store.Store, r *http.Request) error {
		id, err := todoID(r)
		if err != nil {
			return err
		}
		st.RemoveTodo(id)
		return nil
	}))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	defer s.Close()
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("ui listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Observe forwards runner phase events to SSE subscribers.
func (s *Server) Observe(ev bench.PhaseEvent) {
	s.events.publish(event{Kind: eventPhase, Backend: ev.Backend, Data: ev})
}

type pageData struct {
	Backend   bench.Backend
	Other     bench.Backend
	OtherPath string
	State     store.AppState
	Record    *bench.MetricsRecord
	Running   bool
}

func pagePath(id string) string {
	if id == bench.BackendAlt {
		return "/alt"
	}
	return "/"
}

func (s *Server) handlePage(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := s.Lab.Backend(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		data := pageData{Backend: b, State: b.Store.Snapshot()}
		for _, o := range s.Lab.Backends() {
			if o.ID != id {
				data.Other, data.OtherPath = o, pagePath(o.ID)
				break
			}
		}
		if rec, ok := s.Lab.Record(id); ok {
			data.Record = &rec
		}
		running, busy := s.Lab.Running()
		data.Running = busy && running == id
		s.render(w, "backend.html", data)
	}
}

type resultsData struct {
	Ready       bool
	Placeholder string
	Result      compare.Result
	Overall     compare.Winner
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	data := resultsData{Placeholder: ResultsPlaceholder}
	if res, ok := s.Lab.Comparison(); ok {
		data.Ready, data.Result, data.Overall = true, res, res.Overall()
	}
	s.render(w, "results.html", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "err", err)
	}
}

func (s *Server) handleResultsAPI(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.Lab.Comparison()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ready": false, "message": ResultsPlaceholder})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true, "overall": res.Overall(), "comparison": res})
}

func (s *Server) withStore(fn func(http.ResponseWriter, *http.Request, bench.Backend)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := s.Lab.Backend(r.PathValue("backend"))
		if !ok {
			writeError(w, http.StatusNotFound, lab.ErrUnknownBackend)
			return
		}
		fn(w, r, b)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request, b bench.Backend) {
	writeJSON(w, http.StatusOK, b.Store.Snapshot())
}

// mutate wraps a store mutation. Mutations are refused while the backend is
// being benchmarked; the new state is returned. SSE subscribers receive it
// through the store subscription.
func (s *Server) mutate(fn func(store.Store, *http.Request) error) http.HandlerFunc {
	return s.withStore(func(w http.ResponseWriter, r *http.Request, b bench.Backend) {
		if running, busy := s.Lab.Running(); busy && running == b.ID {
			writeError(w, http.StatusConflict, lab.ErrBusy)
			return
		}
		if err := fn(b.Store, r); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, b.Store.Snapshot())
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("backend")
	rec, err := s.Lab.Run(r.Context(), id)
	switch {
	case errors.Is(err, lab.ErrUnknownBackend):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, lab.ErrBusy):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.log.Error("benchmark failed", "backend", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.events.publish(event{Kind: eventRecord, Backend: id, Data: rec})
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, b bench.Backend) {
	f, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	ch, cancel := s.events.subscribe(b.ID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, f, event{Kind: eventState, Backend: b.ID, Data: b.Store.Snapshot()}); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := writeEvent(w, f, ev); err != nil {
				s.log.Debug("sse write failed", "backend", b.ID, "err", err)
				return
			}
		}
	}
}

type todoRequest struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts"`
}

func addTodos(st store.Store, r *http.Request) error {
	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return err
	}
	switch {
	case len(req.Texts) > 0:
		st.BulkAddTodos(req.Texts)
	case req.Text != "":
		st.AddTodo(req.Text)
	default:
		return errors.New("todo text required")
	}
	return nil
}

func todoID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
