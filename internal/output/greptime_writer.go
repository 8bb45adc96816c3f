package output

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"storebench/internal/bench"
)

// Default table names in GreptimeDB.
const (
	DefaultRunsTable   = "storebench_runs"
	DefaultPhasesTable = "storebench_phases"
)

const (
	defaultGreptimePort = 4001
	writeTimeout        = 5 * time.Second
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter stores run records and phase events in GreptimeDB.
type GreptimeDBWriter struct {
	client      greptimeClient
	runsTable   string
	phasesTable string
	log         *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint (host or host:port). Empty table
// names fall back to the defaults; phasesTable "-" disables phase rows.
func NewGreptimeDBWriter(endpoint, database, runsTable, phasesTable string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if database == "" {
		database = "public"
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if runsTable == "" {
		runsTable = DefaultRunsTable
	}
	if phasesTable == "" {
		phasesTable = DefaultPhasesTable
	}
	if phasesTable == "-" {
		phasesTable = ""
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{client: client, runsTable: runsTable, phasesTable: phasesTable, log: log}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptime endpoint is empty")
	}
	host, p, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint port %q: %w", p, err)
	}
	return host, port, nil
}

// RunsTable returns the table receiving records.
func (w *GreptimeDBWriter) RunsTable() string { return w.runsTable }

// WriteRecord inserts a single record.
func (w *GreptimeDBWriter) WriteRecord(r bench.MetricsRecord) error {
	return w.WriteRecords([]bench.MetricsRecord{r})
}

// WriteRecords inserts several records in one request.
func (w *GreptimeDBWriter) WriteRecords(rs []bench.MetricsRecord) error {
	if len(rs) == 0 {
		return nil
	}
	tbl, err := table.New(w.runsTable)
	if err != nil {
		return err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"backend", true, types.STRING},
		{"variant", true, types.STRING},
		{"run_id", false, types.STRING},
		{"render_ms", false, types.FLOAT64},
		{"update_ms", false, types.FLOAT64},
		{"memory_bytes", false, types.UINT64},
		{"bundle_kb", false, types.FLOAT64},
		{"ops_per_sec", false, types.FLOAT64},
		{"throughput_ops", false, types.INT64},
		{"window_ms", false, types.FLOAT64},
		{"iterations", false, types.INT64},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rs {
		if err := tbl.AddRow(r.Backend, r.Variant, r.RunID,
			r.RenderTimeMs, r.UpdateTimeMs, r.MemoryBytes, r.BundleSizeKB,
			r.OperationsPerSecond, r.ThroughputOps, r.ThroughputWindowMs,
			int64(r.Iterations), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rs))
}

// WritePhase inserts a phase event when a phases table is configured.
func (w *GreptimeDBWriter) WritePhase(e bench.PhaseEvent) error {
	if w.phasesTable == "" {
		return nil
	}
	tbl, err := table.New(w.phasesTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("backend", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("phase", types.STRING); err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		typ  types.ColumnType
	}{
		{"run_id", types.STRING},
		{"status", types.STRING},
		{"count", types.INT64},
		{"ops", types.INT64},
		{"elapsed_ms", types.FLOAT64},
	} {
		if err := tbl.AddFieldColumn(c.name, c.typ); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	if err := tbl.AddRow(e.Backend, string(e.Phase), e.RunID, string(e.Status),
		int64(e.Count), e.Ops, e.ElapsedMs, e.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.log.Error("greptime write failed", "err", err)
		return err
	}
	w.log.Debug("greptime rows written", "rows", n)
	return nil
}
