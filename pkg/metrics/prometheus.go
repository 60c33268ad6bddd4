package metrics

import (
	"fmt"
	"io"

	"github.com/mnohosten/mira-db/pkg/storage"
)

// PrometheusExporter exports metrics in Prometheus text format.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
type PrometheusExporter struct {
	collector *Collector
	pool      *storage.BufferPool
	disk      *storage.DiskManager
	namespace string // Metric namespace prefix (e.g., "mira_db")
}

// NewPrometheusExporter creates a new Prometheus exporter. The pool and disk
// sources may be nil; their metric families are then omitted.
func NewPrometheusExporter(collector *Collector, pool *storage.BufferPool, disk *storage.DiskManager) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		pool:      pool,
		disk:      disk,
		namespace: "mira_db",
	}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.GetSnapshot()

	if err := pe.writeGauge(w, "uptime_seconds", "Process uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	counters := []struct {
		name  string
		help  string
		value uint64
	}{
		{"transactions_began_total", "Total number of transactions started", snap.TxnBegan},
		{"transactions_committed_total", "Total number of committed transactions", snap.TxnCommitted},
		{"transactions_aborted_total", "Total number of aborted transactions", snap.TxnAborted},
		{"tuples_inserted_total", "Total number of tuples inserted", snap.TuplesInserted},
		{"tuples_deleted_total", "Total number of tuples deleted", snap.TuplesDeleted},
		{"tuples_scanned_total", "Total number of tuples produced by scans", snap.TuplesScanned},
		{"locks_granted_total", "Total number of granted lock requests", snap.LocksGranted},
		{"locks_denied_total", "Total number of denied lock requests", snap.LocksDenied},
	}
	for _, c := range counters {
		if err := pe.writeCounter(w, c.name, c.help, c.value); err != nil {
			return err
		}
	}

	if pe.pool != nil {
		stats := pe.pool.Stats()
		if err := pe.writeGauge(w, "buffer_pool_capacity", "Number of frames in the buffer pool", float64(stats.Capacity)); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "buffer_pool_resident_pages", "Number of pages currently resident", float64(stats.Resident)); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "buffer_pool_free_frames", "Number of frames on the free list", float64(stats.FreeFrames)); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "buffer_pool_evictable_frames", "Number of frames eligible for eviction", float64(stats.Evictable)); err != nil {
			return err
		}
		poolCounters := []struct {
			name  string
			help  string
			value uint64
		}{
			{"buffer_pool_hits_total", "Total buffer pool hits", stats.Hits},
			{"buffer_pool_misses_total", "Total buffer pool misses", stats.Misses},
			{"buffer_pool_evictions_total", "Total frames evicted", stats.Evictions},
			{"buffer_pool_dirty_writebacks_total", "Total dirty pages written back on eviction", stats.DirtyWriteBack},
		}
		for _, c := range poolCounters {
			if err := pe.writeCounter(w, c.name, c.help, c.value); err != nil {
				return err
			}
		}
	}

	if pe.disk != nil {
		if err := pe.writeCounter(w, "disk_page_reads_total", "Total page reads from disk", uint64(pe.disk.ReadCount())); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "disk_page_writes_total", "Total page writes to disk", uint64(pe.disk.WriteCount())); err != nil {
			return err
		}
	}

	return nil
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	full := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", full, help, full, full, value); err != nil {
		return fmt.Errorf("failed to write counter %s: %w", name, err)
	}
	return nil
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	full := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", full, help, full, full, value); err != nil {
		return fmt.Errorf("failed to write gauge %s: %w", name, err)
	}
	return nil
}
