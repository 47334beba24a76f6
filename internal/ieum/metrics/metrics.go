// Package metrics 提供 ieum-rag 的业务指标收集与 Prometheus 文本导出。
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Namespace 是导出指标名的前缀。
const Namespace = "ieum_rag"

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Metrics ieum-rag 业务指标。
type Metrics struct {
	// 摄取指标
	uploadsTotal  uint64
	uploadErrors  uint64
	chunksIndexed uint64
	entryFailures uint64
	entriesPurged uint64

	// 问答指标
	queriesTotal    uint64
	queriesNoResult uint64
	queryErrors     uint64

	// 分析指标
	analysesTotal  uint64
	analysesStored uint64
	analysisErrors uint64

	// 纪要指标
	minutesTotal   uint64
	minutesApplied uint64
	minutesErrors  uint64

	// 删除指标
	deletesTotal   uint64
	entriesDeleted uint64
	deleteErrors   uint64

	durationMu sync.Mutex
	durations  map[string]float64 // 各操作累计耗时（秒）
	startTime  time.Time
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// New 创建独立的指标实例。
func New() *Metrics {
	return &Metrics{
		durations: make(map[string]float64),
		startTime: time.Now(),
	}
}

// Get 获取全局指标实例。
func Get() *Metrics {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// RecordUpload 记录一次摄取。
func (m *Metrics) RecordUpload(indexed, failed int, purged int64, err error) {
	atomic.AddUint64(&m.uploadsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.uploadErrors, 1)
		return
	}
	atomic.AddUint64(&m.chunksIndexed, uint64(indexed))
	atomic.AddUint64(&m.entryFailures, uint64(failed))
	if purged > 0 {
		atomic.AddUint64(&m.entriesPurged, uint64(purged))
	}
}

// RecordQuery 记录一次问答，noResult 表示检索为空。
func (m *Metrics) RecordQuery(noResult bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queryErrors, 1)
		return
	}
	if noResult {
		atomic.AddUint64(&m.queriesNoResult, 1)
	}
}

// RecordAnalysis 记录一次会议分析。
func (m *Metrics) RecordAnalysis(stored bool, err error) {
	atomic.AddUint64(&m.analysesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.analysisErrors, 1)
		return
	}
	if stored {
		atomic.AddUint64(&m.analysesStored, 1)
	}
}

// RecordMinutes 记录一次纪要生成。
func (m *Metrics) RecordMinutes(applied int, err error) {
	atomic.AddUint64(&m.minutesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.minutesErrors, 1)
		return
	}
	atomic.AddUint64(&m.minutesApplied, uint64(applied))
}

// RecordDelete 记录一次删除。
func (m *Metrics) RecordDelete(entries int64, err error) {
	atomic.AddUint64(&m.deletesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.deleteErrors, 1)
		return
	}
	if entries > 0 {
		atomic.AddUint64(&m.entriesDeleted, uint64(entries))
	}
}

// ObserveDuration 累加操作耗时。
func (m *Metrics) ObserveDuration(operation string, d time.Duration) {
	m.durationMu.Lock()
	m.durations[operation] += d.Seconds()
	m.durationMu.Unlock()
}

type sample struct {
	name  string
	help  string
	typ   string
	value string
}

func counter(name, help string, v *uint64) sample {
	return sample{name: name, help: help, typ: "counter", value: fmt.Sprintf("%d", atomic.LoadUint64(v))}
}

// Export 导出 Prometheus 文本格式指标。
func (m *Metrics) Export(namespace string) string {
	samples := []sample{
		counter("uploads_total", "Total number of ingestion requests.", &m.uploadsTotal),
		counter("upload_errors_total", "Number of failed ingestion requests.", &m.uploadErrors),
		counter("chunks_indexed_total", "Total chunks written to the search index.", &m.chunksIndexed),
		counter("entry_failures_total", "Chunks that failed to index and were skipped.", &m.entryFailures),
		counter("entries_purged_total", "Stale entries removed before re-ingestion.", &m.entriesPurged),
		counter("queries_total", "Total number of chat queries.", &m.queriesTotal),
		counter("queries_no_result_total", "Chat queries answered without any retrieved context.", &m.queriesNoResult),
		counter("query_errors_total", "Number of failed chat queries.", &m.queryErrors),
		counter("analyses_total", "Total number of meeting analyses.", &m.analysesTotal),
		counter("analyses_stored_total", "Meeting analyses stored as history entries.", &m.analysesStored),
		counter("analysis_errors_total", "Number of failed meeting analyses.", &m.analysisErrors),
		counter("minutes_total", "Total number of minutes generations.", &m.minutesTotal),
		counter("minutes_updates_applied_total", "Template updates applied while generating minutes.", &m.minutesApplied),
		counter("minutes_errors_total", "Number of failed minutes generations.", &m.minutesErrors),
		counter("deletes_total", "Total number of delete requests.", &m.deletesTotal),
		counter("entries_deleted_total", "Index entries removed by delete requests.", &m.entriesDeleted),
		counter("delete_errors_total", "Number of failed delete requests.", &m.deleteErrors),
	}

	var sb strings.Builder
	for _, s := range samples {
		writeSample(&sb, namespace, s)
	}

	m.durationMu.Lock()
	ops := make([]string, 0, len(m.durations))
	for op := range m.durations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	if len(ops) > 0 {
		name := namespace + "_operation_duration_seconds_total"
		fmt.Fprintf(&sb, "# HELP %s Accumulated duration per operation.\n", name)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", name)
		for _, op := range ops {
			fmt.Fprintf(&sb, "%s{operation=%q} %.6f\n", name, op, m.durations[op])
		}
		sb.WriteString("\n")
	}
	m.durationMu.Unlock()

	writeSample(&sb, namespace, sample{
		name:  "uptime_seconds",
		help:  "Service uptime in seconds.",
		typ:   "gauge",
		value: fmt.Sprintf("%.2f", time.Since(m.startTime).Seconds()),
	})
	return sb.String()
}

func writeSample(sb *strings.Builder, namespace string, s sample) {
	name := namespace + "_" + s.name
	fmt.Fprintf(sb, "# HELP %s %s\n", name, s.help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, s.typ)
	fmt.Fprintf(sb, "%s %s\n\n", name, s.value)
}

// Handler 返回导出指标的 gin 处理函数。
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, contentType, []byte(m.Export(Namespace)))
	}
}
