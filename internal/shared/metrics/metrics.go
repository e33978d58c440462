package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Outcome labels shared by callers.
const (
	OutcomeOK    = "ok"
	OutcomeStale = "stale"
)

var (
	analyses          = newCounterVec("analyses_total", "Analyses by outcome", "outcome")
	extractions       = newCounterVec("extractions_total", "Document extractions by format and outcome", "kind", "outcome")
	sessionTransition = newCounterVec("session_transitions_total", "Session view transitions by target view", "to")

	analysisSeconds   = newHistogram("analysis_duration_seconds", "Provider round trip including validation", []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120})
	extractionSeconds = newHistogram("extraction_duration_seconds", "Document to text conversion", []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5})
)

// ObserveAnalysis records a finished analysis. Outcome is OutcomeOK or an error code.
func ObserveAnalysis(outcome string, elapsed time.Duration) {
	analyses.Inc(outcome)
	analysisSeconds.Observe(elapsed.Seconds())
}

// IncAnalysisStale counts results dropped because the session moved on.
func IncAnalysisStale() {
	analyses.Inc(OutcomeStale)
}

// ObserveExtraction records one upload conversion.
func ObserveExtraction(kind, outcome string, elapsed time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	extractions.Inc(kind, outcome)
	extractionSeconds.Observe(elapsed.Seconds())
}

// IncSessionTransition counts a saved view change.
func IncSessionTransition(to string) {
	sessionTransition.Inc(to)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	analyses.write(&buf)
	extractions.write(&buf)
	sessionTransition.write(&buf)
	analysisSeconds.write(&buf)
	extractionSeconds.write(&buf)
	return buf.String()
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(name, help string, labels ...string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: map[string]uint64{}}
}

// Inc adds one to the series identified by values, given in label order.
func (c *counterVec) Inc(values ...string) {
	key := c.series(values)
	c.mu.Lock()
	c.values[key]++
	c.mu.Unlock()
}

func (c *counterVec) Value(values ...string) uint64 {
	key := c.series(values)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *counterVec) series(values []string) string {
	pairs := make([]string, len(c.labels))
	for i, label := range c.labels {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pairs[i] = fmt.Sprintf("%s=%q", label, v)
	}
	return strings.Join(pairs, ",")
}

func (c *counterVec) write(buf *bytes.Buffer) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(buf, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", c.name)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s} %d\n", c.name, k, c.values[k])
	}
	c.mu.Unlock()
}

type histogram struct {
	name    string
	help    string
	buckets []float64

	mu     sync.Mutex
	counts []uint64
	sum    float64
	count  uint64
}

func newHistogram(name, help string, buckets []float64) *histogram {
	return &histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value; negative values count as zero.
func (h *histogram) Observe(value float64) {
	if value < 0 {
		value = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) write(buf *bytes.Buffer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(buf, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", h.name)
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", h.name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(buf, "%s_sum %s\n", h.name, formatFloat(h.sum))
	fmt.Fprintf(buf, "%s_count %d\n", h.name, h.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
