package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/John-Robertt/clashforge/internal/model"
)

// counter is one labelled counter family in the Prometheus text format.
type counter struct {
	name   string
	help   string
	labels []string
	values map[string]uint64 // label values joined by \x1f
}

func newCounter(name, help string, labels ...string) *counter {
	return &counter{name: name, help: help, labels: labels, values: make(map[string]uint64)}
}

func (c *counter) add(n uint64, values ...string) {
	for i, v := range values {
		if v = strings.TrimSpace(v); v == "" {
			values[i] = "(unknown)"
		} else {
			values[i] = v
		}
	}
	c.values[strings.Join(values, "\x1f")] += n
}

func (c *counter) writeTo(b *strings.Builder) {
	b.WriteString("# HELP " + c.name + " " + c.help + "\n")
	b.WriteString("# TYPE " + c.name + " counter\n")

	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(c.name)
		if len(c.labels) > 0 {
			b.WriteByte('{')
			for i, v := range strings.Split(k, "\x1f") {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(c.labels[i] + "=\"" + promLabelEscape(v) + "\"")
			}
			b.WriteByte('}')
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(c.values[k], 10))
		b.WriteByte('\n')
	}
}

type metricsStore struct {
	mu sync.Mutex

	requests    *counter
	byPattern   *counter
	appErrors   *counter
	conversions *counter
	diagnostics *counter
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		requests:    newCounter("clashforge_http_requests_total", "Total HTTP requests."),
		byPattern:   newCounter("clashforge_http_requests_by_pattern_total", "HTTP requests by ServeMux pattern and status.", "pattern", "status"),
		appErrors:   newCounter("clashforge_app_errors_total", "Application errors returned to clients.", "stage", "code"),
		conversions: newCounter("clashforge_conversions_total", "Successful conversions by mode.", "mode"),
		diagnostics: newCounter("clashforge_diagnostics_total", "Recovered problems reported by conversions.", "stage", "code"),
	}
}

var metrics = newMetricsStore()

func metricsIncRequest(pattern string, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	metrics.mu.Lock()
	metrics.requests.add(1)
	metrics.byPattern.add(1, pattern, strconv.Itoa(status))
	metrics.mu.Unlock()
}

func metricsIncAppError(stage, code string) {
	metrics.mu.Lock()
	metrics.appErrors.add(1, stage, code)
	metrics.mu.Unlock()
}

func metricsIncConversion(mode string, diags []model.Diagnostic) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.conversions.add(1, mode)
	for _, d := range diags {
		metrics.diagnostics.add(1, d.Stage, d.Code)
	}
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	var b strings.Builder
	metrics.mu.Lock()
	for _, c := range []*counter{metrics.requests, metrics.byPattern, metrics.appErrors, metrics.conversions, metrics.diagnostics} {
		c.writeTo(&b)
	}
	metrics.mu.Unlock()

	_, _ = w.Write([]byte(b.String()))
}

func promLabelEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return strings.ReplaceAll(s, "\n", "\\n")
}
