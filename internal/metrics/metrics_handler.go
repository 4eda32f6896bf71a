package metrics

import (
	"sort"
	"sync"
	"time"

	"cdcflow/logger"
)

// Metric is one value passed to EmitMetric, as seen by registered handlers.
type Metric struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     interface{}
	Type      string
	Fields    logger.Fields
}

// Float reports Value as a float64 when it is numeric.
func (m Metric) Float() (float64, bool) {
	switch n := m.Value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

type MetricHandler func(Metric)

// MetricHandlerID identifies a registration; zero is never issued.
type MetricHandlerID uint64

type handlerSet struct {
	mu   sync.RWMutex
	last MetricHandlerID
	byID map[MetricHandlerID]MetricHandler
}

var handlers = &handlerSet{byID: make(map[MetricHandlerID]MetricHandler)}

func (s *handlerSet) add(h MetricHandler) MetricHandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	s.byID[s.last] = h
	return s.last
}

func (s *handlerSet) remove(id MetricHandlerID) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// snapshot returns the handlers in registration order.
func (s *handlerSet) snapshot() []MetricHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]MetricHandlerID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]MetricHandler, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
	}
	return out
}

// RegisterMetricHandler adds h to every later EmitMetric call. A nil handler
// is ignored and gets id 0.
func RegisterMetricHandler(h MetricHandler) MetricHandlerID {
	if h == nil {
		return 0
	}
	return handlers.add(h)
}

func UnregisterMetricHandler(id MetricHandlerID) {
	if id != 0 {
		handlers.remove(id)
	}
}

// EmitMetric logs the metric, publishes it to CloudWatch when configured and
// hands it to every registered handler. Metrics without a name are dropped.
func EmitMetric(log *logger.Log, component, name string, value interface{}, metricType string, fields logger.Fields) {
	if name == "" {
		return
	}
	if metricType == "" {
		metricType = "counter"
	}
	if log == nil {
		log = logger.GetLogger()
	}

	m := Metric{
		Timestamp: time.Now(),
		Component: component,
		Name:      name,
		Value:     value,
		Type:      metricType,
		Fields:    make(logger.Fields, len(fields)),
	}
	for k, v := range fields {
		m.Fields[k] = v
	}

	log.LogMetric(component, name, value, metricType, m.Fields)
	for _, h := range handlers.snapshot() {
		h(m)
	}
}
