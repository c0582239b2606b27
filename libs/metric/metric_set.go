package metric

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrMetricLabelExist = errors.New("metric label already exist")
)

func NewMetricSet() *MetricSet {
	return &MetricSet{
		metrics: make(map[string]MetricItem),
	}
}

// MetricSet 按label保存各个模块的MetricItem，rpc通过它读取节点状态
type MetricSet struct {
	mtx     sync.RWMutex
	metrics map[string]MetricItem
}

// SetMetrics - 根据label设置对应的Metrics，如果有存在的label，则返回error
func (ms *MetricSet) SetMetrics(label string, item MetricItem) error {
	ms.mtx.Lock()
	defer ms.mtx.Unlock()

	if _, existed := ms.metrics[label]; existed {
		return ErrMetricLabelExist
	}
	ms.metrics[label] = item
	return nil
}

func (ms *MetricSet) HasMetrics(label string) bool {
	ms.mtx.RLock()
	defer ms.mtx.RUnlock()

	_, existed := ms.metrics[label]
	return existed
}

func (ms *MetricSet) GetMetrics(label string) MetricItem {
	ms.mtx.RLock()
	defer ms.mtx.RUnlock()

	return ms.metrics[label]
}

// Labels 返回所有的label，升序
func (ms *MetricSet) Labels() []string {
	ms.mtx.RLock()
	keys := make([]string, 0, len(ms.metrics))
	for k := range ms.metrics {
		keys = append(keys, k)
	}
	ms.mtx.RUnlock()

	sort.Strings(keys)
	return keys
}

// Snapshot 返回label对应的json，labels为空时返回所有的metric
func (ms *MetricSet) Snapshot(labels ...string) map[string]string {
	if len(labels) == 0 {
		labels = ms.Labels()
	}

	result := make(map[string]string, len(labels))
	for _, l := range labels {
		if item := ms.GetMetrics(l); item != nil {
			result[l] = item.JSONString()
		}
	}
	return result
}
