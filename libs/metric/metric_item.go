package metric

import jsoniter "github.com/json-iterator/go"

// MetricItem - 一个独立的模块对应一个MetricItem，返回该模块当前状态的json
type MetricItem interface {
	JSONString() string
}

// SnapshotFunc 把返回快照的函数适配成MetricItem，快照使用json-iterator序列化
type SnapshotFunc func() interface{}

func (f SnapshotFunc) JSONString() string {
	s, err := jsoniter.MarshalToString(f())
	if err != nil {
		return ""
	}
	return s
}
