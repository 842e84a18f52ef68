package model

import "strconv"

type valueState uint8

const (
	valueNoData valueState = iota // no valid records to compute from
	valueUndefined                // mathematically undefined for this data
	valueDefined
)

// MetricValue is a metric result that keeps "no data" and "undefined"
// distinguishable from a genuine zero. NaN never crosses a package boundary.
type MetricValue struct {
	v     float64
	state valueState
}

// DefinedValue wraps a computed metric.
func DefinedValue(v float64) MetricValue { return MetricValue{v: v, state: valueDefined} }

// UndefinedValue marks a metric whose definition does not apply to the
// current data, e.g. AUC without a score column.
func UndefinedValue() MetricValue { return MetricValue{state: valueUndefined} }

// NoDataValue marks a metric for a miner with zero valid records.
func NoDataValue() MetricValue { return MetricValue{state: valueNoData} }

// Float returns the value and whether it is defined.
func (m MetricValue) Float() (float64, bool) { return m.v, m.state == valueDefined }

// Defined reports whether the metric holds a computed number.
func (m MetricValue) Defined() bool { return m.state == valueDefined }

// Undefined reports the mathematically-undefined sentinel.
func (m MetricValue) Undefined() bool { return m.state == valueUndefined }

// NoData reports the zero-valid-records sentinel.
func (m MetricValue) NoData() bool { return m.state == valueNoData }

// String renders the value for tables: a decimal number, "undefined",
// or "no_data".
func (m MetricValue) String() string {
	switch m.state {
	case valueDefined:
		return strconv.FormatFloat(m.v, 'f', 6, 64)
	case valueUndefined:
		return "undefined"
	default:
		return "no_data"
	}
}

// MinerMetricSet is the aggregate result for one miner in one mode.
// Recomputed fresh on every reconciliation, never updated incrementally.
type MinerMetricSet struct {
	MinerID string
	Mode    Mode

	Total   int // aligned records, valid + invalid
	Valid   int
	Invalid int

	Accuracy  MetricValue
	Precision MetricValue
	Recall    MetricValue
	F1        MetricValue
	MCC       MetricValue
	AUC       MetricValue // binary mode only; undefined without scores
}
