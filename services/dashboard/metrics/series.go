package metrics

import (
	"time"
)

// ValueColumn is the canonical name of the primary numeric series in a Table. Downstream
// consumers read this column without caring about the upstream payload's field naming
const ValueColumn = "y"

// Table is a time-indexed result set: one timestamp per row and one or more named numeric
// columns of the same length. Consumers must treat a returned Table as immutable
type Table struct {
	Index   []time.Time          `json:"index"`
	Columns []string             `json:"columns"`
	Values  map[string][]float64 `json:"values"`
}

// NewEmptyTable creates a typed, zero-row table. It is the uniform "no data" signal: callers
// distinguish outcomes by emptiness, never by nil
func NewEmptyTable() *Table {
	return &Table{
		Index:   make([]time.Time, 0),
		Columns: make([]string, 0),
		Values:  make(map[string][]float64),
	}
}

// Rows returns the number of rows in the table
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	if len(t.Index) > 0 {
		return len(t.Index)
	}
	if len(t.Columns) > 0 {
		return len(t.Values[t.Columns[0]])
	}

	return 0
}

// Empty returns true when the table holds no usable data points
func (t *Table) Empty() bool {
	return t == nil || t.Rows() == 0 || len(t.Columns) == 0
}

// ColumnStats holds the trivial aggregates derivable from a single column
type ColumnStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Last float64 `json:"last"`
}

// Stats computes min/max/mean/last for the named column. The second return value is false
// when the column is absent or holds no values
func (t *Table) Stats(column string) (ColumnStats, bool) {
	if t == nil {
		return ColumnStats{}, false
	}

	values, found := t.Values[column]
	if !found || len(values) == 0 {
		return ColumnStats{}, false
	}

	stats := ColumnStats{
		Min:  values[0],
		Max:  values[0],
		Last: values[len(values)-1],
	}
	sum := 0.0
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	return stats, true
}

// Rebase returns a copy of the table where every column is scaled so its first value equals
// base, which makes series of different magnitudes directly comparable. Columns whose first
// value is zero are copied unscaled
func (t *Table) Rebase(base float64) *Table {
	if t.Empty() {
		return NewEmptyTable()
	}

	rebased := &Table{
		Index:   append(make([]time.Time, 0, len(t.Index)), t.Index...),
		Columns: append(make([]string, 0, len(t.Columns)), t.Columns...),
		Values:  make(map[string][]float64, len(t.Columns)),
	}

	for _, col := range t.Columns {
		src := t.Values[col]
		dst := make([]float64, len(src))
		if len(src) == 0 || src[0] == 0 {
			copy(dst, src)
			rebased.Values[col] = dst
			continue
		}

		for i, v := range src {
			dst[i] = v / src[0] * base
		}
		rebased.Values[col] = dst
	}

	return rebased
}

// PoolShare holds one mining pool's share of recently found blocks
type PoolShare struct {
	Name         string  `json:"name"`
	RelativeSize float64 `json:"relativeSize"`
}

// PoolDistribution maps mining pools to their relative sizes, sorted descending by size
type PoolDistribution struct {
	Pools []PoolShare `json:"pools"`
}

// NewEmptyPoolDistribution creates a typed, zero-entry distribution
func NewEmptyPoolDistribution() *PoolDistribution {
	return &PoolDistribution{
		Pools: make([]PoolShare, 0),
	}
}

// Empty returns true when no pool entries are available
func (d *PoolDistribution) Empty() bool {
	return d == nil || len(d.Pools) == 0
}
