package metrics

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gsnchez/btc-analytics/services/dashboard/blockchain"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

var log = logger.GetOrCreate("metrics")

const poolsEndpoint = "pools"
const poolsDefaultTimespan = "4days"
const timeField = "x"
const daysAverageParam = "daysAverageString"

// Outcome tags the internal result of a fetch so logs and lower-level callers can still
// distinguish failure causes even though the public contract only exposes emptiness
type Outcome int

const (
	// OutcomeOK means usable rows were produced
	OutcomeOK Outcome = iota
	// OutcomeNoData means the upstream answered but carried no usable values
	OutcomeNoData
	// OutcomeTransportFailure means the upstream could not be reached or rejected the call
	OutcomeTransportFailure
	// OutcomeMalformedPayload means the upstream body was not parseable
	OutcomeMalformedPayload
)

// String returns a printable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoData:
		return "no data"
	case OutcomeTransportFailure:
		return "transport failure"
	case OutcomeMalformedPayload:
		return "malformed payload"
	}

	return "unknown"
}

type fetcher struct {
	requester Requester
	catalog   *Catalog
}

// NewFetcher creates a component that resolves metric ids to upstream fetches and normalizes
// the raw payloads into tables
func NewFetcher(requester Requester, catalog *Catalog) (*fetcher, error) {
	if check.IfNil(requester) {
		return nil, errors.New("nil requester")
	}
	if check.IfNil(catalog) {
		return nil, errors.New("nil catalog")
	}

	return &fetcher{
		requester: requester,
		catalog:   catalog,
	}, nil
}

// FetchMetric resolves the metric id to an endpoint, fetches it and returns the normalized
// time-indexed table. Every failure is absorbed into an empty-but-typed table so callers
// never need per-call error handling: "no data" is signaled solely by emptiness
func (f *fetcher) FetchMetric(ctx context.Context, metricID string, params map[string]string) *Table {
	table, outcome, err := f.fetchMetric(ctx, metricID, params)
	switch outcome {
	case OutcomeNoData:
		log.Debug("metric carried no data", "metric", metricID)
	case OutcomeTransportFailure, OutcomeMalformedPayload:
		log.Warn("metric fetch failed", "metric", metricID, "outcome", outcome.String(), "error", err)
	}

	return table
}

func (f *fetcher) fetchMetric(ctx context.Context, metricID string, params map[string]string) (*Table, Outcome, error) {
	endpoint := blockchain.ChartsNamespace + metricID
	reqParams := params

	desc, known := f.catalog.Descriptor(metricID)
	if known && len(desc.EndpointOverride) > 0 {
		// some metrics accept only a minimal fixed parameter set, so the caller values
		// are replaced entirely
		endpoint = desc.EndpointOverride
		reqParams = cloneParams(desc.ParameterOverride)
	} else if known && len(desc.DaysAverage) > 0 {
		reqParams = cloneParams(params)
		_, exists := reqParams[daysAverageParam]
		if !exists {
			reqParams[daysAverageParam] = desc.DaysAverage
		}
	}

	payload, err := f.requester.Request(ctx, endpoint, reqParams, true)
	if err != nil {
		return NewEmptyTable(), classifyError(err), err
	}

	table, outcome := normalizeChartPayload(payload)
	return table, outcome, nil
}

// FetchPoolDistribution fetches the mining pool distribution, tolerating both raw shapes the
// upstream is known to emit per pool entry. The result is sorted descending by relative size
// and empty-but-typed when nothing usable came back
func (f *fetcher) FetchPoolDistribution(ctx context.Context, params map[string]string) *PoolDistribution {
	reqParams := cloneParams(params)
	_, exists := reqParams["timespan"]
	if !exists {
		reqParams["timespan"] = poolsDefaultTimespan
	}
	reqParams["cors"] = "true"

	payload, err := f.requester.Request(ctx, poolsEndpoint, reqParams, true)
	if err != nil {
		log.Warn("pool distribution fetch failed", "outcome", classifyError(err).String(), "error", err)
		return NewEmptyPoolDistribution()
	}

	dist := normalizePoolsPayload(payload)
	if dist.Empty() {
		log.Debug("pool distribution carried no data")
	}

	return dist
}

func classifyError(err error) Outcome {
	var malformed *blockchain.MalformedResponseError
	if errors.As(err, &malformed) {
		return OutcomeMalformedPayload
	}

	return OutcomeTransportFailure
}

// normalizeChartPayload turns the raw {"values": [{"x": ..., "y": ...}, ...]} body into a
// Table: the x field (epoch seconds) becomes the time index, the remaining numeric fields
// become columns and exactly one column ends up under the canonical name
func normalizeChartPayload(payload []byte) (*Table, Outcome) {
	values := gjson.GetBytes(payload, "values")
	if !values.Exists() || !values.IsArray() {
		return NewEmptyTable(), OutcomeNoData
	}

	rows := values.Array()
	if len(rows) == 0 {
		return NewEmptyTable(), OutcomeNoData
	}

	table := NewEmptyTable()
	for _, row := range rows {
		appendRow(table, row)
	}

	if len(table.Columns) == 0 {
		return table, OutcomeNoData
	}

	ensureCanonicalColumn(table)
	sortByIndex(table)

	return table, OutcomeOK
}

func appendRow(table *Table, row gjson.Result) {
	var timestamp time.Time
	hasTimestamp := false
	rowValues := make(map[string]float64)
	rowColumns := make([]string, 0)

	row.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			return true
		}
		if key.Str == timeField {
			timestamp = time.Unix(value.Int(), 0).UTC()
			hasTimestamp = true
			return true
		}

		rowValues[key.Str] = value.Float()
		rowColumns = append(rowColumns, key.Str)
		return true
	})

	firstRow := table.Rows() == 0
	if firstRow {
		// the first usable row establishes the column set and whether a time index exists
		table.Columns = rowColumns
		for _, col := range rowColumns {
			table.Values[col] = make([]float64, 0, 64)
		}
	}
	if len(table.Columns) == 0 && !hasTimestamp {
		return
	}

	// ragged rows that disagree with the established shape are dropped to keep columns aligned
	if !firstRow {
		indexed := len(table.Index) > 0
		if indexed != hasTimestamp {
			return
		}
	}
	for _, col := range table.Columns {
		_, found := rowValues[col]
		if !found {
			return
		}
	}

	for _, col := range table.Columns {
		table.Values[col] = append(table.Values[col], rowValues[col])
	}
	if hasTimestamp {
		table.Index = append(table.Index, timestamp)
	}
}

func ensureCanonicalColumn(table *Table) {
	_, found := table.Values[ValueColumn]
	if found || len(table.Columns) == 0 {
		return
	}

	first := table.Columns[0]
	table.Values[ValueColumn] = table.Values[first]
	delete(table.Values, first)
	table.Columns[0] = ValueColumn
}

func sortByIndex(table *Table) {
	if len(table.Index) != table.Rows() {
		return
	}
	isSorted := sort.SliceIsSorted(table.Index, func(i, j int) bool {
		return table.Index[i].Before(table.Index[j])
	})
	if isSorted {
		return
	}

	order := make([]int, len(table.Index))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return table.Index[order[i]].Before(table.Index[order[j]])
	})

	sortedIndex := make([]time.Time, len(table.Index))
	for i, from := range order {
		sortedIndex[i] = table.Index[from]
	}
	table.Index = sortedIndex

	for _, col := range table.Columns {
		src := table.Values[col]
		sorted := make([]float64, len(src))
		for i, from := range order {
			sorted[i] = src[from]
		}
		table.Values[col] = sorted
	}
}

func normalizePoolsPayload(payload []byte) *PoolDistribution {
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsObject() {
		return NewEmptyPoolDistribution()
	}

	dist := NewEmptyPoolDistribution()
	parsed.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.Type == gjson.Number:
			dist.Pools = append(dist.Pools, PoolShare{Name: key.Str, RelativeSize: value.Float()})
		case value.IsObject():
			size := value.Get("relativeSize")
			if size.Type == gjson.Number {
				dist.Pools = append(dist.Pools, PoolShare{Name: key.Str, RelativeSize: size.Float()})
			}
		}
		return true
	})

	sort.SliceStable(dist.Pools, func(i, j int) bool {
		if dist.Pools[i].RelativeSize != dist.Pools[j].RelativeSize {
			return dist.Pools[i].RelativeSize > dist.Pools[j].RelativeSize
		}
		return dist.Pools[i].Name < dist.Pools[j].Name
	})

	return dist
}

func cloneParams(params map[string]string) map[string]string {
	cloned := make(map[string]string, len(params))
	for k, v := range params {
		cloned[k] = v
	}

	return cloned
}

// IsInterfaceNil returns true if the value under the interface is nil
func (f *fetcher) IsInterfaceNil() bool {
	return f == nil
}
