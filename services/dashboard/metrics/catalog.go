package metrics

import (
	"fmt"
)

// MetricDescriptor is the static definition of one chart metric: identity, grouping and the
// routing exceptions the upstream service imposes on it
type MetricDescriptor struct {
	ID          string
	DisplayName string
	Category    string

	// EndpointOverride replaces the charts/{id} convention when non-empty. In that case
	// ParameterOverride replaces (not merges with) any caller-supplied parameters
	EndpointOverride  string
	ParameterOverride map[string]string

	// DaysAverage, when non-empty, is the default daysAverageString applied to this metric.
	// Caller-supplied values still win
	DaysAverage string
}

type categoryGroup struct {
	name    string
	metrics []MetricDescriptor
}

// catalogTable is the full registry. Every metric belongs to exactly one category
var catalogTable = []categoryGroup{
	{
		name: "Market",
		metrics: []MetricDescriptor{
			{ID: "market-price", DisplayName: "Market Price (USD)"},
			{ID: "market-cap", DisplayName: "Market Capitalization"},
			{ID: "trade-volume", DisplayName: "USD Trade Volume"},
		},
	},
	{
		name: "Block Details",
		metrics: []MetricDescriptor{
			{ID: "blocks-size", DisplayName: "Blockchain Size (MB)"},
			{ID: "avg-block-size", DisplayName: "Average Block Size (MB)"},
			{ID: "n-transactions-per-block", DisplayName: "Transactions per Block"},
			{ID: "n-payments-per-block", DisplayName: "Payments per Block"},
			{ID: "n-transactions-total", DisplayName: "Total Number of Transactions"},
			{ID: "median-confirmation-time", DisplayName: "Median Confirmation Time"},
			{ID: "avg-confirmation-time", DisplayName: "Average Confirmation Time"},
		},
	},
	{
		name: "Mining Information",
		metrics: []MetricDescriptor{
			{ID: "hash-rate", DisplayName: "Hash Rate (TH/s)", DaysAverage: "7d"},
			{ID: "difficulty", DisplayName: "Mining Difficulty"},
			{ID: "miners-revenue", DisplayName: "Miners Revenue (USD)", DaysAverage: "7d"},
			{ID: "transaction-fees", DisplayName: "Total Transaction Fees (BTC)", DaysAverage: "7d"},
			{ID: "transaction-fees-usd", DisplayName: "Total Transaction Fees (USD)"},
			{ID: "cost-per-transaction", DisplayName: "Cost per Transaction"},
			{ID: "cost-per-transaction-percent", DisplayName: "Cost per Transaction (%)"},
		},
	},
	{
		name: "Network Activity",
		metrics: []MetricDescriptor{
			{ID: "n-unique-addresses", DisplayName: "Unique Addresses Used"},
			{ID: "n-transactions", DisplayName: "Confirmed Transactions per Day"},
			{ID: "n-payments", DisplayName: "Confirmed Payments per Day"},
			{ID: "transactions-per-second", DisplayName: "Transactions per Second"},
			{ID: "output-volume", DisplayName: "Output Value per Day"},
			{ID: "mempool-count", DisplayName: "Mempool Transaction Count"},
			{ID: "mempool-growth", DisplayName: "Mempool Size Growth"},
			{ID: "mempool-size", DisplayName: "Mempool Size (Bytes)"},
			{
				ID:                "mempool-state-by-fee-level",
				DisplayName:       "Mempool State by Fee Level",
				EndpointOverride:  "charts/mempool-state-by-fee-level/interval",
				ParameterOverride: map[string]string{"cors": "true"},
			},
			{ID: "utxo-count", DisplayName: "Unspent Transaction Outputs"},
			{ID: "n-transactions-excluding-popular", DisplayName: "Transactions (Excluding Popular Addresses)"},
			{ID: "estimated-transaction-volume", DisplayName: "Estimated Transaction Value (BTC)"},
			{ID: "estimated-transaction-volume-usd", DisplayName: "Estimated Transaction Value (USD)"},
		},
	},
	{
		name: "Market Signals",
		metrics: []MetricDescriptor{
			{ID: "mvrv", DisplayName: "MVRV - Market Value to Realized Value"},
			{ID: "nvt", DisplayName: "NVT - Network Value to Transactions"},
			{ID: "nvts", DisplayName: "NVT Signal"},
		},
	},
	{
		name: "Supply",
		metrics: []MetricDescriptor{
			{ID: "total-bitcoins", DisplayName: "Bitcoins in Circulation"},
		},
	},
}

// Catalog is the immutable registry of known metrics, grouped into categories
type Catalog struct {
	descriptors   map[string]MetricDescriptor
	categoryOrder []string
	categories    map[string][]string
}

// NewCatalog builds the catalog from the static table, enforcing id uniqueness
func NewCatalog() (*Catalog, error) {
	c := &Catalog{
		descriptors:   make(map[string]MetricDescriptor),
		categoryOrder: make([]string, 0, len(catalogTable)),
		categories:    make(map[string][]string),
	}

	for _, group := range catalogTable {
		c.categoryOrder = append(c.categoryOrder, group.name)
		ids := make([]string, 0, len(group.metrics))
		for _, desc := range group.metrics {
			_, exists := c.descriptors[desc.ID]
			if exists {
				return nil, fmt.Errorf("duplicate metric id in catalog: %s", desc.ID)
			}

			desc.Category = group.name
			c.descriptors[desc.ID] = desc
			ids = append(ids, desc.ID)
		}
		c.categories[group.name] = ids
	}

	return c, nil
}

// Categories returns the full category -> metric ids partition. The returned value is a copy
func (c *Catalog) Categories() map[string][]string {
	out := make(map[string][]string, len(c.categories))
	for name, ids := range c.categories {
		out[name] = append(make([]string, 0, len(ids)), ids...)
	}

	return out
}

// CategoryNames returns the category names in their fixed display order
func (c *Catalog) CategoryNames() []string {
	return append(make([]string, 0, len(c.categoryOrder)), c.categoryOrder...)
}

// DisplayName returns the human-readable label for the metric id, falling back to the id
// itself when the metric is unknown
func (c *Catalog) DisplayName(metricID string) string {
	desc, found := c.descriptors[metricID]
	if !found {
		return metricID
	}

	return desc.DisplayName
}

// Descriptor returns the descriptor for the metric id, if known
func (c *Catalog) Descriptor(metricID string) (MetricDescriptor, bool) {
	desc, found := c.descriptors[metricID]
	return desc, found
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *Catalog) IsInterfaceNil() bool {
	return c == nil
}
