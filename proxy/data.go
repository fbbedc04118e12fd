package proxy

import (
	"context"
	"sort"

	"github.com/dcwiz/appkit/table"
)

// DataRequestTable issues a data-surface request and converts the body to
// a table.
func (c *Client) DataRequestTable(ctx context.Context, method, pathOrURL string, opts ...Option) (*table.Table, error) {
	body, err := c.Request(ctx, SurfaceData, method, pathOrURL, opts...)
	if err != nil {
		return nil, err
	}
	return table.FromJSON(body)
}

// DataParallelTables runs a data-surface fan-out and converts each body to
// a table, positionally matched to the specs.
func (c *Client) DataParallelTables(ctx context.Context, specs []RequestSpec, extra ...Option) ([]*table.Table, error) {
	bodies, err := c.ParallelSlice(ctx, SurfaceData, specs, extra...)
	if err != nil {
		return nil, err
	}
	tables := make([]*table.Table, len(bodies))
	for i, body := range bodies {
		t, err := table.FromJSON(body)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return tables, nil
}

// DataParallelMerged runs a data-surface fan-out and concatenates the
// resulting tables column-wise into one combined table. mergeOn names the
// key column to index on; table.DefaultIndex keeps each table's ordinal
// index.
func (c *Client) DataParallelMerged(ctx context.Context, specs []RequestSpec, mergeOn string, extra ...Option) (*table.Table, error) {
	tables, err := c.DataParallelTables(ctx, specs, extra...)
	if err != nil {
		return nil, err
	}
	return table.Merge(tables, mergeOn)
}

// DataParallelTablesMap is the keyed variant of DataParallelTables.
func (c *Client) DataParallelTablesMap(ctx context.Context, specs map[string]RequestSpec, extra ...Option) (map[string]*table.Table, error) {
	bodies, err := c.ParallelMap(ctx, SurfaceData, specs, extra...)
	if err != nil {
		return nil, err
	}
	tables := make(map[string]*table.Table, len(bodies))
	for key, body := range bodies {
		t, err := table.FromJSON(body)
		if err != nil {
			return nil, err
		}
		tables[key] = t
	}
	return tables, nil
}

// DataParallelMergedMap merges a keyed fan-out's tables in key order.
func (c *Client) DataParallelMergedMap(ctx context.Context, specs map[string]RequestSpec, mergeOn string, extra ...Option) (*table.Table, error) {
	byKey, err := c.DataParallelTablesMap(ctx, specs, extra...)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tables := make([]*table.Table, len(keys))
	for i, k := range keys {
		tables[i] = byKey[k]
	}
	return table.Merge(tables, mergeOn)
}
