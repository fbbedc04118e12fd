package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dcwiz/appkit/apierror"
)

// RequestSpec is one unit of work in a fan-out batch.
type RequestSpec struct {
	Method  string
	URL     string
	Options []Option
}

// ParallelSlice issues all requests concurrently over the shared client and
// waits for every one to settle before returning. Results are positionally
// matched to the input regardless of completion order. If any sub-request
// fails the whole batch fails with a BatchError carrying each failure;
// siblings are never cancelled early.
func (c *Client) ParallelSlice(ctx context.Context, surface Surface, specs []RequestSpec, extra ...Option) ([]json.RawMessage, error) {
	results := make([]json.RawMessage, len(specs))
	errs := make([]error, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec RequestSpec) {
			defer wg.Done()
			opts := append(append([]Option{}, spec.Options...), extra...)
			results[i], errs[i] = c.Request(ctx, surface, spec.Method, spec.URL, opts...)
		}(i, spec)
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return nil, &apierror.BatchError{Errors: failures}
	}
	return results, nil
}

// ParallelMap is ParallelSlice for keyed batches: the result map has
// exactly the input's key set. Failures are collected in key order.
func (c *Client) ParallelMap(ctx context.Context, surface Surface, specs map[string]RequestSpec, extra ...Option) (map[string]json.RawMessage, error) {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]json.RawMessage, len(keys))
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, spec RequestSpec) {
			defer wg.Done()
			opts := append(append([]Option{}, spec.Options...), extra...)
			results[i], errs[i] = c.Request(ctx, surface, spec.Method, spec.URL, opts...)
		}(i, specs[key])
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return nil, &apierror.BatchError{Errors: failures}
	}

	out := make(map[string]json.RawMessage, len(keys))
	for i, key := range keys {
		out[key] = results[i]
	}
	return out, nil
}

// Parallel accepts either a []RequestSpec or a map[string]RequestSpec and
// dispatches accordingly. Any other shape is a request-shape error, which
// is distinct from any HTTP failure.
func (c *Client) Parallel(ctx context.Context, surface Surface, requests any, extra ...Option) (any, error) {
	switch batch := requests.(type) {
	case []RequestSpec:
		return c.ParallelSlice(ctx, surface, batch, extra...)
	case map[string]RequestSpec:
		return c.ParallelMap(ctx, surface, batch, extra...)
	default:
		return nil, &apierror.ServiceError{
			Code:    apierror.CodeInternalError,
			Message: "Internal Error",
			Items: []apierror.Item{{
				Type:     "Invalid API Request",
				Severity: apierror.SeverityCritical,
				Message:  fmt.Sprintf("Request: %T", requests),
			}},
		}
	}
}
