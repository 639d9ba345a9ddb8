package transform

import (
	"fmt"
	"sort"

	"tabcal/internal/model"
)

// Engine applies declared transforms against a registry, honoring the
// caller-supplied skip set. Field transforms are skipped by field name,
// record-set transforms by function name; both are how a user bypasses a
// misbehaving transform during debugging.
type Engine struct {
	reg  *Registry
	skip map[string]struct{}
}

// NewEngine builds an engine over reg. skip may be nil.
func NewEngine(reg *Registry, skip map[string]struct{}) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	if skip == nil {
		skip = map[string]struct{}{}
	}
	return &Engine{reg: reg, skip: skip}
}

// Skipped reports whether a name is on the skip list.
func (e *Engine) Skipped(name string) bool {
	_, ok := e.skip[name]
	return ok
}

// Validate resolves every transform name declared in fieldSpecs and
// extensions up front. Unresolved names are configuration errors and must
// surface before any record is processed.
func (e *Engine) Validate(fieldSpecs map[string][]Call, extensions []Call) error {
	fields := make([]string, 0, len(fieldSpecs))
	for field := range fieldSpecs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, call := range fieldSpecs[field] {
			if _, err := e.reg.Resolve(call.Func); err != nil {
				return err
			}
		}
	}
	for _, call := range extensions {
		if _, err := e.reg.ResolveRecord(call.Func); err != nil {
			return err
		}
	}
	return nil
}

// ApplyField runs the declared transform chain for one field over value.
// If the field is on the skip list the value is returned unchanged. A
// failing transform aborts the chain; the caller treats that as a
// per-record error.
func (e *Engine) ApplyField(field string, value any, calls []Call) (any, error) {
	if len(calls) == 0 || e.Skipped(field) {
		return value, nil
	}
	var err error
	for _, call := range calls {
		fn, rerr := e.reg.Resolve(call.Func)
		if rerr != nil {
			return nil, rerr
		}
		value, err = fn(value, call.Args, call.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("transform %s on field %s: %w", call.Func, field, err)
		}
	}
	return value, nil
}

// ApplyRecords runs the declared record-set transforms in order over the
// whole record set. Calls whose function name is on the skip list are
// bypassed.
func (e *Engine) ApplyRecords(records []model.Record, extensions []Call) ([]model.Record, error) {
	for _, call := range extensions {
		if e.Skipped(call.Func) {
			continue
		}
		fn, err := e.reg.ResolveRecord(call.Func)
		if err != nil {
			return nil, err
		}
		records, err = fn(records, call.Args, call.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("record transform %s: %w", call.Func, err)
		}
	}
	return records, nil
}
