package transform

import (
	"fmt"
	"strconv"
	"time"

	"tabcal/internal/model"
)

// Args are the positional arguments declared for one transform call.
type Args []any

// Kwargs are the keyword arguments declared for one transform call.
type Kwargs map[string]any

// Call is one declared invocation of a named transform, as it appears in
// the mapping document.
type Call struct {
	Func   string `json:"func"`
	Args   Args   `json:"args,omitempty"`
	Kwargs Kwargs `json:"kwargs,omitempty"`
}

// Func transforms a single field value. The field value is always the
// first argument; declared args/kwargs follow.
type Func func(value any, args Args, kwargs Kwargs) (any, error)

// RecordFunc transforms the record set as a whole and may change its
// cardinality (e.g. expanding date ranges into one record per date).
type RecordFunc func(records []model.Record, args Args, kwargs Kwargs) ([]model.Record, error)

// Registry maps transform names to callables. Built-ins cover the common
// string/numeric operations so that the invocation mechanism is uniform;
// deployments extend it with Register/RegisterRecord at process start.
type Registry struct {
	fields  map[string]Func
	records map[string]RecordFunc
}

// NewRegistry returns a registry pre-populated with the built-in
// transforms.
func NewRegistry() *Registry {
	r := &Registry{
		fields:  make(map[string]Func),
		records: make(map[string]RecordFunc),
	}
	registerBuiltins(r)
	registerExtensions(r)
	return r
}

// Register adds or replaces a named field transform.
func (r *Registry) Register(name string, fn Func) {
	r.fields[name] = fn
}

// RegisterRecord adds or replaces a named record-set transform.
func (r *Registry) RegisterRecord(name string, fn RecordFunc) {
	r.records[name] = fn
}

// Resolve returns the field transform for name. An unknown name is a
// configuration error, not a per-record error.
func (r *Registry) Resolve(name string) (Func, error) {
	fn, ok := r.fields[name]
	if !ok {
		return nil, model.Configf("unknown transform %q", name)
	}
	return fn, nil
}

// ResolveRecord returns the record-set transform for name.
func (r *Registry) ResolveRecord(name string) (RecordFunc, error) {
	fn, ok := r.records[name]
	if !ok {
		return nil, model.Configf("unknown record transform %q", name)
	}
	return fn, nil
}

// Argument coercion helpers shared by the built-ins. Declared arguments
// come from JSON, so numbers arrive as float64 and everything else as
// string.

func argString(args Args, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	return model.Stringify(args[i]), nil
}

func argFloat(args Args, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	return toFloat(args[i])
}

func kwString(kw Kwargs, key, fallback string) string {
	if kw == nil {
		return fallback
	}
	if v, ok := kw[key]; ok && v != nil {
		return model.Stringify(v)
	}
	return fallback
}

func kwInt(kw Kwargs, key string, fallback int) int {
	if kw == nil {
		return fallback
	}
	v, ok := kw[key]
	if !ok || v == nil {
		return fallback
	}
	f, err := toFloat(v)
	if err != nil {
		return fallback
	}
	return int(f)
}

func kwBool(kw Kwargs, key string, fallback bool) bool {
	if kw == nil {
		return fallback
	}
	v, ok := kw[key]
	if !ok || v == nil {
		return fallback
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case time.Duration:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
