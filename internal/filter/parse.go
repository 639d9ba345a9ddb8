package filter

import (
	"encoding/json"
	"fmt"
	"sort"

	"tabcal/internal/model"
)

// PredicateList accepts two JSON shapes:
//
// The shorthand object form, one entry per column, values scalar or
// any-of lists (all contains mode):
//
//	{"Room": "Lab", "Unit": ["CHEM101", "CHEM102"]}
//
// And the explicit array form:
//
//	[{"field": "Room", "pattern": "Lab", "mode": "exact", "negate": true}]
//
// Object keys are sorted so that the resulting predicate order is
// deterministic.
type PredicateList []Predicate

func (l *PredicateList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*l = nil
		return nil
	case []any:
		preds := make([]Predicate, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return model.Configf("filter predicate must be an object, got %T", item)
			}
			p, err := predicateFromObject(obj)
			if err != nil {
				return err
			}
			preds = append(preds, p)
		}
		*l = preds
		return nil
	case map[string]any:
		fields := make([]string, 0, len(v))
		for field := range v {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		preds := make([]Predicate, 0, len(v))
		for _, field := range fields {
			patterns, err := patternsFromValue(v[field])
			if err != nil {
				return model.Configf("filter for column %q: %v", field, err)
			}
			preds = append(preds, Predicate{
				Field:    field,
				Patterns: patterns,
				Mode:     ModeContains,
			})
		}
		*l = preds
		return nil
	default:
		return model.Configf("filters must be an object or an array, got %T", raw)
	}
}

func predicateFromObject(obj map[string]any) (Predicate, error) {
	var p Predicate

	field, _ := obj["field"].(string)
	if field == "" {
		return p, model.Configf("filter predicate is missing \"field\"")
	}
	p.Field = field

	if raw, ok := obj["pattern"]; ok {
		patterns, err := patternsFromValue(raw)
		if err != nil {
			return p, model.Configf("predicate on %q: %v", field, err)
		}
		p.Patterns = patterns
	}
	if raw, ok := obj["patterns"]; ok {
		patterns, err := patternsFromValue(raw)
		if err != nil {
			return p, model.Configf("predicate on %q: %v", field, err)
		}
		p.Patterns = append(p.Patterns, patterns...)
	}
	if len(p.Patterns) == 0 {
		return p, model.Configf("predicate on %q has no pattern", field)
	}

	switch mode, _ := obj["mode"].(string); Mode(mode) {
	case "":
		p.Mode = ModeContains
	case ModeContains, ModeExact:
		p.Mode = Mode(mode)
	default:
		return p, model.Configf("predicate on %q has unknown mode %q", field, mode)
	}

	if negate, ok := obj["negate"].(bool); ok {
		p.Negate = negate
	}
	return p, nil
}

func patternsFromValue(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case float64, bool:
		return []string{model.Stringify(t)}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, bool:
				out = append(out, model.Stringify(s))
			default:
				return nil, fmt.Errorf("unsupported pattern %T", item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported pattern value %T", v)
	}
}
