package transform

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tabcal/internal/model"
)

// Built-in field transforms. Each operates on one field value and is pure:
// same input, same output. Signature matches Func; the field value is the
// first argument, declared args/kwargs follow.
func registerBuiltins(r *Registry) {
	r.Register("replace", builtinReplace)
	r.Register("split", builtinSplit)
	r.Register("divide", builtinDivide)
	r.Register("multiply", builtinMultiply)
	r.Register("trim", builtinTrim)
	r.Register("lower", builtinLower)
	r.Register("upper", builtinUpper)
	r.Register("title", builtinTitle)
	r.Register("parse_time", builtinParseTime)
	r.Register("parse_when", builtinParseWhen)
}

func builtinReplace(value any, args Args, _ Kwargs) (any, error) {
	old, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	repl, err := argString(args, 1)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(model.Stringify(value), old, repl), nil
}

// builtinSplit turns a delimited scalar into an ordered []string. Parts
// are kept verbatim; the delimiter is not trimmed from neighbours.
func builtinSplit(value any, args Args, _ Kwargs) (any, error) {
	sep, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	if sep == "" {
		return nil, fmt.Errorf("split: empty separator")
	}
	return strings.Split(model.Stringify(value), sep), nil
}

func builtinDivide(value any, args Args, _ Kwargs) (any, error) {
	by, err := argFloat(args, 0)
	if err != nil {
		return nil, err
	}
	if by == 0 {
		return nil, fmt.Errorf("divide: division by zero")
	}
	if d, ok := value.(time.Duration); ok {
		return time.Duration(float64(d) / by), nil
	}
	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("divide: %w", err)
	}
	return f / by, nil
}

func builtinMultiply(value any, args Args, _ Kwargs) (any, error) {
	by, err := argFloat(args, 0)
	if err != nil {
		return nil, err
	}
	if d, ok := value.(time.Duration); ok {
		return time.Duration(float64(d) * by), nil
	}
	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("multiply: %w", err)
	}
	return f * by, nil
}

func builtinTrim(value any, _ Args, _ Kwargs) (any, error) {
	return strings.TrimSpace(model.Stringify(value)), nil
}

func builtinLower(value any, _ Args, _ Kwargs) (any, error) {
	return strings.ToLower(model.Stringify(value)), nil
}

func builtinUpper(value any, _ Args, _ Kwargs) (any, error) {
	return strings.ToUpper(model.Stringify(value)), nil
}

var titleCaser = cases.Title(language.English)

func builtinTitle(value any, _ Args, _ Kwargs) (any, error) {
	return titleCaser.String(model.Stringify(value)), nil
}

// builtinParseTime parses the value with an explicit Go reference layout,
// e.g. {"func": "parse_time", "args": ["02/01/2006 15:04"]}.
func builtinParseTime(value any, args Args, _ Kwargs) (any, error) {
	layout, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(layout, strings.TrimSpace(model.Stringify(value)))
	if err != nil {
		return nil, fmt.Errorf("parse_time: %w", err)
	}
	return t, nil
}

var (
	whenOnce   sync.Once
	whenParser *when.Parser
)

// builtinParseWhen parses free-form date expressions ("next tuesday 9am")
// relative to the optional "base" kwarg (RFC3339) or the current time.
func builtinParseWhen(value any, _ Args, kwargs Kwargs) (any, error) {
	whenOnce.Do(func() {
		whenParser = when.New(nil)
		whenParser.Add(en.All...)
		whenParser.Add(common.All...)
	})

	base := time.Now()
	if raw := kwString(kwargs, "base", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse_when: bad base: %w", err)
		}
		base = t
	}

	text := strings.TrimSpace(model.Stringify(value))
	result, err := whenParser.Parse(text, base)
	if err != nil {
		return nil, fmt.Errorf("parse_when: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("parse_when: no date found in %q", text)
	}
	return result.Time, nil
}
