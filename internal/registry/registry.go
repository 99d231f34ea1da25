// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry dispatches named tool operations. Every exposed
// operation is declared as a Descriptor: its name, its parameters with
// types, bounds, and defaults, and the handler that runs it. The
// registry validates and coerces arguments before the handler sees
// them, so handlers receive well-typed maps and never re-check bounds.
package registry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// ParamType enumerates the argument types operations may declare.
type ParamType string

const (
	TypeString      ParamType = "string"
	TypeInt         ParamType = "int"
	TypeNumber      ParamType = "number"
	TypeBool        ParamType = "bool"
	TypeStringSlice ParamType = "[]string"
)

// Param declares one operation argument.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool

	// Default fills the argument when the caller omits it. Ignored for
	// required parameters.
	Default any

	// Enum restricts a string parameter to the listed values.
	Enum []string

	// Min and Max bound int and number parameters, inclusive.
	Min *float64
	Max *float64
}

// Handler runs one operation with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor declares one operation.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Registry maps operation names to descriptors. Registration happens at
// startup; Invoke is safe for concurrent use afterwards.
type Registry struct {
	ops   map[string]Descriptor
	order []string
	log   zerolog.Logger
}

// New returns an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		ops: make(map[string]Descriptor),
		log: log.With().Str("component", "registry").Logger(),
	}
}

// Register adds one operation. Names are case-sensitive and must be
// unique; a duplicate or a descriptor without a handler is a
// programming error and fails loudly.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("register: descriptor has no name")
	}
	if d.Handler == nil {
		return fmt.Errorf("register: operation %q has no handler", d.Name)
	}
	if _, exists := r.ops[d.Name]; exists {
		return fmt.Errorf("register: operation %q already registered", d.Name)
	}
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("register: operation %q has an unnamed parameter", d.Name)
		}
	}
	r.ops[d.Name] = d
	r.order = append(r.order, d.Name)
	r.log.Debug().Str("op", d.Name).Msg("operation registered")
	return nil
}

// MustRegister is Register for startup wiring, where a bad descriptor
// should stop the process.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Descriptors returns all operations in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// Lookup returns the descriptor for one operation.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.ops[name]
	return d, ok
}

// Invoke validates args against the operation's declared parameters and
// runs its handler. The handler never runs when validation fails, and a
// panicking handler surfaces as HandlerError rather than crashing the
// server.
func (r *Registry) Invoke(ctx context.Context, op string, args map[string]any) (result any, err error) {
	d, ok := r.ops[op]
	if !ok {
		return nil, &types.UnknownOperationError{Op: op}
	}

	validated, err := validateArgs(d, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("op", op).Interface("panic", rec).Msg("handler panicked")
			result = nil
			err = &types.HandlerError{Op: op, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = d.Handler(ctx, validated)
	if err != nil && !isDomainError(err) {
		r.log.Error().Str("op", op).Err(err).Msg("handler failed")
		err = &types.HandlerError{Op: op, Cause: err}
	}
	return result, err
}

// validateArgs checks every declared parameter, applies defaults, and
// coerces values to their declared types. Arguments not declared by the
// descriptor are rejected.
func validateArgs(d Descriptor, args map[string]any) (map[string]any, error) {
	declared := make(map[string]Param, len(d.Params))
	for _, p := range d.Params {
		declared[p.Name] = p
	}
	for name := range args {
		if _, ok := declared[name]; !ok {
			return nil, &types.ValidationError{Param: name, Reason: "not a parameter of " + d.Name}
		}
	}

	out := make(map[string]any, len(d.Params))
	for _, p := range d.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, &types.ValidationError{Param: p.Name, Reason: "required"}
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		value, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}
		out[p.Name] = value
	}
	return out, nil
}

// coerce converts one raw argument to the parameter's declared type and
// checks its bounds. JSON decoding hands numbers over as float64 and
// arrays as []any; both are normalized here.
func coerce(p Param, raw any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, &types.ValidationError{Param: p.Name, Reason: "must be a string"}
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return nil, &types.ValidationError{
				Param:  p.Name,
				Reason: fmt.Sprintf("must be one of %s", strings.Join(p.Enum, ", ")),
			}
		}
		return s, nil

	case TypeInt:
		n, err := toInt(p.Name, raw)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(p, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case TypeNumber:
		f, err := toFloat(p.Name, raw)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(p, f); err != nil {
			return nil, err
		}
		return f, nil

	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, &types.ValidationError{Param: p.Name, Reason: "must be a boolean"}
		}
		return b, nil

	case TypeStringSlice:
		switch v := raw.(type) {
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, &types.ValidationError{Param: p.Name, Reason: "must be a list of strings"}
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, &types.ValidationError{Param: p.Name, Reason: "must be a list of strings"}
		}

	default:
		return nil, &types.ValidationError{Param: p.Name, Reason: fmt.Sprintf("unsupported type %q", p.Type)}
	}
}

func toInt(name string, raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &types.ValidationError{Param: name, Reason: "must be an integer"}
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &types.ValidationError{Param: name, Reason: "must be an integer"}
		}
		return n, nil
	default:
		return 0, &types.ValidationError{Param: name, Reason: "must be an integer"}
	}
}

func toFloat(name string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &types.ValidationError{Param: name, Reason: "must be a number"}
		}
		return f, nil
	default:
		return 0, &types.ValidationError{Param: name, Reason: "must be a number"}
	}
}

func checkBounds(p Param, v float64) error {
	if p.Min != nil && v < *p.Min {
		return &types.ValidationError{
			Param:  p.Name,
			Reason: fmt.Sprintf("must be at least %s", formatBound(*p.Min)),
		}
	}
	if p.Max != nil && v > *p.Max {
		return &types.ValidationError{
			Param:  p.Name,
			Reason: fmt.Sprintf("must be at most %s", formatBound(*p.Max)),
		}
	}
	return nil
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isDomainError reports whether err is already one of the typed kinds
// callers expect, so Invoke passes it through unwrapped.
func isDomainError(err error) bool {
	switch err.(type) {
	case *types.ValidationError, *types.AuthError, *types.NetworkError,
		*types.ParseError, *types.ProviderError, *types.NotFoundError,
		*types.UnknownOperationError, *types.HandlerError:
		return true
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Names returns registered operation names, sorted, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Bound is a convenience for declaring Min/Max inline.
func Bound(v float64) *float64 { return &v }
