// Package collection implements the Collection Query Engine (C6): parsing
// and evaluating queries like `device_class:door|window`, `area:kitchen`,
// `attribute:brightness>50` against a host-provided entity catalog, plus
// the aggregate functions called against a resolved match set (§4.6).
package collection

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LegoTypes/synthformula/internal/compare"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Pattern is one parsed `dimension:tokenList` or `dimension OP value` clause
// (§4.6). Space-separated patterns within a raw query AND together; `|`
// within a tokenList ORs over that single dimension.
type Pattern struct {
	Dimension string // device_class | area | tags | label | regex | state | attribute
	Attribute string // set only when Dimension == "attribute"
	Tokens    []string
	Op        compare.Op // set only for comparison clauses ("" for a plain tokenList)
	Value     string     // the raw RHS text for a comparison clause
}

// Query is a fully parsed collection-query string: its clauses AND together.
type Query struct {
	Raw     string
	Clauses []Pattern
}

// comparisonOps is tried in order, so multi-character operators that share
// a prefix/substring with another must precede it: "not in" before "in" so
// a "not in" clause is never misread as a bare "in" starting mid-string
// (§4.6/§6 OP list).
var comparisonOps = []compare.Op{
	compare.OpGreaterEqual, compare.OpLessEqual, compare.OpNotEqual,
	compare.OpEqual, compare.OpGreater, compare.OpLess,
	compare.OpNotIn, compare.OpIn,
}

// Parse parses a raw collection-query string into its AND-ed clauses
// (§4.6 "Space between two patterns means AND").
func Parse(raw string) (*Query, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, types.NewError(types.ErrParse, "empty collection query").WithName(raw)
	}
	q := &Query{Raw: raw}
	for _, f := range fields {
		p, err := parseClause(f)
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, p)
	}
	return q, nil
}

func parseClause(field string) (Pattern, error) {
	// `state OP value` has no leading dimension prefix.
	if strings.HasPrefix(field, "state") && len(field) > len("state") {
		rest := field[len("state"):]
		if op, value, ok := splitOp(rest); ok {
			return Pattern{Dimension: "state", Op: op, Value: value}, nil
		}
	}

	dim, rest, ok := strings.Cut(field, ":")
	if !ok {
		// No ':' prefix and not a recognized `state OP value` form above.
		if op, value, ok := splitOp(field); ok {
			return Pattern{Dimension: "state", Op: op, Value: value}, nil
		}
		return Pattern{}, types.NewError(types.ErrParse, "malformed collection query clause").WithName(field)
	}

	if dim == "attribute" {
		name, rest2, ok := cutAttribute(rest)
		if !ok {
			return Pattern{Dimension: "attribute", Attribute: rest, Tokens: []string{""}}, nil
		}
		if op, value, ok := splitOp(rest2); ok {
			return Pattern{Dimension: "attribute", Attribute: name, Op: op, Value: value}, nil
		}
		return Pattern{Dimension: "attribute", Attribute: name, Tokens: []string{rest2}}, nil
	}

	switch dim {
	case "device_class", "area", "label", "regex":
		return Pattern{Dimension: dim, Tokens: strings.Split(rest, "|")}, nil
	case "tags":
		return Pattern{Dimension: dim, Tokens: strings.Split(rest, ",")}, nil
	default:
		return Pattern{}, types.NewError(types.ErrParse, "unknown collection query dimension").WithName(dim)
	}
}

// cutAttribute splits `name>50` / `name==on` into ("name", ">50") — the
// attribute name always precedes the first comparison operator character.
func cutAttribute(s string) (name, rest string, ok bool) {
	for _, op := range comparisonOps {
		if idx := strings.Index(s, string(op)); idx > 0 {
			return s[:idx], s[idx:], true
		}
	}
	return "", s, false
}

func splitOp(s string) (compare.Op, string, bool) {
	for _, op := range comparisonOps {
		if strings.HasPrefix(s, string(op)) {
			return op, strings.TrimPrefix(s, string(op)), true
		}
	}
	return "", "", false
}

// Evaluate runs q against catalog, returning the matching entity ids
// (§4.6 "Evaluates against a host-provided entity catalog"). Clauses AND
// together; tokens within one clause OR together.
func Evaluate(q *Query, catalog host.Catalog, reg *compare.Registry) ([]string, error) {
	var matches map[string]struct{}
	for _, clause := range q.Clauses {
		set, err := matchClause(clause, catalog, reg)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = set
			continue
		}
		for id := range matches {
			if _, ok := set[id]; !ok {
				delete(matches, id)
			}
		}
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	return ids, nil
}

func matchClause(p Pattern, catalog host.Catalog, reg *compare.Registry) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	for _, id := range catalog.Iter() {
		e, ok := catalog.Get(id)
		if !ok {
			continue
		}
		ok, err := matchEntity(p, e, reg)
		if err != nil {
			return nil, err
		}
		if ok {
			result[id] = struct{}{}
		}
	}
	return result, nil
}

func matchEntity(p Pattern, e host.Entity, reg *compare.Registry) (bool, error) {
	if p.Op != "" {
		var left types.Scalar
		switch p.Dimension {
		case "state":
			left = e.State
		case "attribute":
			v, ok := e.Attribute(p.Attribute)
			if !ok {
				return false, nil
			}
			left = v
		}
		ok, err := reg.Compare(left, literalScalar(p.Value), p.Op)
		if err != nil {
			// No handler applies across these two scalar kinds (e.g. a
			// string state compared against a numeric literal) — treat as
			// a non-match rather than aborting the whole query.
			return false, nil
		}
		return ok, nil
	}

	switch p.Dimension {
	case "device_class":
		return containsToken(p.Tokens, e.DeviceClass), nil
	case "area":
		return containsToken(p.Tokens, e.Area), nil
	case "label":
		return containsToken(p.Tokens, e.Label), nil
	case "tags":
		for _, want := range p.Tokens {
			if containsToken(e.Tags, want) {
				return true, nil
			}
		}
		return false, nil
	case "regex":
		return matchRegexTokens(p.Tokens, e.DeviceClass, e.Area, e.Label)
	case "attribute":
		if len(p.Tokens) == 1 {
			v, ok := e.Attribute(p.Attribute)
			if !ok {
				return false, nil
			}
			text, _ := v.Text()
			return text == p.Tokens[0], nil
		}
		return false, nil
	default:
		return false, nil
	}
}

// matchRegexTokens reports whether any of the `|`-separated regex
// alternatives matches any of the entity's text fields.
func matchRegexTokens(tokens []string, fields ...string) (bool, error) {
	for _, pattern := range tokens {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, types.NewError(types.ErrParse, "invalid regex collection query pattern").WithCause(err)
		}
		for _, f := range fields {
			if f != "" && re.MatchString(f) {
				return true, nil
			}
		}
	}
	return false, nil
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// literalScalar parses the raw RHS text of a comparison clause into a
// Scalar, trying numeric first (§4.6 comparisons delegate to C7, which
// dispatches on the operand kinds it is actually given).
func literalScalar(raw string) types.Scalar {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return types.Number(f)
	}
	if raw == "true" || raw == "false" {
		return types.Bool(raw == "true")
	}
	return types.String(raw)
}
