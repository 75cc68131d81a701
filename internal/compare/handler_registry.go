// Package compare implements the Comparison Handler Registry (C7):
// priority-ordered dispatch for typed comparisons, with built-in numeric,
// string, boolean, datetime, and version handlers plus room for
// user-registered ones (§4.7).
package compare

import (
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Op identifies a comparison operator (§4.6 "OP ∈ {==, !=, <, <=, >, >=, in,
// not in}").
type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpIn           Op = "in"
	OpNotIn        Op = "not in"
)

// Handler is a typed-comparison collaborator (§4.7 "Handlers implement:
// type_info(), can_handle(l, r, op), compare(l, r, op)").
type Handler interface {
	Name() string
	Priority() int
	CanHandle(l, r types.Scalar, op Op) bool
	Compare(l, r types.Scalar, op Op) (bool, error)
}

// Registry dispatches a comparison to the first handler, in ascending
// priority order, whose CanHandle accepts it (§4.7 "iterate handlers in
// ascending priority; first can_handle wins").
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a Registry pre-populated with the built-in handlers
// (equality fallback, numeric/string/boolean, datetime, version).
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(equalityHandler{})
	r.Register(numericHandler{})
	r.Register(stringHandler{})
	r.Register(booleanHandler{})
	r.Register(datetimeHandler{})
	r.Register(versionHandler{})
	r.Register(membershipHandler{})
	return r
}

// Register adds a handler, re-sorting by (priority, registration order) so
// that ties always resolve the same way regardless of map iteration or
// concurrent registration (§4.7 "Selection must be deterministic ... no set
// iteration order leaks"). A stable sort preserves insertion order among
// equal priorities.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].Priority() < r.handlers[j].Priority()
	})
}

// Compare dispatches left OP right to the first matching handler.
func (reg *Registry) Compare(left, right types.Scalar, op Op) (bool, error) {
	for _, h := range reg.handlers {
		if h.CanHandle(left, right, op) {
			return h.Compare(left, right, op)
		}
	}
	return false, types.NewError(types.ErrHandler, "no comparison handler for "+string(op))
}

// equalityHandler is the priority-0 fallback available for any pair of
// scalars (§4.7 "Equality/inequality always available as a priority-0
// fallback").
type equalityHandler struct{}

func (equalityHandler) Name() string     { return "equality" }
func (equalityHandler) Priority() int    { return 0 }
func (equalityHandler) CanHandle(_, _ types.Scalar, op Op) bool {
	return op == OpEqual || op == OpNotEqual
}
func (equalityHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	eq := l.Equal(r)
	if op == OpNotEqual {
		return !eq, nil
	}
	return eq, nil
}

type numericHandler struct{}

func (numericHandler) Name() string  { return "numeric" }
func (numericHandler) Priority() int { return 50 }
func (numericHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if !isOrdering(op) {
		return false
	}
	_, lok := l.Float64()
	_, rok := r.Float64()
	return lok && rok
}
func (numericHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	lv, _ := l.Float64()
	rv, _ := r.Float64()
	return orderFloat(lv, rv, op), nil
}

type stringHandler struct{}

func (stringHandler) Name() string  { return "string" }
func (stringHandler) Priority() int { return 50 }
func (stringHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if !isOrdering(op) {
		return false
	}
	_, lok := l.Text()
	_, rok := r.Text()
	return lok && rok
}
func (stringHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	lv, _ := l.Text()
	rv, _ := r.Text()
	return orderInt(cmpStrings(lv, rv), op), nil
}

func cmpStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// booleanHandler orders false < true (§4.7).
type booleanHandler struct{}

func (booleanHandler) Name() string  { return "boolean" }
func (booleanHandler) Priority() int { return 50 }
func (booleanHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if !isOrdering(op) {
		return false
	}
	return l.Kind == types.KindBoolean && r.Kind == types.KindBoolean
}
func (booleanHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	lv, _ := l.Bool64()
	rv, _ := r.Bool64()
	li, ri := 0, 0
	if lv {
		li = 1
	}
	if rv {
		ri = 1
	}
	return orderInt(li-ri, op), nil
}

// datetimeHandler parses ISO-8601 text and orders chronologically (§4.7
// "Datetime (ISO-8601 parse) at priority 40").
type datetimeHandler struct{}

func (datetimeHandler) Name() string  { return "datetime" }
func (datetimeHandler) Priority() int { return 40 }
func (datetimeHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if !isOrdering(op) {
		return false
	}
	_, lok := parseTime(l)
	_, rok := parseTime(r)
	return lok && rok
}
func (datetimeHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	lv, _ := parseTime(l)
	rv, _ := parseTime(r)
	switch {
	case lv.Before(rv):
		return orderInt(-1, op), nil
	case lv.After(rv):
		return orderInt(1, op), nil
	default:
		return orderInt(0, op), nil
	}
}

func parseTime(s types.Scalar) (time.Time, bool) {
	if t, ok := s.Time(); ok {
		return t, true
	}
	text, ok := s.Text()
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// versionHandler compares dotted version strings using semantic-versioning
// rules (§4.7 "Version (dotted integer tuple) at priority 40"), grounded on
// the dotted-integer-tuple comparator used elsewhere in the example corpus
// for provider/CRD version constraints.
type versionHandler struct{}

func (versionHandler) Name() string  { return "version" }
func (versionHandler) Priority() int { return 40 }
func (versionHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if !isOrdering(op) {
		return false
	}
	_, lok := parseVersion(l)
	_, rok := parseVersion(r)
	return lok && rok
}
func (versionHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	lv, _ := parseVersion(l)
	rv, _ := parseVersion(r)
	return orderInt(lv.Compare(rv), op), nil
}

func parseVersion(s types.Scalar) (*semver.Version, bool) {
	text, ok := s.Text()
	if !ok {
		return nil, false
	}
	v, err := semver.NewVersion(text)
	if err != nil {
		return nil, false
	}
	return v, true
}

// membershipHandler implements the `in`/`not in` collection-query operators
// (§4.6/§6 "comparison operators ==,!=,<,<=,>,>=,in,not in"): r carries the
// `|`-separated alternation text (the same OR separator collection queries
// use elsewhere, e.g. `device_class:door|window`), and l matches if its
// canonical text equals any one alternative. Propagated states never match,
// consistent with "equality against Unknown/Unavailable returns false"
// (§4.10).
type membershipHandler struct{}

func (membershipHandler) Name() string  { return "membership" }
func (membershipHandler) Priority() int { return 45 }
func (membershipHandler) CanHandle(l, r types.Scalar, op Op) bool {
	if op != OpIn && op != OpNotIn {
		return false
	}
	_, ok := r.Text()
	return ok
}
func (membershipHandler) Compare(l, r types.Scalar, op Op) (bool, error) {
	if l.IsPropagated() {
		return op == OpNotIn, nil
	}
	text, _ := r.Text()
	member := false
	for _, alt := range strings.Split(text, "|") {
		if l.String() == strings.TrimSpace(alt) {
			member = true
			break
		}
	}
	if op == OpNotIn {
		return !member, nil
	}
	return member, nil
}

func isOrdering(op Op) bool {
	switch op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	default:
		return false
	}
}

func orderFloat(l, r float64, op Op) bool {
	switch op {
	case OpLess:
		return l < r
	case OpLessEqual:
		return l <= r
	case OpGreater:
		return l > r
	case OpGreaterEqual:
		return l >= r
	default:
		return false
	}
}

func orderInt(c int, op Op) bool {
	switch op {
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	default:
		return false
	}
}
