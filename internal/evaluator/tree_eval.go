package evaluator

import (
	"math"

	"github.com/LegoTypes/synthformula/internal/collection"
	"github.com/LegoTypes/synthformula/internal/compare"
	"github.com/LegoTypes/synthformula/internal/resolver"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Evaluator walks an AST under a LazyContext, dispatching free names to the
// Variable Resolver Pipeline (C4), comparisons to the Comparison Handler
// Registry (C7), and aggregate calls to the Collection Query Engine (C6)
// (§4.10).
type Evaluator struct {
	Pipeline *resolver.Pipeline
	Compare  *compare.Registry
}

// NewEvaluator builds an Evaluator with the standard resolver pipeline and
// comparison registry.
func NewEvaluator() *Evaluator {
	return &Evaluator{Pipeline: resolver.NewPipeline(), Compare: compare.NewRegistry()}
}

// Eval evaluates node under ctx within cycle (§4.10).
func (e *Evaluator) Eval(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	switch node.Kind {
	case types.NodeLiteral:
		return node.Literal, nil

	case types.NodeName:
		cell, ok := ctx.Cell(node.Name)
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrMissingDependency, "name not present in binding plan").WithName(node.Name)
		}
		v, err := e.Pipeline.Resolve(node.Name, cell, cycle)
		if err != nil {
			return types.Scalar{}, err
		}
		resolver.RecordUnavailable(cycle, node.Name, v)
		return v, nil

	case types.NodeMemberAccess:
		return e.evalMemberAccess(node, ctx, cycle)

	case types.NodeCall:
		return e.evalCall(node, ctx, cycle)

	case types.NodeBinaryOp:
		return e.evalBinary(node, ctx, cycle)

	case types.NodeUnaryOp:
		return e.evalUnary(node, ctx, cycle)

	case types.NodeConditional:
		return e.evalConditional(node, ctx, cycle)

	case types.NodeCollectionQuery:
		q, err := collection.Parse(node.Name)
		if err != nil {
			return types.Scalar{}, err
		}
		ids, err := collection.Evaluate(q, cycle.Catalog, e.Compare)
		if err != nil {
			return types.Scalar{}, err
		}
		return types.Integer(int64(len(ids))), nil

	default:
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "unhandled AST node kind").WithName(node.Kind.String())
	}
}

// dominant returns the strongest propagated state among vs, preferring
// Unavailable over Unknown (§4.10 "Unavailable dominates Unknown"), and
// false when no operand is propagated.
func dominant(vs ...types.Scalar) (types.Scalar, bool) {
	found := false
	var result types.Scalar
	for _, v := range vs {
		if v.IsUnavailable() {
			return v, true
		}
		if v.IsUnknown() {
			result = v
			found = true
		}
	}
	return result, found
}

func (e *Evaluator) evalMemberAccess(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	if node.Receiver == nil || node.Receiver.Kind != types.NodeName {
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "member access receiver must be a name").WithName(node.Name)
	}
	target := node.Receiver.Name
	field := node.Name

	if target == "state" {
		if cycle.StateAttributes == nil {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "state has no backing attributes this cycle").WithName(field)
		}
		v, ok := cycle.StateAttributes[field]
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "attribute not present on backing entity").WithName(field)
		}
		return v, nil
	}

	strat, ok := cycle.Plan.StrategyOf(target)
	if !ok {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "member access target not in binding plan").WithName(target)
	}

	switch strat {
	case types.StrategyCrossSensor:
		if cycle.Registry == nil {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "no cross-sensor registry configured").WithName(target)
		}
		v, ok := cycle.Registry.Attribute(target, field)
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "sibling sensor has no such attribute").WithName(target + "." + field)
		}
		return v, nil

	case types.StrategyHostEntity, types.StrategyDataSource:
		id := target
		if vb, ok := cycle.Variables[target]; ok && vb.Kind == types.VarEntityRef {
			id = vb.EntityID
		}
		if cycle.Catalog == nil {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "no host catalog configured").WithName(id)
		}
		ent, ok := cycle.Catalog.Get(id)
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrMissingDependency, "entity not found in host catalog").WithName(id)
		}
		v, ok := ent.Attribute(field)
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "entity has no such attribute").WithName(id + "." + field)
		}
		return v, nil

	default:
		return types.Scalar{}, types.NewError(types.ErrMissingAttribute, "member access target has no attribute source").WithName(target)
	}
}

func (e *Evaluator) evalConditional(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	cond, err := e.Eval(node.Cond, ctx, cycle)
	if err != nil {
		return types.Scalar{}, err
	}
	if cond.IsPropagated() {
		return cond, nil
	}
	b, ok := cond.Bool64()
	if !ok {
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "conditional requires a boolean condition")
	}
	if b {
		return e.Eval(node.Then, ctx, cycle)
	}
	return e.Eval(node.Else, ctx, cycle)
}

func (e *Evaluator) evalUnary(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	v, err := e.Eval(node.LHS, ctx, cycle)
	if err != nil {
		return types.Scalar{}, err
	}
	if v.IsPropagated() {
		return v, nil
	}
	switch node.Op {
	case "-":
		f, ok := v.Float64()
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "unary '-' requires a numeric operand")
		}
		return types.Number(-f), nil
	case "not":
		b, ok := v.Bool64()
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "unary 'not' requires a boolean operand")
		}
		return types.Bool(!b), nil
	default:
		return types.Scalar{}, types.NewError(types.ErrHandler, "unknown unary operator").WithName(node.Op)
	}
}

func (e *Evaluator) evalBinary(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	op := node.Op

	if op == "and" || op == "or" {
		left, err := e.Eval(node.LHS, ctx, cycle)
		if err != nil {
			return types.Scalar{}, err
		}
		if left.IsPropagated() {
			return left, nil
		}
		lb, ok := left.Bool64()
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "'"+op+"' requires boolean operands")
		}
		if op == "and" && !lb {
			return types.Bool(false), nil
		}
		if op == "or" && lb {
			return types.Bool(true), nil
		}
		right, err := e.Eval(node.RHS, ctx, cycle)
		if err != nil {
			return types.Scalar{}, err
		}
		if right.IsPropagated() {
			return right, nil
		}
		rb, ok := right.Bool64()
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "'"+op+"' requires boolean operands")
		}
		return types.Bool(rb), nil
	}

	left, err := e.Eval(node.LHS, ctx, cycle)
	if err != nil {
		return types.Scalar{}, err
	}
	right, err := e.Eval(node.RHS, ctx, cycle)
	if err != nil {
		return types.Scalar{}, err
	}

	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return e.evalComparison(left, right, op)
	}

	if d, ok := dominant(left, right); ok {
		return d, nil
	}
	lf, lok := left.Float64()
	rf, rok := right.Float64()
	if !lok || !rok {
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "arithmetic operator requires numeric operands").WithName(op)
	}
	switch op {
	case "+":
		return types.Number(lf + rf), nil
	case "-":
		return types.Number(lf - rf), nil
	case "*":
		return types.Number(lf * rf), nil
	case "/":
		if rf == 0 {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "division by zero")
		}
		return types.Number(lf / rf), nil
	case "%":
		if rf == 0 {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "modulo by zero")
		}
		return types.Number(math.Mod(lf, rf)), nil
	default:
		return types.Scalar{}, types.NewError(types.ErrHandler, "unknown binary operator").WithName(op)
	}
}

// evalComparison handles equality/ordering with propagation rules: equality
// against a propagated operand always returns false/true per spec, never
// propagating further (§4.10 "Equality against Unknown/Unavailable returns
// false"); ordering against a propagated operand propagates, since there is
// no sound answer to "is missing data greater than 5".
func (e *Evaluator) evalComparison(left, right types.Scalar, op string) (types.Scalar, error) {
	switch op {
	case "==":
		return types.Bool(left.Equal(right)), nil
	case "!=":
		return types.Bool(!left.Equal(right)), nil
	}
	if d, ok := dominant(left, right); ok {
		return d, nil
	}
	ok, err := e.Compare.Compare(left, right, compare.Op(op))
	if err != nil {
		return types.Scalar{}, err
	}
	return types.Bool(ok), nil
}
