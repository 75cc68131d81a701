package evaluator

import (
	"fmt"
	"math"

	"github.com/LegoTypes/synthformula/internal/collection"
	"github.com/LegoTypes/synthformula/internal/resolver"
	"github.com/LegoTypes/synthformula/internal/types"
)

// aggregateNames are the function names that may dispatch either to the
// Collection Query Engine (single collection-shaped argument) or to a
// plain n-ary math reduction over explicit numeric arguments (§4.10 Call
// dispatch: "aggregates (dispatch to C6)", §4.6 "Aggregates available at
// call sites").
var aggregateNames = map[string]bool{
	"sum": true, "avg": true, "mean": true, "count": true,
	"min": true, "max": true, "std": true, "var": true,
}

func (e *Evaluator) evalCall(node *types.ASTNode, ctx *LazyContext, cycle *resolver.Cycle) (types.Scalar, error) {
	name := node.Callee.Name

	if aggregateNames[name] && len(node.Args) == 1 {
		if ids, handled, err := e.collectionIDs(node.Args[0], cycle); handled {
			if err != nil {
				return types.Scalar{}, err
			}
			return collection.Aggregate(toAggName(name), ids, cycle.Catalog), nil
		}
	}

	args := make([]types.Scalar, len(node.Args))
	for i, a := range node.Args {
		v, err := e.Eval(a, ctx, cycle)
		if err != nil {
			return types.Scalar{}, err
		}
		args[i] = v
	}
	if d, ok := dominant(args...); ok {
		return d, nil
	}

	nums := make([]float64, len(args))
	for i, a := range args {
		f, ok := a.Float64()
		if !ok {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "function requires numeric arguments").WithName(name)
		}
		nums[i] = f
	}

	switch name {
	case "abs":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Abs(nums[0])), nil
	case "floor":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Floor(nums[0])), nil
	case "ceil":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Ceil(nums[0])), nil
	case "sqrt":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Sqrt(nums[0])), nil
	case "sin":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Sin(nums[0])), nil
	case "cos":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Cos(nums[0])), nil
	case "tan":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Tan(nums[0])), nil
	case "log":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Log(nums[0])), nil
	case "exp":
		if len(nums) != 1 {
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
		return types.Number(math.Exp(nums[0])), nil
	case "round":
		switch len(nums) {
		case 1:
			return types.Number(math.Round(nums[0])), nil
		case 2:
			scale := math.Pow(10, nums[1])
			return types.Number(math.Round(nums[0]*scale) / scale), nil
		default:
			return types.Scalar{}, arityError(name, 1, len(nums))
		}
	case "pow":
		if len(nums) != 2 {
			return types.Scalar{}, arityError(name, 2, len(nums))
		}
		return types.Number(math.Pow(nums[0], nums[1])), nil
	case "clamp":
		if len(nums) != 3 {
			return types.Scalar{}, arityError(name, 3, len(nums))
		}
		return types.Number(clamp(nums[0], nums[1], nums[2])), nil
	case "percent":
		if len(nums) != 2 {
			return types.Scalar{}, arityError(name, 2, len(nums))
		}
		if nums[1] == 0 {
			return types.Scalar{}, types.NewError(types.ErrDataValidation, "percent() of a zero total")
		}
		return types.Number(nums[0] / nums[1] * 100), nil
	case "map":
		if len(nums) != 5 {
			return types.Scalar{}, arityError(name, 5, len(nums))
		}
		return types.Number(linearMap(nums[0], nums[1], nums[2], nums[3], nums[4])), nil
	case "min":
		if len(nums) == 0 {
			return types.Scalar{}, arityError(name, 1, 0)
		}
		return types.Number(minOf(nums)), nil
	case "max":
		if len(nums) == 0 {
			return types.Scalar{}, arityError(name, 1, 0)
		}
		return types.Number(maxOf(nums)), nil
	case "sum":
		return types.Number(sumOf(nums)), nil
	case "avg", "mean":
		if len(nums) == 0 {
			return types.Scalar{}, arityError(name, 1, 0)
		}
		return types.Number(sumOf(nums) / float64(len(nums))), nil
	case "count":
		return types.Integer(int64(len(nums))), nil
	case "std":
		if len(nums) == 0 {
			return types.Scalar{}, arityError(name, 1, 0)
		}
		return types.Number(math.Sqrt(varianceOf(nums))), nil
	case "var":
		if len(nums) == 0 {
			return types.Scalar{}, arityError(name, 1, 0)
		}
		return types.Number(varianceOf(nums)), nil
	default:
		return types.Scalar{}, types.NewError(types.ErrHandler, "unknown function").WithName(name)
	}
}

// collectionIDs resolves a single aggregate-call argument to a set of
// matched entity ids, when that argument is collection-shaped: either a
// CollectionQuery literal (a bare string argument, converted by the parser)
// or a Name bound to a CollectionPattern variable. handled=false tells the
// caller to fall back to treating the call as an ordinary n-ary math
// reduction instead.
func (e *Evaluator) collectionIDs(arg *types.ASTNode, cycle *resolver.Cycle) (ids []string, handled bool, err error) {
	var raw string
	switch {
	case arg.Kind == types.NodeCollectionQuery:
		raw = arg.Name
	case arg.Kind == types.NodeName:
		strat, ok := cycle.Plan.StrategyOf(arg.Name)
		if !ok || strat != types.StrategyComputed {
			return nil, false, nil
		}
		vb, ok := cycle.Variables[arg.Name]
		if !ok || vb.Kind != types.VarCollectionPattern {
			return nil, false, nil
		}
		raw = vb.Pattern
	default:
		return nil, false, nil
	}

	q, perr := collection.Parse(raw)
	if perr != nil {
		return nil, true, perr
	}
	ids, perr = collection.Evaluate(q, cycle.Catalog, e.Compare)
	return ids, true, perr
}

func toAggName(name string) string {
	switch name {
	case "mean":
		return collection.AggAvg
	default:
		return name
	}
}

func arityError(fn string, want, got int) error {
	return types.NewError(types.ErrHandler, fmt.Sprintf("%s expects %d argument(s), got %d", fn, want, got)).WithName(fn)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func linearMap(v, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func sumOf(vs []float64) float64 {
	var total float64
	for _, v := range vs {
		total += v
	}
	return total
}

func varianceOf(vs []float64) float64 {
	mean := sumOf(vs) / float64(len(vs))
	var acc float64
	for _, v := range vs {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(vs))
}
