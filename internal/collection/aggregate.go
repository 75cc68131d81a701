package collection

import (
	"math"
	"sort"

	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Aggregate names available at call sites (§4.6 "Aggregates available at
// call sites: sum, avg/mean, count, min, max, std, var").
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMean  = "mean"
	AggCount = "count"
	AggMin   = "min"
	AggMax   = "max"
	AggStd   = "std"
	AggVar   = "var"
)

// Aggregate evaluates name over the entities matched by ids, reading each
// entity's state. count returns the Integer number of matched ids, numeric
// or not (Integer(0) for an empty match set). The other aggregates skip
// non-numeric states (§4.6 "Numeric aggregates ignore non-numeric states"),
// and an empty or all-non-numeric match set yields Number(0) for them.
func Aggregate(name string, ids []string, catalog host.Catalog) types.Scalar {
	if name == AggCount {
		return types.Integer(int64(len(ids)))
	}

	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		e, ok := catalog.Get(id)
		if !ok {
			continue
		}
		if v, ok := e.State.Float64(); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return types.Number(0)
	}

	switch name {
	case AggSum:
		return types.Number(sum(values))
	case AggAvg, AggMean:
		return types.Number(sum(values) / float64(len(values)))
	case AggMin:
		sort.Float64s(values)
		return types.Number(values[0])
	case AggMax:
		sort.Float64s(values)
		return types.Number(values[len(values)-1])
	case AggStd:
		return types.Number(math.Sqrt(variance(values)))
	case AggVar:
		return types.Number(variance(values))
	default:
		return types.Number(0)
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func variance(values []float64) float64 {
	mean := sum(values) / float64(len(values))
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(values))
}
