package helpers

import (
	"encoding/json"

	"github.com/modulrcloud/counter-relay/constants"
	"github.com/modulrcloud/counter-relay/structures"

	"github.com/valyala/fasthttp"
)

// ResolveGasParams picks each gas parameter independently: body, then query, then the
// configured default. Unusable values count as absent for their source only.
func ResolveGasParams(body map[string]any, query *fasthttp.Args, defaults structures.GasParams) structures.GasParams {
	return structures.GasParams{
		Budget: firstGasValue(
			bodyGasValue(body, constants.ParamGasBudget, constants.ParamGasBudgetSnake),
			queryGasValue(query, constants.ParamGasBudget, constants.ParamGasBudgetSnake),
			defaults.Budget,
		),
		Price: firstGasValue(
			bodyGasValue(body, constants.ParamGasPrice, constants.ParamGasPriceSnake),
			queryGasValue(query, constants.ParamGasPrice, constants.ParamGasPriceSnake),
			defaults.Price,
		),
	}
}

func firstGasValue(candidates ...*uint64) *uint64 {
	for _, c := range candidates {
		if c != nil {
			v := *c
			return &v
		}
	}
	return nil
}

func bodyGasValue(body map[string]any, names ...string) *uint64 {
	for _, name := range names {
		raw, ok := body[name]
		if !ok {
			continue
		}
		if v := gasFromJSON(raw); v != nil {
			return v
		}
	}
	return nil
}

func gasFromJSON(raw any) *uint64 {
	switch v := raw.(type) {
	case json.Number:
		return structures.ParseGasValue(v.String())
	case float64:
		return structures.FloatGasValue(v)
	case string:
		return structures.ParseGasValue(v)
	default:
		return nil
	}
}

func queryGasValue(query *fasthttp.Args, names ...string) *uint64 {
	if query == nil {
		return nil
	}
	for _, name := range names {
		if v := structures.ParseGasValue(string(query.Peek(name))); v != nil {
			return v
		}
	}
	return nil
}
