package routes

import (
	"context"
	"maps"
	"slices"

	"github.com/modulrcloud/counter-relay/constants"
	"github.com/modulrcloud/counter-relay/handlers"
	"github.com/modulrcloud/counter-relay/http_pack/helpers"

	"github.com/valyala/fasthttp"
)

type moduleResponse struct {
	Package   string   `json:"package"`
	Module    string   `json:"module"`
	Structs   []string `json:"structs"`
	Functions []string `json:"functions"`
}

// GetModuleInfo lists the struct and exposed function names of the deployed counter module.
func GetModuleInfo(relay *handlers.Relay) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		packageId := relay.PackageId()
		if packageId == "" {
			helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, constants.EnvPackageId+" is not configured")
			return
		}

		mod, err := relay.Ledger.GetNormalizedModule(context.Background(), packageId, constants.CounterModule)
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		structs := slices.Sorted(maps.Keys(mod.Structs))
		functions := slices.Sorted(maps.Keys(mod.ExposedFunctions))

		if structs == nil {
			structs = []string{}
		}
		if functions == nil {
			functions = []string{}
		}

		helpers.WriteJSON(ctx, fasthttp.StatusOK, moduleResponse{
			Package:   packageId,
			Module:    constants.CounterModule,
			Structs:   structs,
			Functions: functions,
		})
	}
}
