package routes

import (
	"context"
	"fmt"
	"strings"

	"github.com/modulrcloud/counter-relay/constants"
	"github.com/modulrcloud/counter-relay/handlers"
	"github.com/modulrcloud/counter-relay/http_pack/helpers"
	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const counterNotFoundMessage = "Counter object not found in transaction results"

type discoveryStrategy string

const (
	discoveryObjectType   discoveryStrategy = "object_type"
	discoveryObjectLookup discoveryStrategy = "object_lookup"
	discoveryNone         discoveryStrategy = "none"
)

type counterDiscovery struct {
	Strategy discoveryStrategy
	ObjectId string
}

type createResponse struct {
	Success        bool                              `json:"success"`
	CounterId      string                            `json:"counterId"`
	Digest         string                            `json:"digest"`
	GasBudget      *uint64                           `json:"gasBudget"`
	GasPrice       *uint64                           `json:"gasPrice"`
	TxStatusEvents []structures.ExtractedStatusEvent `json:"txStatusEvents"`
	Events         []structures.RawEvent             `json:"events"`
}

type createMissResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Digest  string `json:"digest"`
}

type mutateResponse struct {
	Success        bool                              `json:"success"`
	CounterId      string                            `json:"counterId"`
	Digest         string                            `json:"digest"`
	Value          any                               `json:"value"`
	GasBudget      *uint64                           `json:"gasBudget"`
	GasPrice       *uint64                           `json:"gasPrice"`
	TxStatusEvents []structures.ExtractedStatusEvent `json:"txStatusEvents"`
	Events         []structures.RawEvent             `json:"events"`
}

type valueResponse struct {
	Value any `json:"value"`
}

// CreateCounter calls counter::create and reports the id of the new Counter object.
func CreateCounter(relay *handlers.Relay) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		body, err := helpers.ParseBody(ctx)
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		gas := helpers.ResolveGasParams(body, ctx.QueryArgs(), relay.Config.GasDefaults)
		tx := ledger.NewMoveCall(relay.PackageId(), constants.CounterModule, constants.EntryCreate)

		result, err := relay.Executor.Execute(context.Background(), tx, gas)
		if err != nil {
			writeExecutionErr(ctx, constants.EntryCreate, err)
			return
		}

		found := discoverCounter(context.Background(), relay.Ledger, result)

		if found.Strategy == discoveryNone {
			utils.Log().Warn(counterNotFoundMessage, zap.String("digest", result.Digest))
			helpers.WriteJSON(ctx, fasthttp.StatusOK, createMissResponse{
				Success: false,
				Message: counterNotFoundMessage,
				Digest:  result.Digest,
			})
			return
		}

		utils.Log().Info("Counter created",
			zap.String("counterId", found.ObjectId),
			zap.String("discovery", string(found.Strategy)),
			zap.String("digest", result.Digest))

		helpers.WriteJSON(ctx, fasthttp.StatusOK, createResponse{
			Success:        result.Succeeded(),
			CounterId:      found.ObjectId,
			Digest:         result.Digest,
			GasBudget:      result.AppliedGas.Budget,
			GasPrice:       result.AppliedGas.Price,
			TxStatusEvents: statusEventsOf(result),
			Events:         eventsOf(result),
		})
	}
}

func IncrementCounter(relay *handlers.Relay) fasthttp.RequestHandler {
	return mutateCounter(relay, constants.EntryIncrement)
}

func ResetCounter(relay *handlers.Relay) fasthttp.RequestHandler {
	return mutateCounter(relay, constants.EntryReset)
}

func mutateCounter(relay *handlers.Relay, entry string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		body, err := helpers.ParseBody(ctx)
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		counterId, err := relay.CounterId(helpers.StringParam(body, ctx.QueryArgs(), constants.ParamCounterId))
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		gas := helpers.ResolveGasParams(body, ctx.QueryArgs(), relay.Config.GasDefaults)
		tx := ledger.NewMoveCall(relay.PackageId(), constants.CounterModule, entry, ledger.ObjectArg(counterId))

		result, err := relay.Executor.Execute(context.Background(), tx, gas)
		if err != nil {
			writeExecutionErr(ctx, entry, err)
			return
		}

		value := utils.BestEffort("re-read counter value", func() (any, error) {
			return readCounterValue(context.Background(), relay.Ledger, counterId)
		}, zap.String("counterId", counterId), zap.String("digest", result.Digest))

		helpers.WriteJSON(ctx, fasthttp.StatusOK, mutateResponse{
			Success:        result.Succeeded(),
			CounterId:      counterId,
			Digest:         result.Digest,
			Value:          value.ValueOr(nil),
			GasBudget:      result.AppliedGas.Budget,
			GasPrice:       result.AppliedGas.Price,
			TxStatusEvents: statusEventsOf(result),
			Events:         eventsOf(result),
		})
	}
}

// GetCounterValue reads the counter's current value straight from the ledger.
func GetCounterValue(relay *handlers.Relay) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		counterId, err := relay.CounterId(string(ctx.QueryArgs().Peek(constants.ParamCounterId)))
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		value, err := readCounterValue(context.Background(), relay.Ledger, counterId)
		if err != nil {
			utils.Log().Warn("Counter read failed", zap.String("counterId", counterId), zap.Error(err))
			helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		helpers.WriteJSON(ctx, fasthttp.StatusOK, valueResponse{Value: value})
	}
}

// discoverCounter finds the created Counter object: first by the type recorded in the
// object changes, then by asking the ledger for each created object's type.
func discoverCounter(ctx context.Context, client ledger.Client, result *structures.TransactionResult) counterDiscovery {

	created := result.CreatedObjects()

	for _, change := range created {
		if strings.HasSuffix(change.ObjectType, constants.CounterTypeSuffix) {
			return counterDiscovery{Strategy: discoveryObjectType, ObjectId: change.ObjectId}
		}
	}

	for _, change := range created {
		if change.ObjectId == "" {
			continue
		}
		obj := utils.BestEffort("look up created object type", func() (*structures.ObjectData, error) {
			return client.GetObject(ctx, change.ObjectId)
		}, zap.String("objectId", change.ObjectId))
		if obj.OK() && strings.HasSuffix(obj.Value.MoveType(), constants.CounterTypeSuffix) {
			return counterDiscovery{Strategy: discoveryObjectLookup, ObjectId: change.ObjectId}
		}
	}

	return counterDiscovery{Strategy: discoveryNone}
}

func readCounterValue(ctx context.Context, client ledger.Client, counterId string) (any, error) {

	obj, err := client.GetObject(ctx, counterId)
	if err != nil {
		return nil, err
	}

	value, ok := obj.Field(constants.CounterValueField)
	if !ok {
		return nil, fmt.Errorf("object %s has no %q field", counterId, constants.CounterValueField)
	}

	return value, nil
}

func writeExecutionErr(ctx *fasthttp.RequestCtx, entry string, err error) {

	utils.Log().Error("Transaction execution failed", zap.String("function", entry), zap.Error(err))
	helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, err.Error())
}

func statusEventsOf(result *structures.TransactionResult) []structures.ExtractedStatusEvent {
	if result.TxStatusEvents == nil {
		return []structures.ExtractedStatusEvent{}
	}
	return result.TxStatusEvents
}

func eventsOf(result *structures.TransactionResult) []structures.RawEvent {
	if result.Events == nil {
		return []structures.RawEvent{}
	}
	return result.Events
}
