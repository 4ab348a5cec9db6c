package structures

import (
	"encoding/json"
	"strings"
)

const (
	EffectsSuccess = "success"
	EffectsFailure = "failure"
)

const (
	ObjectChangeCreated = "created"
	ObjectChangeMutated = "mutated"
	ObjectChangeDeleted = "deleted"
)

type EventId struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// RawEvent is an event exactly as reported by the fullnode. ParsedJson is contract-defined.
type RawEvent struct {
	Type              string         `json:"type"`
	Id                EventId        `json:"id"`
	TimestampMs       *string        `json:"timestampMs"`
	ParsedJson        map[string]any `json:"parsedJson"`
	PackageId         string         `json:"packageId"`
	TransactionModule string         `json:"transactionModule"`
	Sender            string         `json:"sender"`
	Bcs               string         `json:"bcs"`
	BcsEncoding       string         `json:"bcsEncoding,omitempty"`
}

func (e *RawEvent) UnmarshalJSON(data []byte) error {
	type alias RawEvent
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ParsedJson == nil {
		aux.ParsedJson = make(map[string]any)
	}
	*e = RawEvent(aux)
	return nil
}

type ObjectChange struct {
	Type       string `json:"type"`
	Sender     string `json:"sender,omitempty"`
	Owner      any    `json:"owner,omitempty"`
	ObjectId   string `json:"objectId,omitempty"`
	ObjectType string `json:"objectType,omitempty"`
	PackageId  string `json:"packageId,omitempty"`
	Version    string `json:"version,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

type EffectsStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type GasCostSummary struct {
	ComputationCost         string `json:"computationCost"`
	StorageCost             string `json:"storageCost"`
	StorageRebate           string `json:"storageRebate"`
	NonRefundableStorageFee string `json:"nonRefundableStorageFee"`
}

type TransactionEffects struct {
	Status  EffectsStatus  `json:"status"`
	GasUsed GasCostSummary `json:"gasUsed"`
}

// TransactionResult is a finalized transaction. TxStatusEvents is filled by the executor
// and AppliedGas records the overrides that actually made it into the transaction.
type TransactionResult struct {
	Digest         string                 `json:"digest"`
	Effects        *TransactionEffects    `json:"effects,omitempty"`
	Events         []RawEvent             `json:"events"`
	ObjectChanges  []ObjectChange         `json:"objectChanges"`
	TxStatusEvents []ExtractedStatusEvent `json:"txStatusEvents"`
	AppliedGas     GasParams              `json:"-"`
}

func (r *TransactionResult) Succeeded() bool {
	return r.Effects != nil && r.Effects.Status.Status == EffectsSuccess
}

// StatusError returns the effects error message, nil when there is none.
func (r *TransactionResult) StatusError() *string {
	if r.Effects == nil || r.Effects.Status.Error == "" {
		return nil
	}
	msg := r.Effects.Status.Error
	return &msg
}

func (r *TransactionResult) EventTypes() []string {
	types := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		types = append(types, ev.Type)
	}
	return types
}

// CreatedObjects returns the object changes tagged "created", in ledger order.
func (r *TransactionResult) CreatedObjects() []ObjectChange {
	var created []ObjectChange
	for _, change := range r.ObjectChanges {
		if change.Type == ObjectChangeCreated {
			created = append(created, change)
		}
	}
	return created
}

type MoveObjectContent struct {
	DataType          string         `json:"dataType"`
	Type              string         `json:"type"`
	HasPublicTransfer bool           `json:"hasPublicTransfer"`
	Fields            map[string]any `json:"fields"`
}

type ObjectData struct {
	ObjectId string             `json:"objectId"`
	Version  string             `json:"version"`
	Digest   string             `json:"digest"`
	Type     string             `json:"type"`
	Owner    any                `json:"owner,omitempty"`
	Content  *MoveObjectContent `json:"content,omitempty"`
}

// MoveType prefers the object's own type and falls back to the content type.
func (o *ObjectData) MoveType() string {
	if o.Type != "" {
		return o.Type
	}
	if o.Content != nil {
		return o.Content.Type
	}
	return ""
}

// Field reads a top-level field of a move object.
func (o *ObjectData) Field(name string) (any, bool) {
	if o.Content == nil || !strings.EqualFold(o.Content.DataType, "moveObject") || o.Content.Fields == nil {
		return nil, false
	}
	v, ok := o.Content.Fields[name]
	return v, ok
}

type NormalizedModule struct {
	FileFormatVersion int                        `json:"fileFormatVersion"`
	Address           string                     `json:"address"`
	Name              string                     `json:"name"`
	Friends           []json.RawMessage          `json:"friends"`
	Structs           map[string]json.RawMessage `json:"structs"`
	ExposedFunctions  map[string]json.RawMessage `json:"exposedFunctions"`
}
