package structures

import (
	"encoding/json"
	"sort"
)

// EventProvenance keeps the structural fields of the source event, untouched by payload keys.
type EventProvenance struct {
	Type              string  `json:"type"`
	Id                EventId `json:"id"`
	PackageId         string  `json:"packageId"`
	TransactionModule string  `json:"transactionModule"`
	Sender            string  `json:"sender"`
	Bcs               string  `json:"bcs"`
}

// ExtractedStatusEvent is a decoded status report built fresh for a single response.
//
// On the wire it is flattened: the structural fields come first, then every payload
// field (last write wins, so a payload "id" replaces the structural one), then
// action_decoded, status_decoded and _raw. Raw always holds the original provenance.
type ExtractedStatusEvent struct {
	Type          string
	Id            EventId
	TimestampMs   *string
	Fields        map[string]any
	ActionDecoded any
	StatusDecoded any
	Raw           EventProvenance
}

const (
	keyType          = "type"
	keyId            = "id"
	keyTimestampMs   = "timestampMs"
	keyActionDecoded = "action_decoded"
	keyStatusDecoded = "status_decoded"
	keyRaw           = "_raw"
)

var reservedKeys = []string{keyType, keyId, keyTimestampMs, keyActionDecoded, keyStatusDecoded, keyRaw}

// Flatten applies the merge policy and returns the response object.
func (e ExtractedStatusEvent) Flatten() map[string]any {

	out := make(map[string]any, len(e.Fields)+len(reservedKeys))

	out[keyType] = e.Type
	out[keyId] = e.Id
	out[keyTimestampMs] = e.TimestampMs

	for k, v := range e.Fields {
		out[k] = v
	}

	out[keyActionDecoded] = e.ActionDecoded
	out[keyStatusDecoded] = e.StatusDecoded
	out[keyRaw] = e.Raw

	return out
}

// Collisions lists payload keys that shadow or are shadowed by structural keys, sorted.
func (e ExtractedStatusEvent) Collisions() []string {
	var hits []string
	for _, k := range reservedKeys {
		if _, ok := e.Fields[k]; ok {
			hits = append(hits, k)
		}
	}
	sort.Strings(hits)
	return hits
}

func (e ExtractedStatusEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Flatten())
}
