// Package events selects the contract's status events from a finalized transaction and
// decodes their action/status payload into readable text.
package events

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/modulrcloud/counter-relay/constants"
	"github.com/modulrcloud/counter-relay/structures"
)

// Strategy names the selector that produced a Selection.
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyTypeName   Strategy = "type_name"
	StrategyStructural Strategy = "structural"
)

// Base64 text is rejected when at least this share of its runes are replacement characters.
const maxReplacementRatio = 0.2

type selector struct {
	strategy Strategy
	match    func(structures.RawEvent) bool
}

// Ordered: the structural selector only runs when the type-name selector matches nothing.
var selectors = []selector{
	{strategy: StrategyTypeName, match: isStatusType},
	{strategy: StrategyStructural, match: hasStatusShape},
}

type Selection struct {
	Strategy Strategy
	Events   []structures.RawEvent
}

// Normalized is the outcome of one normalizer run.
type Normalized struct {
	Strategy Strategy
	Events   []structures.ExtractedStatusEvent
}

func Select(events []structures.RawEvent) Selection {

	for _, sel := range selectors {
		var picked []structures.RawEvent
		for _, ev := range events {
			if sel.match(ev) {
				picked = append(picked, ev)
			}
		}
		if len(picked) > 0 {
			return Selection{Strategy: sel.strategy, Events: picked}
		}
	}

	return Selection{Strategy: StrategyNone}
}

// Normalize selects the status events and builds a fresh decoded view of each. Input is never modified.
func Normalize(events []structures.RawEvent) Normalized {

	selection := Select(events)

	out := make([]structures.ExtractedStatusEvent, 0, len(selection.Events))
	for _, ev := range selection.Events {
		out = append(out, extractOne(ev))
	}

	return Normalized{Strategy: selection.Strategy, Events: out}
}

func Extract(events []structures.RawEvent) []structures.ExtractedStatusEvent {
	return Normalize(events).Events
}

func extractOne(ev structures.RawEvent) structures.ExtractedStatusEvent {

	fields := make(map[string]any, len(ev.ParsedJson))
	for k, v := range ev.ParsedJson {
		fields[k] = cloneValue(v)
	}

	return structures.ExtractedStatusEvent{
		Type:          ev.Type,
		Id:            ev.Id,
		TimestampMs:   cloneString(ev.TimestampMs),
		Fields:        fields,
		ActionDecoded: decodedIfChanged(ev.ParsedJson[constants.FieldAction]),
		StatusDecoded: decodedIfChanged(ev.ParsedJson[constants.FieldStatus]),
		Raw: structures.EventProvenance{
			Type:              ev.Type,
			Id:                ev.Id,
			PackageId:         ev.PackageId,
			TransactionModule: ev.TransactionModule,
			Sender:            ev.Sender,
			Bcs:               ev.Bcs,
		},
	}
}

// StructName returns the final path segment of a Move type with generic arguments removed.
func StructName(moveType string) string {
	if i := strings.IndexByte(moveType, '<'); i >= 0 {
		moveType = moveType[:i]
	}
	if i := strings.LastIndex(moveType, "::"); i >= 0 {
		return moveType[i+2:]
	}
	return moveType
}

func isStatusType(ev structures.RawEvent) bool {
	return strings.EqualFold(StructName(ev.Type), constants.TxStatusEventName)
}

func hasStatusShape(ev structures.RawEvent) bool {
	for _, key := range []string{constants.FieldAction, constants.FieldStatus, constants.FieldSender} {
		if _, ok := ev.ParsedJson[key]; !ok {
			return false
		}
	}
	return true
}

func decodedIfChanged(raw any) any {
	decoded := DecodeField(raw)
	if decoded == nil || reflect.DeepEqual(decoded, raw) {
		return nil
	}
	return decoded
}

// DecodeField turns a contract payload value into text where it can.
// Byte arrays become UTF-8 text, padded base64 strings are decoded when the result reads
// as text, other strings are returned as valid UTF-8 and anything else is passed through.
// A value that cannot be decoded yields nil.
func DecodeField(raw any) (decoded any) {

	defer func() {
		if recover() != nil {
			decoded = nil
		}
	}()

	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		text, _, _ := decodeUTF8(v)
		return text
	case []any:
		if b, ok := byteSlice(v); ok {
			text, _, _ := decodeUTF8(b)
			return text
		}
		return raw
	case string:
		return decodeString(v)
	default:
		return raw
	}
}

func decodeString(s string) string {

	if b, err := base64.StdEncoding.Strict().DecodeString(s); err == nil {
		text, bad, total := decodeUTF8(b)
		if total == 0 || float64(bad)/float64(total) < maxReplacementRatio {
			return text
		}
		return s
	}

	text, _, _ := decodeUTF8([]byte(s))
	return text
}

// decodeUTF8 replaces each maximal invalid subsequence with one U+FFFD and reports how many
// characters of the result are U+FFFD, including ones that were validly encoded in the input.
func decodeUTF8(b []byte) (text string, replaced, runes int) {

	var sb strings.Builder
	sb.Grow(len(b))

	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			size = invalidSequenceLen(b)
		}
		if r == utf8.RuneError {
			replaced++
		}
		sb.WriteRune(r)
		runes++
		b = b[size:]
	}

	return sb.String(), replaced, runes
}

// invalidSequenceLen is the length of the ill-formed prefix of b: a lead byte followed by as many
// continuation bytes as it could legally take before the sequence broke off.
func invalidSequenceLen(b []byte) int {

	lo, hi := byte(0x80), byte(0xBF)
	var need int

	switch lead := b[0]; {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 1
	case lead == 0xE0:
		lo, need = 0xA0, 2
	case lead == 0xED:
		hi, need = 0x9F, 2
	case lead >= 0xE1 && lead <= 0xEF:
		need = 2
	case lead == 0xF0:
		lo, need = 0x90, 3
	case lead == 0xF4:
		hi, need = 0x8F, 3
	case lead >= 0xF1 && lead <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) && b[n] >= lo && b[n] <= hi {
		lo, hi = 0x80, 0xBF
		n++
	}

	return n
}

// byteSlice accepts a JSON array only when every element is an integer in [0, 255].
func byteSlice(items []any) ([]byte, bool) {

	out := make([]byte, len(items))
	for i, item := range items {
		n, ok := integerValue(item)
		if !ok || n < 0 || n > 255 {
			return nil, false
		}
		out[i] = byte(n)
	}

	return out, true
}

func integerValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		if n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
