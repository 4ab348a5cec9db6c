package events

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/modulrcloud/counter-relay/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesOf(s string) []any {
	out := make([]any, 0, len(s))
	for _, b := range []byte(s) {
		out = append(out, float64(b))
	}
	return out
}

func event(eventType string, seq string, parsed map[string]any) structures.RawEvent {
	ts := "1700000000000"
	return structures.RawEvent{
		Type:              eventType,
		Id:                structures.EventId{TxDigest: "D1", EventSeq: seq},
		TimestampMs:       &ts,
		ParsedJson:        parsed,
		PackageId:         "0xPKG",
		TransactionModule: "counter",
		Sender:            "0xSENDER",
		Bcs:               "AAEC",
	}
}

func TestSelectPrefersTypeName(t *testing.T) {

	evs := []structures.RawEvent{
		event("0xPKG::counter::TxStatus", "0", map[string]any{"action": "a"}),
		event("0xPKG::counter::Other", "1", map[string]any{"action": "a", "status": "s", "sender": "0x1"}),
		event("0xPKG::counter::TXSTATUS", "2", map[string]any{}),
		event("0xPKG::counter::NotTxStatus", "3", map[string]any{}),
	}

	sel := Select(evs)

	assert.Equal(t, StrategyTypeName, sel.Strategy)
	require.Len(t, sel.Events, 2)
	assert.Equal(t, "0", sel.Events[0].Id.EventSeq)
	assert.Equal(t, "2", sel.Events[1].Id.EventSeq)
}

func TestSelectFallsBackToStructure(t *testing.T) {

	evs := []structures.RawEvent{
		event("0xPKG::counter::Changed", "0", map[string]any{"action": "a", "status": "s", "sender": "0x1"}),
		event("0xPKG::counter::Changed", "1", map[string]any{"action": "a", "status": "s"}),
		event("0xPKG::counter::Other", "2", map[string]any{"action": nil, "status": nil, "sender": nil, "extra": 1.0}),
	}

	sel := Select(evs)

	assert.Equal(t, StrategyStructural, sel.Strategy)
	require.Len(t, sel.Events, 2)
	assert.Equal(t, "0", sel.Events[0].Id.EventSeq)
	assert.Equal(t, "2", sel.Events[1].Id.EventSeq)
}

func TestSelectNothing(t *testing.T) {

	sel := Select([]structures.RawEvent{event("0xPKG::counter::Changed", "0", map[string]any{"value": 1.0})})
	assert.Equal(t, StrategyNone, sel.Strategy)
	assert.Empty(t, sel.Events)

	assert.Empty(t, Extract(nil))
}

func TestStructName(t *testing.T) {

	cases := map[string]string{
		"0x2::counter::TxStatus":                   "TxStatus",
		"0x2::counter::TxStatus<0x2::sui::SUI>":    "TxStatus",
		"0x2::coin::Wrapper<0x2::counter::Inner>": "Wrapper",
		"TxStatus":                                 "TxStatus",
		"":                                         "",
	}

	for in, want := range cases {
		assert.Equal(t, want, StructName(in), in)
	}
}

func TestExtractDecodesByteArrayAction(t *testing.T) {

	raw := bytesOf("INCREMENT")
	out := Extract([]structures.RawEvent{
		event("0xPKG::counter::TxStatus", "0", map[string]any{"action": raw, "status": nil, "sender": "0x1"}),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "INCREMENT", out[0].ActionDecoded)
	assert.NotEqual(t, raw, out[0].ActionDecoded)
	assert.Equal(t, raw, out[0].Fields["action"])
	assert.Nil(t, out[0].StatusDecoded)
}

func TestExtractDecodesBase64Status(t *testing.T) {

	out := Extract([]structures.RawEvent{
		event("0xPKG::counter::TxStatus", "0", map[string]any{"status": base64.StdEncoding.EncodeToString([]byte("OK"))}),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "OK", out[0].StatusDecoded)
	assert.Equal(t, "T0s=", out[0].Fields["status"])
}

func TestExtractKeepsBinaryBase64(t *testing.T) {

	binary := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa})

	out := Extract([]structures.RawEvent{
		event("0xPKG::counter::TxStatus", "0", map[string]any{"status": binary}),
	})

	require.Len(t, out, 1)
	assert.Equal(t, binary, DecodeField(binary))
	assert.Nil(t, out[0].StatusDecoded)
	assert.Equal(t, binary, out[0].Fields["status"])
}

func TestDecodeField(t *testing.T) {

	assert.Nil(t, DecodeField(nil))
	assert.Equal(t, "plain text", DecodeField("plain text"))
	assert.Equal(t, "hello", DecodeField([]byte("hello")))
	assert.Equal(t, 42.0, DecodeField(42.0))
	assert.Equal(t, true, DecodeField(true))

	notBytes := []any{1.0, 256.0}
	assert.Equal(t, notBytes, DecodeField(notBytes))
	fractional := []any{1.5}
	assert.Equal(t, fractional, DecodeField(fractional))
	assert.Equal(t, "hi", DecodeField([]any{json.Number("104"), json.Number("105")}))

	// invalid UTF-8 in a plain string is replaced, not rejected
	assert.Equal(t, "a�b", DecodeField("a\xffb"))

	obj := map[string]any{"k": "v"}
	assert.Equal(t, obj, DecodeField(obj))
}

func TestDecodeFieldReplacementRatio(t *testing.T) {

	b64 := func(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"one bad byte in five is rejected", []byte("abcd\xff"), b64([]byte("abcd\xff"))},
		{"one bad byte in six is decoded", []byte("abcde\xff"), "abcde\uFFFD"},
		{"encoded substitution characters count", []byte("\uFFFD\uFFFDab"), b64([]byte("\uFFFD\uFFFDab"))},
		{"truncated sequence is a single bad unit", []byte("abcdefg\xe3\x80"), "abcdefg\uFFFD"},
		{"broken sequence before ascii", []byte("abcdefgh\xe3\x80i"), "abcdefgh\uFFFDi"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeField(b64(tc.in)))
		})
	}
}

func TestExtractOutputShape(t *testing.T) {

	ev := event("0xPKG::counter::TxStatus", "4", map[string]any{
		"action": "T0s=",
		"status": "done",
		"sender": "0x1",
		"id":     "contract-id",
	})

	out := Extract([]structures.RawEvent{ev})
	require.Len(t, out, 1)

	flat := out[0].Flatten()

	assert.Equal(t, "0xPKG::counter::TxStatus", flat["type"])
	assert.Equal(t, "contract-id", flat["id"], "payload keys are spread after structural ones")
	assert.Equal(t, "OK", flat["action_decoded"])
	assert.Equal(t, "0x1", flat["sender"])

	raw, ok := flat["_raw"].(structures.EventProvenance)
	require.True(t, ok)
	assert.Equal(t, structures.EventId{TxDigest: "D1", EventSeq: "4"}, raw.Id)
	assert.Equal(t, "0xPKG", raw.PackageId)
	assert.Equal(t, "counter", raw.TransactionModule)
	assert.Equal(t, "0xSENDER", raw.Sender)
	assert.Equal(t, "AAEC", raw.Bcs)

	assert.Equal(t, []string{"id"}, out[0].Collisions())

	body, err := json.Marshal(out[0])
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "1700000000000", decoded["timestampMs"])
	assert.Nil(t, decoded["status_decoded"])
	assert.Contains(t, decoded, "_raw")
}

func TestExtractDoesNotMutateInput(t *testing.T) {

	payload := map[string]any{
		"action": bytesOf("RESET"),
		"status": "T0s=",
		"sender": "0x1",
		"nested": map[string]any{"k": []any{1.0}},
	}
	evs := []structures.RawEvent{event("0xPKG::counter::TxStatus", "0", payload)}

	before, err := json.Marshal(evs)
	require.NoError(t, err)

	out := Extract(evs)
	out[0].Fields["nested"].(map[string]any)["k"] = "changed"

	after, err := json.Marshal(evs)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestExtractIsIdempotent(t *testing.T) {

	evs := []structures.RawEvent{
		event("0xPKG::counter::TxStatus", "0", map[string]any{"action": bytesOf("CREATE"), "status": "T0s=", "sender": "0x1"}),
		event("0xPKG::counter::TxStatus", "1", map[string]any{"action": "//79/Pv6", "status": nil, "sender": "0x1"}),
	}

	first, err := json.Marshal(Extract(evs))
	require.NoError(t, err)
	second, err := json.Marshal(Extract(evs))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}
