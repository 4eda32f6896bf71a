package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcflow/apierr"
)

type sliceSink struct {
	frames []Frame
	err    error
}

func (s *sliceSink) Push(f Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func TestCanonicalize(t *testing.T) {
	type ordered struct {
		B int    `json:"b"`
		A string `json:"a"`
	}

	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"nil", nil, ""},
		{"sorted keys", map[string]any{"b": 1, "a": "x"}, "axb1"},
		{"struct keys", ordered{B: 1, A: "x"}, "axb1"},
		{"array", map[string]any{"channels": []string{"book.BTC_USDT", "ticker.ETH_CRO"}}, "channelsbook.BTC_USDTticker.ETH_CRO"},
		{"null", map[string]any{"k": nil}, "knull"},
		{"bools", map[string]any{"t": true, "f": false}, "ffalsettrue"},
		{"decimal", map[string]any{"price": 1.5, "qty": 20}, "price1.5qty20"},
		{"nested", map[string]any{"order_list": []any{map[string]any{"side": "BUY", "order_id": "1"}}}, "order_listorder_id1sideBUY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalizeUnmarshalable(t *testing.T) {
	_, err := Canonicalize(map[string]any{"c": make(chan int)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrDecodeFailure))
}

func TestSignMatchesHMAC(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("payload"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), Sign("secret", "payload"))
}

func TestSignatureDeterminism(t *testing.T) {
	build := func(params any) string {
		req, err := NewRequest().
			WithID(11).
			WithMethod("public/auth").
			WithParams(params).
			WithAPIKey("key").
			WithNonceValue(1587846358253).
			WithDigitalSignature("secret").
			Build()
		require.NoError(t, err)
		return req.Sig
	}

	first := build(map[string]any{"instrument_name": "BTC_USDT", "page": 0})
	second := build(map[string]any{"instrument_name": "BTC_USDT", "page": 0})
	permuted := build(map[string]any{"page": 0, "instrument_name": "BTC_USDT"})

	assert.Equal(t, first, second)
	assert.Equal(t, first, permuted)
	assert.Len(t, first, 64)

	want := Sign("secret", "public/auth11keyinstrument_nameBTC_USDTpage01587846358253")
	assert.Equal(t, want, first)
}

func TestBuildRequiresMethod(t *testing.T) {
	_, err := NewRequest().WithID(1).Build()
	require.Error(t, err)

	var e *apierr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apierr.KindInvalidRequest, e.Kind)
	assert.Equal(t, "method", e.Field)
}

func TestBuildSignatureRequiresKey(t *testing.T) {
	_, err := NewRequest().WithMethod("public/auth").WithDigitalSignature("secret").Build()
	require.Error(t, err)
	assert.Equal(t, apierr.KindInvalidRequest, apierr.KindOf(err))
}

func TestRequestOmitsEmptyFields(t *testing.T) {
	req, err := NewRequest().WithID(3).WithMethod("subscribe").Build()
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"method":"subscribe"}`, string(data))
}

func TestRespondHeartbeat(t *testing.T) {
	sink := &sliceSink{}
	require.NoError(t, RespondHeartbeat(sink, 7))
	require.Len(t, sink.frames, 1)
	assert.Equal(t, FrameText, sink.frames[0].Kind)
	assert.JSONEq(t, `{"id":7,"method":"public/respond-heartbeat"}`, string(sink.frames[0].Payload))
}

func TestSendWrapsSinkError(t *testing.T) {
	sink := &sliceSink{err: errors.New("queue closed")}
	err := RespondHeartbeat(sink, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrSendFailure))
}

func TestDecodeText(t *testing.T) {
	env, err := DecodeText([]byte(`{"id":7,"method":"public/heartbeat","code":0}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), env.ID)
	assert.Equal(t, MethodHeartbeat, env.Method)
	assert.True(t, env.Succeeded())
	assert.False(t, env.HasResult())

	env, err = DecodeText([]byte(`{"method":"public/auth","code":10002,"message":"UNAUTHORIZED"}`))
	require.NoError(t, err)
	assert.Equal(t, NoID, env.ID)
	assert.False(t, env.Succeeded())
	assert.Equal(t, int64(10002), env.StatusCode())
	require.NotNil(t, env.Message)
	assert.Equal(t, "UNAUTHORIZED", *env.Message)
}

func TestDecodeFailures(t *testing.T) {
	_, err := DecodeText([]byte(`{"id":`))
	assert.True(t, errors.Is(err, apierr.ErrDecodeFailure))

	_, err = DecodeBinary([]byte{0xff, 0xfe, 0xfd})
	assert.True(t, errors.Is(err, apierr.ErrDecodeFailure))

	env, err := DecodeBinary([]byte(`{"id":1,"method":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "ping", env.Method)
}

func TestParseSubscription(t *testing.T) {
	sub, err := ParseSubscription(json.RawMessage(`{"channel":"ticker","subscription":"ticker.BTC_USDT","instrument_name":"BTC_USDT","data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "ticker", sub.Channel)
	assert.Equal(t, "BTC_USDT", sub.InstrumentName)
	assert.Nil(t, sub.Depth)
}
