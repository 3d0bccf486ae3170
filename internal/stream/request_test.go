package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Sections(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantData   bool
		wantNotify bool
	}{
		{"data", `{"data":[{"service":"QUOTE","timestamp":1,"command":"SUBS","content":[{"key":"MSFT"}]}]}`, true, false},
		{"notify", `{"notify":[{"heartbeat":"1618065312000"}]}`, false, true},
		{"both", `{"data":[],"notify":[{"heartbeat":"1"}]}`, true, true},
		{"response only", `{"response":[{"service":"QUOTE","requestid":"1","command":"SUBS","content":{"code":0}}]}`, false, false},
		{"null data", `{"data":null}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := decodeFrame([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, f.HasData())
			assert.Equal(t, tt.wantNotify, f.HasNotify())
			assert.JSONEq(t, tt.raw, string(f.Raw))
		})
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	_, err := decodeFrame([]byte(`{"data":`))
	assert.Error(t, err)
}

func TestResponseID_StringOrNumber(t *testing.T) {
	var resp []Response
	require.NoError(t, json.Unmarshal([]byte(`[{"requestid":"7"},{"requestid":8},{"requestid":null},{"requestid":"x"}]`), &resp))

	assert.Equal(t, int64(7), resp[0].RequestID.Int())
	assert.Equal(t, int64(8), resp[1].RequestID.Int())
	assert.Equal(t, int64(-1), resp[2].RequestID.Int())
	assert.Equal(t, int64(-1), resp[3].RequestID.Int())
}

func TestLoginAck(t *testing.T) {
	f, err := decodeFrame([]byte(`{"response":[
		{"service":"QUOTE","requestid":"1","command":"SUBS","content":{"code":0}},
		{"service":"ADMIN","requestid":"0","command":"LOGIN","content":{"code":3,"msg":"bad"}}
	]}`))
	require.NoError(t, err)

	ack, ok := f.loginAck()
	require.True(t, ok)
	assert.Equal(t, 3, ack.Content.Code)
	assert.Equal(t, "bad", ack.Content.Msg)

	_, ok = Frame{}.loginAck()
	assert.False(t, ok)
}

func TestParameters_JSON(t *testing.T) {
	p := Parameters{Keys: "MSFT", Fields: "0,1", Extra: map[string]string{"qoslevel": "0"}}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":"MSFT","fields":"0,1","qoslevel":"0"}`, string(data))

	var back Parameters
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)

	data, err = json.Marshal(Parameters{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
