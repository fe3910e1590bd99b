package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_Classification(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		success  bool
		empty    bool
		wantKind ErrorKind // empty when Err() must be nil
	}{
		{"ok", `{"status":"1","message":"OK","result":"10"}`, true, false, ""},
		{"proxy ok", `{"jsonrpc":"2.0","id":1,"result":"0x1"}`, true, false, ""},
		{"proxy error", `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom"}}`, false, false, KindGeneral},
		{"generic failure", `{"status":"0","message":"NOTOK","result":"Error! Query timeout"}`, false, false, KindGeneral},
		{"rate limit", `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`, false, false, KindRateLimit},
		{"rate limit v2", `{"status":"0","message":"NOTOK","result":"Max calls per sec rate limit reached (5/sec)"}`, false, false, KindRateLimit},
		{"invalid key", `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, false, false, KindInvalidAPIKey},
		{"invalid address", `{"status":"0","message":"NOTOK","result":"Error! Invalid address format"}`, false, false, KindInvalidAddress},
		{"no transactions", `{"status":"0","message":"No transactions found","result":[]}`, false, true, ""},
		{"no records", `{"status":"0","message":"No records found","result":[]}`, false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.success, resp.IsSuccess())
			assert.Equal(t, tt.empty, resp.IsEmptyResult())

			err = resp.Err()
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.Equal(t, tt.wantKind == KindRateLimit, errors.Is(err, ErrRateLimited))
		})
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	for _, body := range []string{"", "not json", "{}", "[]"} {
		_, err := ParseResponse([]byte(body))
		assert.True(t, errors.Is(err, ErrBadResponse), "body %q", body)
	}
}

func TestResponse_ErrorText(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"status":"0","message":"NOTOK","result":{"detail":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "NOTOK", resp.ErrorText(), "non-string result falls back to message")

	perr := resp.Err()
	assert.EqualError(t, perr, "provider rejected request: NOTOK")
}

func TestResponse_DecodeResult(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"status":"1","message":"OK","result":"123"}`))
	require.NoError(t, err)

	s, err := resp.ResultString()
	require.NoError(t, err)
	assert.Equal(t, "123", s)

	var n []int
	assert.True(t, errors.Is(resp.DecodeResult(&n), ErrBadResponse))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrNetwork))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 503}))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 429}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 400}))
	assert.True(t, IsRetryable(&ProviderError{Kind: KindGeneral}))
	assert.True(t, IsRetryable(&ProviderError{Kind: KindRateLimit}))
	assert.False(t, IsRetryable(&ProviderError{Kind: KindInvalidAPIKey}))
	assert.False(t, IsRetryable(ErrBadResponse))
	assert.False(t, IsRetryable(ErrNotInitialized))
}
