package codec

import (
	"strconv"
	"time"

	"cdcflow/apierr"
)

// Request is one outbound command as it appears on the wire.
type Request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	APIKey string `json:"api_key,omitempty"`
	Sig    string `json:"sig,omitempty"`
	Nonce  uint64 `json:"nonce,omitempty"`
}

// RequestBuilder assembles a Request. Errors are deferred to Build.
type RequestBuilder struct {
	req    Request
	secret string
	sign   bool
}

func NewRequest() *RequestBuilder {
	return &RequestBuilder{}
}

func (b *RequestBuilder) WithID(id uint64) *RequestBuilder {
	b.req.ID = id
	return b
}

func (b *RequestBuilder) WithMethod(method string) *RequestBuilder {
	b.req.Method = method
	return b
}

func (b *RequestBuilder) WithParams(params any) *RequestBuilder {
	b.req.Params = params
	return b
}

// WithNonce stamps the request with the current epoch milliseconds.
func (b *RequestBuilder) WithNonce() *RequestBuilder {
	b.req.Nonce = NonceMillis()
	return b
}

func (b *RequestBuilder) WithNonceValue(nonce uint64) *RequestBuilder {
	b.req.Nonce = nonce
	return b
}

func (b *RequestBuilder) WithAPIKey(key string) *RequestBuilder {
	b.req.APIKey = key
	return b
}

// WithDigitalSignature requests a sig field computed at Build time from the
// final method, id, api key, params and nonce.
func (b *RequestBuilder) WithDigitalSignature(secret string) *RequestBuilder {
	b.secret = secret
	b.sign = true
	return b
}

func (b *RequestBuilder) Build() (Request, error) {
	if b.req.Method == "" {
		return Request{}, apierr.InvalidRequest("method")
	}
	if !b.sign {
		return b.req, nil
	}
	if b.req.APIKey == "" {
		return Request{}, apierr.InvalidRequest("api_key")
	}
	if b.secret == "" {
		return Request{}, apierr.InvalidRequest("secret_key")
	}
	if b.req.Nonce == 0 {
		b.req.Nonce = NonceMillis()
	}
	params, err := Canonicalize(b.req.Params)
	if err != nil {
		return Request{}, err
	}
	b.req.Sig = Sign(b.secret, SigPayload(b.req.Method, b.req.ID, b.req.APIKey, params, b.req.Nonce))
	return b.req, nil
}

// SigPayload is the string the venue expects to be signed:
// method + id + api_key + canonical params + nonce.
func SigPayload(method string, id uint64, apiKey, params string, nonce uint64) string {
	return method + strconv.FormatUint(id, 10) + apiKey + params + strconv.FormatUint(nonce, 10)
}

// NonceMillis returns the current time in milliseconds since the Unix epoch.
func NonceMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
