package codec

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cdcflow/apierr"
)

// Sign returns the hex encoded HMAC-SHA256 of payload keyed by secret.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonicalize flattens params into the deterministic string used for
// signing. Object keys are visited in sorted order, each key followed by its
// value; arrays are concatenated element by element; numbers keep their JSON
// decimal text; null becomes "null" and booleans "true"/"false".
// A nil params value yields the empty string.
func Canonicalize(params any) (string, error) {
	if params == nil {
		return "", nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", apierr.Decode(err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", apierr.Decode(err)
	}
	if v == nil {
		return "", nil
	}
	var sb strings.Builder
	if err := flatten(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func flatten(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case json.Number:
		sb.WriteString(val.String())
	case string:
		sb.WriteString(val)
	case []any:
		for _, item := range val {
			if err := flatten(sb, item); err != nil {
				return err
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(k)
			if err := flatten(sb, val[k]); err != nil {
				return err
			}
		}
	default:
		return apierr.Decode(fmt.Errorf("unexpected params value of type %T", v))
	}
	return nil
}
