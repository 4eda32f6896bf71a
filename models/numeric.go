package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cdcflow/apierr"
)

// ID is an unsigned identifier the venue sends either as a JSON number or as
// a decimal string.
type ID uint64

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return apierr.NumericParse("id", err)
	}
	*id = ID(v)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(id), 10))), nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apierr.NumericParse(field, err)
	}
	return d, nil
}

func parseOptionalDecimal(field string, s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(field, *s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseUint(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apierr.NumericParse(field, err)
	}
	return v, nil
}

// decodeResult unmarshals a typed result. JSON shape errors are decode
// failures; errors raised by numeric unmarshalers are numeric failures.
func decodeResult(field string, data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var (
		e         *apierr.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &e):
		return err
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return apierr.Decode(err)
	default:
		return apierr.NumericParse(field, err)
	}
}
