package actions

import (
	"github.com/shopspring/decimal"

	"cdcflow/apierr"
	"cdcflow/codec"
)

// CreateWithdrawal withdraws to a whitelisted address.
type CreateWithdrawal struct {
	ClientWID  string          `json:"client_wid,omitempty"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Address    string          `json:"address"`
	AddressTag string          `json:"address_tag,omitempty"`
	NetworkID  string          `json:"network_id,omitempty"`
}

func (CreateWithdrawal) Method() string { return MethodCreateWithdrawal }

func (w CreateWithdrawal) Process(out codec.FrameSink, id uint64) error {
	switch {
	case w.Currency == "":
		return apierr.InvalidRequest("currency")
	case w.Address == "":
		return apierr.InvalidRequest("address")
	case !w.Amount.IsPositive():
		return apierr.InvalidRequest("amount")
	}
	return send(out, id, MethodCreateWithdrawal, w)
}

type GetWithdrawalHistory struct {
	Currency string  `json:"currency,omitempty"`
	StartTS  *uint64 `json:"start_ts,omitempty"`
	EndTS    *uint64 `json:"end_ts,omitempty"`
	PageSize *uint64 `json:"page_size,omitempty"`
	Page     *uint64 `json:"page,omitempty"`
	Status   string  `json:"status,omitempty"`
}

func (GetWithdrawalHistory) Method() string { return MethodGetWithdrawalHistory }

func (h GetWithdrawalHistory) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetWithdrawalHistory, h)
}

type GetDepositAddress struct {
	Currency string `json:"currency"`
}

func (GetDepositAddress) Method() string { return MethodGetDepositAddress }

func (d GetDepositAddress) Process(out codec.FrameSink, id uint64) error {
	if d.Currency == "" {
		return apierr.InvalidRequest("currency")
	}
	return send(out, id, MethodGetDepositAddress, d)
}

func (CreateWithdrawal) privateMethod()     {}
func (GetWithdrawalHistory) privateMethod() {}
func (GetDepositAddress) privateMethod()    {}
