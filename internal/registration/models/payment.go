package models

import "fmt"

// PaymentMode is how a registration was paid.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeWave         PaymentMode = "wave"
	PaymentModeOrangeMoney  PaymentMode = "orange_money"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeCheque       PaymentMode = "cheque"
)

// PaymentModes lists every mode in display order.
var PaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCard,
	PaymentModeWave,
	PaymentModeOrangeMoney,
	PaymentModeBankTransfer,
	PaymentModeCheque,
}

// SettlementChannel is the back-office routing bucket of a payment.
type SettlementChannel string

const (
	ChannelExternal SettlementChannel = "external"
	ChannelGateway  SettlementChannel = "gateway"
)

// SettlementChannels lists every channel in display order.
var SettlementChannels = []SettlementChannel{ChannelExternal, ChannelGateway}

// IsValid reports whether m belongs to the closed payment mode set.
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeWave,
		PaymentModeOrangeMoney, PaymentModeBankTransfer, PaymentModeCheque:
		return true
	}
	return false
}

// ParsePaymentMode validates a raw payment mode string.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	m := PaymentMode(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment mode %q", raw)
	}
	return m, nil
}

// ChannelFor derives the settlement channel from a payment mode. Money handled
// at the counter or by bank goes through the external channel; card and
// mobile money settle through the payment gateway.
func ChannelFor(mode PaymentMode) SettlementChannel {
	switch mode {
	case PaymentModeCash, PaymentModeBankTransfer, PaymentModeCheque:
		return ChannelExternal
	case PaymentModeCard, PaymentModeWave, PaymentModeOrangeMoney:
		return ChannelGateway
	}
	panic(fmt.Sprintf("models: no settlement channel for payment mode %q", mode))
}
