// models/trade.go
package models

import "time"

// TradeState 交易状态
type TradeState int

const (
	TradePending TradeState = iota
	TradeAccepted
	TradeDeclined
)

func (s TradeState) String() string {
	switch s {
	case TradePending:
		return "pending"
	case TradeAccepted:
		return "accepted"
	case TradeDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// PendingTrade is an in-flight offer. It lives only in process memory.
type PendingTrade struct {
	ID            string     `json:"trade_id"`
	Proposer      PlayerID   `json:"proposer"`
	Target        PlayerID   `json:"target"`
	ProposerOffer Variant    `json:"proposer_offer"`
	TargetOffer   Variant    `json:"target_offer"`
	State         TradeState `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
}
