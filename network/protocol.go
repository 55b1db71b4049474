// network/protocol.go
package network

import (
	"encoding/json"

	"github.com/wdlord/discord-pokebot/models"
)

// 消息ID。请求和应答使用同一个ID
const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2
	MsgTypeIdentify  = 3

	MsgTypeRoll        = 101
	MsgTypeCatch       = 102
	MsgTypeEvolve      = 103
	MsgTypePokedex     = 104
	MsgTypeChatMessage = 105

	MsgTypeSetFavorite = 201
	MsgTypeGetFavorite = 202
	MsgTypeSetParty    = 203
	MsgTypeGetParty    = 204

	MsgTypeProposeTrade = 301
	MsgTypeAcceptTrade  = 302
	MsgTypeDeclineTrade = 303

	// server push
	MsgTypeTradeOffer       = 401
	MsgTypeTradeResolved    = 402
	MsgTypeEncounterSpawned = 403
)

type IdentifyRequest struct {
	UserID models.PlayerID `json:"user_id"`
}

// PokedexRequest UserID selects another player's pokedex; zero means the caller.
type PokedexRequest struct {
	UserID models.PlayerID `json:"user_id,omitempty"`
}

// GetPartyRequest UserID selects another player's party; zero means the caller.
type GetPartyRequest struct {
	UserID models.PlayerID `json:"user_id,omitempty"`
}

type CatchRequest struct {
	EncounterID string `json:"encounter_id"`
}

type EvolveRequest struct {
	Species string `json:"species"`
	Shiny   *bool  `json:"shiny,omitempty"`
	Target  string `json:"target,omitempty"`
}

type SetFavoriteRequest struct {
	Species string `json:"species"`
	Shiny   *bool  `json:"shiny,omitempty"`
}

// SetPartyRequest entries use the text form, "#name" for shiny.
type SetPartyRequest struct {
	Entries []string `json:"entries"`
}

type ProposeTradeRequest struct {
	Target models.PlayerID `json:"target"`
	Give   models.Variant  `json:"give"`
	Want   models.Variant  `json:"want"`
}

type ResolveTradeRequest struct {
	TradeID string `json:"trade_id"`
}

type ChatMessageRequest struct {
	Text string `json:"text"`
}

type ChatMessageResponse struct {
	BerryDropped bool   `json:"berry_dropped"`
	EncounterID  string `json:"encounter_id,omitempty"`
}

type ErrorResponse struct {
	RequestID uint16 `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type FavoriteResponse struct {
	Favorite *models.Variant `json:"favorite"`
}

type PartyResponse struct {
	UserID models.PlayerID  `json:"user_id"`
	Party  []models.Variant `json:"party"`
}

// SetPartyResponse Saved is false when any entry failed screening; the stored party is unchanged then.
type SetPartyResponse struct {
	Saved   bool              `json:"saved"`
	Entries []PartyEntryReply `json:"entries"`
	Party   []models.Variant  `json:"party"`
}

type PartyEntryReply struct {
	Variant models.Variant `json:"variant"`
	OK      bool           `json:"ok"`
	Reason  string         `json:"reason,omitempty"`
}

type CatchResponse struct {
	EncounterID string         `json:"encounter_id"`
	Variant     models.Variant `json:"variant"`
}

// Encode marshals a message body.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals a message body. An empty body leaves v untouched.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
