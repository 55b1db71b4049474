// server/handlers.go
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/wdlord/discord-pokebot/encounter"
	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/network"
	"github.com/wdlord/discord-pokebot/services"
	"github.com/wdlord/discord-pokebot/session"
)

var (
	errUnknownMessage = errors.New("unknown message type")
	errNotIdentified  = errors.New("session is not identified")
	errBadRequest     = errors.New("malformed request body")
)

type handlerFunc func(ctx context.Context, sess *session.Session, data []byte) (any, error)

// playerHandler 需要先 Identify 的消息
type playerHandler func(ctx context.Context, sess *session.Session, player models.PlayerID, data []byte) (any, error)

func (s *GameServer) routes() map[uint16]handlerFunc {
	return map[uint16]handlerFunc{
		network.MsgTypeHeartbeat: s.handleHeartbeat,
		network.MsgTypeIdentify:  s.handleIdentify,

		network.MsgTypeRoll:        identified(s.handleRoll),
		network.MsgTypeCatch:       identified(s.handleCatch),
		network.MsgTypeEvolve:      identified(s.handleEvolve),
		network.MsgTypePokedex:     identified(s.handlePokedex),
		network.MsgTypeChatMessage: identified(s.handleChatMessage),

		network.MsgTypeSetFavorite: identified(s.handleSetFavorite),
		network.MsgTypeGetFavorite: identified(s.handleGetFavorite),
		network.MsgTypeSetParty:    identified(s.handleSetParty),
		network.MsgTypeGetParty:    identified(s.handleGetParty),

		network.MsgTypeProposeTrade: identified(s.handleProposeTrade),
		network.MsgTypeAcceptTrade:  identified(s.handleAcceptTrade),
		network.MsgTypeDeclineTrade: identified(s.handleDeclineTrade),
	}
}

func identified(h playerHandler) handlerFunc {
	return func(ctx context.Context, sess *session.Session, data []byte) (any, error) {
		player, ok := sess.User()
		if !ok {
			return nil, errNotIdentified
		}
		return h(ctx, sess, player, data)
	}
}

func decode(data []byte, v any) error {
	if err := network.Decode(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var gatewayCodes = []struct {
	err  error
	code string
}{
	{errUnknownMessage, "unknown_message"},
	{errNotIdentified, "not_identified"},
	{errBadRequest, "bad_request"},
	{encounter.ErrEncounterNotFound, "encounter_not_found"},
	{encounter.ErrAlreadyClaimed, "already_claimed"},
}

func errorCode(err error) string {
	for _, c := range gatewayCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return services.ErrorCode(err)
}

func (s *GameServer) handleHeartbeat(_ context.Context, _ *session.Session, _ []byte) (any, error) {
	return struct{}{}, nil
}

func (s *GameServer) handleIdentify(_ context.Context, sess *session.Session, data []byte) (any, error) {
	var req network.IdentifyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", errBadRequest)
	}
	sess.Identify(req.UserID)
	logger.Log.Infow("session identified", "session_id", sess.GetID(), "user_id", req.UserID)
	return req, nil
}

func (s *GameServer) handleRoll(ctx context.Context, _ *session.Session, player models.PlayerID, _ []byte) (any, error) {
	return s.svc.Rolls.Roll(ctx, player, s.newRand())
}

func (s *GameServer) handleCatch(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.CatchRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	v, err := s.svc.Encounters.Claim(ctx, req.EncounterID, player)
	if err != nil {
		return nil, err
	}
	return network.CatchResponse{EncounterID: req.EncounterID, Variant: v}, nil
}

func (s *GameServer) handleEvolve(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.EvolveRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return s.svc.Evolution.Evolve(ctx, services.EvolveRequest{
		Player:  player,
		Species: req.Species,
		Shiny:   req.Shiny,
		Target:  req.Target,
	})
}

func (s *GameServer) handlePokedex(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.PokedexRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return s.svc.Ledger.Pokedex(ctx, viewed(req.UserID, player))
}

// viewed 未指定玩家时查看自己
func viewed(requested, caller models.PlayerID) models.PlayerID {
	if requested != 0 {
		return requested
	}
	return caller
}

// handleChatMessage 每条聊天消息都有机会掉落树果或刷出野生精灵
func (s *GameServer) handleChatMessage(ctx context.Context, _ *session.Session, player models.PlayerID, _ []byte) (any, error) {
	rng := s.newRand()
	dropped, err := s.svc.Encounters.MaybeDropBerry(ctx, player, rng)
	if err != nil {
		return nil, err
	}
	resp := network.ChatMessageResponse{BerryDropped: dropped}
	e, spawned, err := s.svc.Encounters.MaybeSpawn(rng)
	if err != nil {
		return nil, err
	}
	if spawned {
		resp.EncounterID = e.ID
	}
	return resp, nil
}

func (s *GameServer) handleSetFavorite(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.SetFavoriteRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	v, err := s.svc.Favorites.Choose(ctx, player, req.Species, req.Shiny)
	if err != nil {
		return nil, err
	}
	return network.FavoriteResponse{Favorite: &v}, nil
}

func (s *GameServer) handleGetFavorite(ctx context.Context, _ *session.Session, player models.PlayerID, _ []byte) (any, error) {
	v, err := s.svc.Favorites.Get(ctx, player)
	if err != nil {
		return nil, err
	}
	return network.FavoriteResponse{Favorite: v}, nil
}

// handleSetParty screens the text entries and saves only when every entry passed.
func (s *GameServer) handleSetParty(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.SetPartyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	report, err := services.ScreenParty(ctx, s.svc.Ledger, s.svc.Directory, player, req.Entries)
	if err != nil {
		return nil, err
	}

	resp := network.SetPartyResponse{Entries: make([]network.PartyEntryReply, 0, len(report.Entries))}
	for _, e := range report.Entries {
		resp.Entries = append(resp.Entries, network.PartyEntryReply{Variant: e.Variant, OK: e.OK, Reason: e.Reason})
	}
	if report.Valid() {
		resp.Party = report.Party()
		if err := s.svc.Roster.Set(ctx, player, resp.Party); err != nil {
			return nil, err
		}
		resp.Saved = true
		return resp, nil
	}

	resp.Party, _, err = s.svc.Roster.Get(ctx, player)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GameServer) handleGetParty(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.GetPartyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	target := viewed(req.UserID, player)
	party, _, err := s.svc.Roster.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	if party == nil {
		party = []models.Variant{}
	}
	return network.PartyResponse{UserID: target, Party: party}, nil
}

func (s *GameServer) handleProposeTrade(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.ProposeTradeRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	trade, err := s.svc.Trades.Propose(ctx, player, req.Target, req.Give, req.Want)
	if err != nil {
		return nil, err
	}
	s.push(network.MsgTypeTradeOffer, trade, trade.Target)
	return trade, nil
}

func (s *GameServer) handleAcceptTrade(ctx context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.ResolveTradeRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	trade, err := s.svc.Trades.Accept(ctx, req.TradeID, player)
	if err != nil {
		return nil, err
	}
	s.push(network.MsgTypeTradeResolved, trade, trade.Proposer)
	return trade, nil
}

func (s *GameServer) handleDeclineTrade(_ context.Context, _ *session.Session, player models.PlayerID, data []byte) (any, error) {
	var req network.ResolveTradeRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	trade, err := s.svc.Trades.Decline(req.TradeID, player)
	if err != nil {
		return nil, err
	}
	s.push(network.MsgTypeTradeResolved, trade, trade.Proposer)
	return trade, nil
}
