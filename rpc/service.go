// rpc/service.go
package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/services"
	"github.com/wdlord/discord-pokebot/species"
)

var _ AdminServer = (*AdminService)(nil)

// AdminService exposes ledger maintenance commands.
type AdminService struct {
	ledger *services.Ledger
	roster *services.Roster
	dir    species.Directory
}

func NewAdminService(ledger *services.Ledger, roster *services.Roster, dir species.Directory) *AdminService {
	return &AdminService{ledger: ledger, roster: roster, dir: dir}
}

func (a *AdminService) GiveVariant(ctx context.Context, req *GiveVariantRequest) (*PlayerReply, error) {
	if req.UserID == 0 {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if req.Amount == 0 {
		return nil, status.Error(codes.InvalidArgument, "amount must be positive")
	}
	if req.Amount > models.MaxCount {
		return nil, status.Errorf(codes.InvalidArgument, "amount must not exceed %d", models.MaxCount)
	}
	v := models.NewVariant(req.Species, req.Shiny)
	if !a.dir.Contains(v.Species) {
		return nil, toStatus(services.ErrUnknownSpecies)
	}
	if err := a.ledger.AddVariant(ctx, req.UserID, v, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	logger.Log.Infow("admin gave variant", "user_id", req.UserID, "variant", v.String(), "amount", req.Amount)
	return a.player(ctx, req.UserID)
}

func (a *AdminService) GiveBerries(ctx context.Context, req *GiveBerriesRequest) (*PlayerReply, error) {
	if req.UserID == 0 {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if _, err := a.ledger.GiveBerries(ctx, req.UserID, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	logger.Log.Infow("admin gave berries", "user_id", req.UserID, "amount", req.Amount)
	return a.player(ctx, req.UserID)
}

func (a *AdminService) ResetRolls(ctx context.Context, req *PlayerRequest) (*PlayerReply, error) {
	if err := a.ledger.ResetRolls(ctx, req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return a.player(ctx, req.UserID)
}

func (a *AdminService) ResetAllRolls(ctx context.Context, _ *ResetAllRollsRequest) (*ResetAllRollsReply, error) {
	n, err := a.ledger.ResetAllRolls(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ResetAllRollsReply{Players: n}, nil
}

// GetPlayer NotFound for players without a record.
func (a *AdminService) GetPlayer(ctx context.Context, req *PlayerRequest) (*PlayerReply, error) {
	_, exists, err := a.ledger.AllOwnership(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	if !exists {
		return nil, status.Errorf(codes.NotFound, "player %d not found", req.UserID)
	}
	return a.player(ctx, req.UserID)
}

func (a *AdminService) player(ctx context.Context, id models.PlayerID) (*PlayerReply, error) {
	dex, err := a.ledger.Pokedex(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	party, _, err := a.roster.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PlayerReply{Pokedex: dex, Party: party}, nil
}

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{services.ErrPartialApply, codes.DataLoss},
	{services.ErrUnauthorizedResolver, codes.PermissionDenied},
	{services.ErrStaleOffer, codes.Aborted},
	{services.ErrTradeNotFound, codes.NotFound},
	{persistence.ErrRecordNotFound, codes.NotFound},
	{services.ErrUnknownSpecies, codes.InvalidArgument},
	{services.ErrSelfTrade, codes.InvalidArgument},
	{services.ErrPartyTooLarge, codes.InvalidArgument},
	{services.ErrInsufficientStock, codes.FailedPrecondition},
	{services.ErrNotOwned, codes.FailedPrecondition},
	{services.ErrNoBerries, codes.FailedPrecondition},
	{services.ErrNoRolls, codes.FailedPrecondition},
	{services.ErrCannotEvolve, codes.FailedPrecondition},
	{services.ErrAmbiguousVariant, codes.FailedPrecondition},
	{services.ErrAmbiguousTarget, codes.FailedPrecondition},
	{services.ErrTradeResolved, codes.FailedPrecondition},
	{services.ErrCountOverflow, codes.FailedPrecondition},
}

// toStatus 将业务错误映射为gRPC状态码
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, c := range statusCodes {
		if errors.Is(err, c.err) {
			return status.Error(c.code, err.Error())
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}
