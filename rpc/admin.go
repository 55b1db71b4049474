// rpc/admin.go
package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wdlord/discord-pokebot/models"
)

const ServiceName = "pokeroll.Admin"

type GiveVariantRequest struct {
	UserID  models.PlayerID `json:"user_id"`
	Species string          `json:"species"`
	Shiny   bool            `json:"shiny"`
	Amount  uint64          `json:"amount"`
}

// GiveBerriesRequest Amount may be negative to take berries away.
type GiveBerriesRequest struct {
	UserID models.PlayerID `json:"user_id"`
	Amount int64           `json:"amount"`
}

type PlayerRequest struct {
	UserID models.PlayerID `json:"user_id"`
}

type ResetAllRollsRequest struct{}

type ResetAllRollsReply struct {
	Players int64 `json:"players"`
}

type PlayerReply struct {
	Pokedex *models.Pokedex  `json:"pokedex"`
	Party   []models.Variant `json:"party"`
}

// AdminServer 管理/测试接口
type AdminServer interface {
	GiveVariant(ctx context.Context, req *GiveVariantRequest) (*PlayerReply, error)
	GiveBerries(ctx context.Context, req *GiveBerriesRequest) (*PlayerReply, error)
	ResetRolls(ctx context.Context, req *PlayerRequest) (*PlayerReply, error)
	ResetAllRolls(ctx context.Context, req *ResetAllRollsRequest) (*ResetAllRollsReply, error)
	GetPlayer(ctx context.Context, req *PlayerRequest) (*PlayerReply, error)
}

func unary[Req, Resp any](name string, call func(AdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AdminServiceDesc describes pokeroll.Admin for grpc.Server.RegisterService.
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GiveVariant", AdminServer.GiveVariant),
		unary("GiveBerries", AdminServer.GiveBerries),
		unary("ResetRolls", AdminServer.ResetRolls),
		unary("ResetAllRolls", AdminServer.ResetAllRolls),
		unary("GetPlayer", AdminServer.GetPlayer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pokeroll/admin",
}

// AdminClient calls pokeroll.Admin over a JSON-codec connection.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) GiveVariant(ctx context.Context, in *GiveVariantRequest, opts ...grpc.CallOption) (*PlayerReply, error) {
	return invoke[PlayerReply](ctx, c.cc, "GiveVariant", in, opts...)
}

func (c *AdminClient) GiveBerries(ctx context.Context, in *GiveBerriesRequest, opts ...grpc.CallOption) (*PlayerReply, error) {
	return invoke[PlayerReply](ctx, c.cc, "GiveBerries", in, opts...)
}

func (c *AdminClient) ResetRolls(ctx context.Context, in *PlayerRequest, opts ...grpc.CallOption) (*PlayerReply, error) {
	return invoke[PlayerReply](ctx, c.cc, "ResetRolls", in, opts...)
}

func (c *AdminClient) ResetAllRolls(ctx context.Context, in *ResetAllRollsRequest, opts ...grpc.CallOption) (*ResetAllRollsReply, error) {
	return invoke[ResetAllRollsReply](ctx, c.cc, "ResetAllRolls", in, opts...)
}

func (c *AdminClient) GetPlayer(ctx context.Context, in *PlayerRequest, opts ...grpc.CallOption) (*PlayerReply, error) {
	return invoke[PlayerReply](ctx, c.cc, "GetPlayer", in, opts...)
}
