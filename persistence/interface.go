// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wdlord/discord-pokebot/models"
)

// Tx 单个玩家记录上的原子操作。所有数量变更都是存储层的 "增量" 更新，
// 不是读-改-写。
type Tx interface {
	// AddVariant increments the variant's count by n, creating the player if needed.
	AddVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) error
	// DecrementVariant subtracts n and returns the new count, or
	// ErrInsufficientStock when the count is below n.
	DecrementVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) (uint64, error)
	VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error)
	// LoadPlayer returns ErrRecordNotFound for unknown players.
	LoadPlayer(ctx context.Context, id models.PlayerID) (*models.PlayerRecord, error)

	// UseRoll decrements remaining rolls, clamped at 0.
	UseRoll(ctx context.Context, id models.PlayerID, maxRolls uint64) error
	// InitRolls returns the remaining rolls, first setting them to maxRolls
	// when the record has never had the field. ErrRecordNotFound for unknown players.
	InitRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) (uint64, error)
	ResetRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) error

	// AddBerries applies delta and returns the new balance. A negative delta that
	// would go below zero fails with ErrInsufficientStock.
	AddBerries(ctx context.Context, id models.PlayerID, delta int64) (uint64, error)

	SetFavorite(ctx context.Context, id models.PlayerID, v *models.Variant) error
	SetParty(ctx context.Context, id models.PlayerID, party []models.Variant) error
}

// Store 数据库接口
type Store interface {
	Tx
	// ResetAllRolls sets every record's rolls to maxRolls and returns how many were touched.
	ResetAllRolls(ctx context.Context, maxRolls uint64) (int64, error)
	// Transaction runs fn against a single backend transaction; any error rolls back.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCountOverflow     = errors.New("variant count overflow")
)
