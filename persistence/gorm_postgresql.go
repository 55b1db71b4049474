// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wdlord/discord-pokebot/models"
)

var _ Store = (*GormPostgreSQL)(nil)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	gormTx
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname, sslmode string) (*GormPostgreSQL, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
	return OpenGorm(postgres.Open(dsn))
}

// OpenGorm opens a store over any gorm dialector.
func OpenGorm(dialector gorm.Dialector) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{gormTx: gormTx{db: db, now: time.Now}}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormPlayer{},
		&models.GormCreature{},
	)
}

// Transaction 事务
func (p *GormPostgreSQL) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, now: p.now})
	})
}

// ResetAllRolls 重置所有玩家的抽取次数
func (p *GormPostgreSQL) ResetAllRolls(ctx context.Context, maxRolls uint64) (int64, error) {
	res := p.db.WithContext(ctx).Model(&models.GormPlayer{}).
		Where("1 = 1").
		Update("remaining_rolls", int64(maxRolls))
	return res.RowsAffected, res.Error
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db  *gorm.DB
	now func() time.Time
}

func (t *gormTx) ensurePlayer(ctx context.Context, id models.PlayerID) error {
	now := t.now()
	player := models.GormPlayer{UserID: int64(id), Party: "[]", CreatedAt: now, UpdatedAt: now}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(&player).Error
}

func (t *gormTx) players(ctx context.Context, id models.PlayerID) *gorm.DB {
	return t.db.WithContext(ctx).Model(&models.GormPlayer{}).Where("user_id = ?", int64(id))
}

// AddVariant 增加精灵数量（原子操作）
func (t *gormTx) AddVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) error {
	if n > models.MaxCount {
		return ErrCountOverflow
	}
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	row := models.GormCreature{UserID: int64(id), Species: v.Species}
	if v.Shiny {
		row.Shiny = int64(n)
	} else {
		row.Normal = int64(n)
	}
	limit := int64(models.MaxCount)
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "species"}},
		DoUpdates: clause.Assignments(map[string]any{
			"normal": gorm.Expr("creatures.normal + excluded.normal"),
			"shiny":  gorm.Expr("creatures.shiny + excluded.shiny"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("creatures.normal <= ? - excluded.normal AND creatures.shiny <= ? - excluded.shiny", limit, limit),
		}},
	}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCountOverflow
	}
	return nil
}

// DecrementVariant 减少精灵数量，数量不足时不做修改
func (t *gormTx) DecrementVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) (uint64, error) {
	col := countColumn(v.Shiny)
	var row models.GormCreature
	res := t.db.WithContext(ctx).Model(&row).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: col}}}).
		Where("user_id = ? AND species = ? AND "+col+" >= ?", int64(id), v.Species, int64(n)).
		Update(col, gorm.Expr(col+" - ?", int64(n)))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientStock
	}
	if v.Shiny {
		return uint64(row.Shiny), nil
	}
	return uint64(row.Normal), nil
}

func (t *gormTx) VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error) {
	var row models.GormCreature
	err := t.db.WithContext(ctx).Where("user_id = ? AND species = ?", int64(id), species).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.VariantCount{}, nil
	}
	if err != nil {
		return models.VariantCount{}, err
	}
	return models.VariantCount{Normal: uint64(row.Normal), Shiny: uint64(row.Shiny)}, nil
}

// LoadPlayer 加载玩家数据
func (t *gormTx) LoadPlayer(ctx context.Context, id models.PlayerID) (*models.PlayerRecord, error) {
	var player models.GormPlayer
	if err := t.db.WithContext(ctx).Where("user_id = ?", int64(id)).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var creatures []models.GormCreature
	if err := t.db.WithContext(ctx).Where("user_id = ?", int64(id)).Find(&creatures).Error; err != nil {
		return nil, err
	}

	rec := &models.PlayerRecord{
		PlayerID:  id,
		Ownership: make(models.OwnershipMap, len(creatures)),
		Berries:   uint64(player.Berries),
		CreatedAt: player.CreatedAt,
		UpdatedAt: player.UpdatedAt,
	}
	if player.RemainingRolls != nil {
		rolls := uint64(*player.RemainingRolls)
		rec.RemainingRolls = &rolls
	}
	if player.FavoriteSpecies != nil {
		rec.Favorite = &models.Variant{Species: *player.FavoriteSpecies, Shiny: player.FavoriteShiny}
	}
	if err := json.Unmarshal([]byte(player.Party), &rec.BattleParty); err != nil {
		return nil, fmt.Errorf("decode party: %w", err)
	}
	for _, c := range creatures {
		rec.Ownership[c.Species] = models.VariantCount{Normal: uint64(c.Normal), Shiny: uint64(c.Shiny)}
	}
	return rec, nil
}

func (t *gormTx) UseRoll(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	m := int64(maxRolls)
	return t.players(ctx, id).Update("remaining_rolls", gorm.Expr(
		"CASE WHEN COALESCE(remaining_rolls, ?) > 0 THEN COALESCE(remaining_rolls, ?) - 1 ELSE 0 END", m, m,
	)).Error
}

func (t *gormTx) InitRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) (uint64, error) {
	var player models.GormPlayer
	res := t.db.WithContext(ctx).Model(&player).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "remaining_rolls"}}}).
		Where("user_id = ?", int64(id)).
		Update("remaining_rolls", gorm.Expr("COALESCE(remaining_rolls, ?)", int64(maxRolls)))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 || player.RemainingRolls == nil {
		return 0, ErrRecordNotFound
	}
	return uint64(*player.RemainingRolls), nil
}

func (t *gormTx) ResetRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	return t.players(ctx, id).Update("remaining_rolls", int64(maxRolls)).Error
}

// AddBerries 更新树果数量（原子操作）
func (t *gormTx) AddBerries(ctx context.Context, id models.PlayerID, delta int64) (uint64, error) {
	var player models.GormPlayer
	q := t.db.WithContext(ctx).Model(&player).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "berries"}}})
	if delta >= 0 {
		if err := t.ensurePlayer(ctx, id); err != nil {
			return 0, err
		}
		q = q.Where("user_id = ?", int64(id))
	} else {
		// 检查树果是否足够
		q = q.Where("user_id = ? AND berries >= ?", int64(id), -delta)
	}
	res := q.Update("berries", gorm.Expr("berries + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientStock
	}
	return uint64(player.Berries), nil
}

func (t *gormTx) SetFavorite(ctx context.Context, id models.PlayerID, v *models.Variant) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	updates := map[string]any{"favorite_species": nil, "favorite_shiny": false}
	if v != nil {
		updates["favorite_species"] = v.Species
		updates["favorite_shiny"] = v.Shiny
	}
	return t.players(ctx, id).Updates(updates).Error
}

func (t *gormTx) SetParty(ctx context.Context, id models.PlayerID, party []models.Variant) error {
	if party == nil {
		party = []models.Variant{}
	}
	data, err := json.Marshal(party)
	if err != nil {
		return err
	}
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	return t.players(ctx, id).Update("party", string(data)).Error
}
