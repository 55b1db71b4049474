// models/gorm_models.go
package models

import (
	"time"
)

// GormPlayer 玩家表
type GormPlayer struct {
	UserID          int64   `gorm:"primaryKey;autoIncrement:false"`
	Berries         int64   `gorm:"not null;default:0"`
	RemainingRolls  *int64  `gorm:"column:remaining_rolls"`
	FavoriteSpecies *string `gorm:"column:favorite_species"`
	FavoriteShiny   bool    `gorm:"not null;default:false"`
	Party           string  `gorm:"type:text;not null;default:'[]'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (GormPlayer) TableName() string { return "players" }

// GormCreature 玩家拥有的精灵数量，每个物种一行
type GormCreature struct {
	UserID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Species string `gorm:"primaryKey"`
	Normal  int64  `gorm:"not null;default:0"`
	Shiny   int64  `gorm:"not null;default:0"`
}

func (GormCreature) TableName() string { return "creatures" }
