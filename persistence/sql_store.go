// persistence/sql_store.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL 驱动
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/wdlord/discord-pokebot/models"
)

var _ Store = (*SQLStore)(nil)

// Driver names accepted by NewSQLStore.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore 基于 database/sql 的实现，支持 PostgreSQL (lib/pq) 和 SQLite (modernc)。
// Both dialects accept the same statements: $N placeholders, ON CONFLICT upserts and RETURNING.
type SQLStore struct {
	sqlTx
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname, sslmode string) (*SQLStore, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
	return NewSQLStore(DriverPostgres, connStr)
}

// NewSQLite opens (or creates) a SQLite database file.
func NewSQLite(path string) (*SQLStore, error) {
	if path == "" {
		path = "pokebot.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	return NewSQLStore(DriverSQLite, dsn)
}

// NewSQLStore opens the database, checks the connection and creates the tables.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	// 设置连接池参数
	if driver == DriverSQLite {
		// sqlite allows a single writer; one connection keeps transactions serialized.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := initTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLStore{sqlTx: sqlTx{q: db, now: time.Now}, db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
            user_id BIGINT PRIMARY KEY,
            berries BIGINT NOT NULL DEFAULT 0 CHECK (berries >= 0),
            remaining_rolls BIGINT,
            favorite_species TEXT,
            favorite_shiny BOOLEAN NOT NULL DEFAULT FALSE,
            party TEXT NOT NULL DEFAULT '[]',
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS creatures (
            user_id BIGINT NOT NULL REFERENCES players(user_id),
            species TEXT NOT NULL,
            normal BIGINT NOT NULL DEFAULT 0 CHECK (normal >= 0),
            shiny BIGINT NOT NULL DEFAULT 0 CHECK (shiny >= 0),
            PRIMARY KEY (user_id, species)
        )`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// Transaction 事务
func (s *SQLStore) Transaction(ctx context.Context, fn func(tx Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{q: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResetAllRolls 重置所有玩家的抽取次数
func (s *SQLStore) ResetAllRolls(ctx context.Context, maxRolls uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET remaining_rolls = $1, updated_at = $2`, int64(maxRolls), s.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlTx struct {
	q   querier
	now func() time.Time
}

// countColumn maps a variant kind to its column. Never built from user input.
func countColumn(shiny bool) string {
	if shiny {
		return "shiny"
	}
	return "normal"
}

func (t *sqlTx) ensurePlayer(ctx context.Context, id models.PlayerID) error {
	now := t.now().UTC()
	_, err := t.q.ExecContext(ctx, `
        INSERT INTO players (user_id, created_at, updated_at)
        VALUES ($1, $2, $2)
        ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at
    `, int64(id), now)
	return err
}

func (t *sqlTx) AddVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) error {
	if n > models.MaxCount {
		return ErrCountOverflow
	}
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	var normal, shiny int64
	if v.Shiny {
		shiny = int64(n)
	} else {
		normal = int64(n)
	}
	// 超出上限时冲突分支不更新任何行
	res, err := t.q.ExecContext(ctx, `
        INSERT INTO creatures (user_id, species, normal, shiny)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, species) DO UPDATE SET
            normal = creatures.normal + excluded.normal,
            shiny = creatures.shiny + excluded.shiny
        WHERE creatures.normal <= $5 - excluded.normal
          AND creatures.shiny <= $5 - excluded.shiny
    `, int64(id), v.Species, normal, shiny, int64(models.MaxCount))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCountOverflow
	}
	return nil
}

func (t *sqlTx) DecrementVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) (uint64, error) {
	col := countColumn(v.Shiny)
	query := fmt.Sprintf(`
        UPDATE creatures SET %[1]s = %[1]s - $1
        WHERE user_id = $2 AND species = $3 AND %[1]s >= $1
        RETURNING %[1]s
    `, col)

	var remaining int64
	err := t.q.QueryRowContext(ctx, query, int64(n), int64(id), v.Species).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return uint64(remaining), nil
}

func (t *sqlTx) VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error) {
	var normal, shiny int64
	err := t.q.QueryRowContext(ctx,
		`SELECT normal, shiny FROM creatures WHERE user_id = $1 AND species = $2`,
		int64(id), species).Scan(&normal, &shiny)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VariantCount{}, nil
	}
	if err != nil {
		return models.VariantCount{}, err
	}
	return models.VariantCount{Normal: uint64(normal), Shiny: uint64(shiny)}, nil
}

func (t *sqlTx) LoadPlayer(ctx context.Context, id models.PlayerID) (*models.PlayerRecord, error) {
	var (
		berries   int64
		rolls     sql.NullInt64
		favName   sql.NullString
		favShiny  bool
		partyJSON string
		rec       = &models.PlayerRecord{PlayerID: id, Ownership: make(models.OwnershipMap)}
	)
	err := t.q.QueryRowContext(ctx, `
        SELECT berries, remaining_rolls, favorite_species, favorite_shiny, party, created_at, updated_at
        FROM players WHERE user_id = $1
    `, int64(id)).Scan(&berries, &rolls, &favName, &favShiny, &partyJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Berries = uint64(berries)
	if rolls.Valid {
		r := uint64(rolls.Int64)
		rec.RemainingRolls = &r
	}
	if favName.Valid {
		rec.Favorite = &models.Variant{Species: favName.String, Shiny: favShiny}
	}
	if err := json.Unmarshal([]byte(partyJSON), &rec.BattleParty); err != nil {
		return nil, fmt.Errorf("decode party: %w", err)
	}

	rows, err := t.q.QueryContext(ctx,
		`SELECT species, normal, shiny FROM creatures WHERE user_id = $1`, int64(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var species string
		var normal, shiny int64
		if err := rows.Scan(&species, &normal, &shiny); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec.Ownership[species] = models.VariantCount{Normal: uint64(normal), Shiny: uint64(shiny)}
	}
	return rec, rows.Err()
}

func (t *sqlTx) UseRoll(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	_, err := t.q.ExecContext(ctx, `
        UPDATE players SET remaining_rolls = CASE
            WHEN COALESCE(remaining_rolls, $1) > 0 THEN COALESCE(remaining_rolls, $1) - 1
            ELSE 0 END
        WHERE user_id = $2
    `, int64(maxRolls), int64(id))
	return err
}

func (t *sqlTx) InitRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) (uint64, error) {
	var rolls int64
	err := t.q.QueryRowContext(ctx, `
        UPDATE players SET remaining_rolls = COALESCE(remaining_rolls, $1)
        WHERE user_id = $2
        RETURNING remaining_rolls
    `, int64(maxRolls), int64(id)).Scan(&rolls)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRecordNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint64(rolls), nil
}

func (t *sqlTx) ResetRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	_, err := t.q.ExecContext(ctx,
		`UPDATE players SET remaining_rolls = $1 WHERE user_id = $2`, int64(maxRolls), int64(id))
	return err
}

func (t *sqlTx) AddBerries(ctx context.Context, id models.PlayerID, delta int64) (uint64, error) {
	var (
		balance int64
		err     error
	)
	if delta >= 0 {
		if err := t.ensurePlayer(ctx, id); err != nil {
			return 0, err
		}
		err = t.q.QueryRowContext(ctx,
			`UPDATE players SET berries = berries + $1 WHERE user_id = $2 RETURNING berries`,
			delta, int64(id)).Scan(&balance)
	} else {
		err = t.q.QueryRowContext(ctx,
			`UPDATE players SET berries = berries - $1 WHERE user_id = $2 AND berries >= $1 RETURNING berries`,
			-delta, int64(id)).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientStock
		}
	}
	if err != nil {
		return 0, err
	}
	return uint64(balance), nil
}

func (t *sqlTx) SetFavorite(ctx context.Context, id models.PlayerID, v *models.Variant) error {
	if err := t.ensurePlayer(ctx, id); err != nil {
		return err
	}
	var (
		name  any
		shiny bool
	)
	if v != nil {
		name, shiny = v.Species, v.Shiny
	}
	_, err := t.q.ExecContext(ctx,
		`UPDATE players SET favorite_species = $1, favorite_shiny = $2 WHERE user_id = $3`,
		name, shiny, int64(id))
	return err
}

func (t *sqlTx) SetParty(ctx context.Context, id models.PlayerID, party []models.Variant) error {
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
	_, err = t.q.ExecContext(ctx,
		`UPDATE players SET party = $1 WHERE user_id = $2`, string(data), int64(id))
	return err
}
