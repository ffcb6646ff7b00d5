package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// User is one row of the bot's built-in chip economy. It only exists for
// servers that run the "chips" ledger backend instead of an external
// economy bot.
type User struct {
	UserID    int64
	Chips     int64
	CreatedAt time.Time
}

var (
	DB            *pgxpool.Pool
	dbInitialized bool
	dbMutex       sync.Mutex
)

// SetupDatabase initializes the database connection pool from DATABASE_URL.
// A missing DATABASE_URL is not an error; the bot can run against an
// external ledger backend without a database.
func SetupDatabase() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if dbInitialized {
		return nil
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil
	}

	ctx := context.Background()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Pool sizing for a bursty Discord-bot workload
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name":  "crash-discord-bot",
		"timezone":          "UTC",
		"statement_timeout": "30s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	DB = pool
	dbInitialized = true

	createUsersTable()

	return nil
}

// CloseDatabase closes the database connection pool
func CloseDatabase() {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if DB != nil {
		DB.Close()
		DB = nil
		dbInitialized = false
	}
}

func createUsersTable() {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			chips BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := DB.Exec(context.Background(), query); err != nil {
		log.WithError(err).Error("Failed to create users table")
	}
}

// ErrNoDatabase is returned by balance operations when DATABASE_URL was
// never configured.
var ErrNoDatabase = errors.New("database not configured")

// GetUser retrieves a user row, creating one with the starting balance if
// it doesn't exist.
func GetUser(ctx context.Context, userID int64) (*User, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}

	user := &User{}
	query := `SELECT user_id, chips, created_at FROM users WHERE user_id = $1`
	err := DB.QueryRow(ctx, query, userID).Scan(&user.UserID, &user.Chips, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreateUser(ctx, userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user with the starting chip balance. A concurrent
// insert for the same user is harmless; the existing row wins.
func CreateUser(ctx context.Context, userID int64) (*User, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}

	query := `
		INSERT INTO users (user_id, chips, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := DB.Exec(ctx, query, userID, int64(StartingChips)); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user := &User{}
	err := DB.QueryRow(ctx, `SELECT user_id, chips, created_at FROM users WHERE user_id = $1`, userID).
		Scan(&user.UserID, &user.Chips, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back user: %w", err)
	}

	return user, nil
}

// TryDebitChips removes amount from the user's balance if the balance covers
// it. The check and the decrement are a single statement, so concurrent
// debits can never overdraw. Returns false when funds are insufficient.
func TryDebitChips(ctx context.Context, userID int64, amount int64) (bool, error) {
	if DB == nil {
		return false, ErrNoDatabase
	}
	if _, err := GetUser(ctx, userID); err != nil {
		return false, err
	}

	query := `UPDATE users SET chips = chips - $2 WHERE user_id = $1 AND chips >= $2`
	tag, err := DB.Exec(ctx, query, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit chips: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CreditChips adds amount to the user's balance.
func CreditChips(ctx context.Context, userID int64, amount int64) error {
	if DB == nil {
		return ErrNoDatabase
	}
	if _, err := GetUser(ctx, userID); err != nil {
		return err
	}

	query := `UPDATE users SET chips = chips + $2 WHERE user_id = $1`
	if _, err := DB.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to credit chips: %w", err)
	}

	return nil
}
