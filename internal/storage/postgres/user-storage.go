package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

// UserStorage persists user records in a single Postgres table keyed by the
// Telegram id.
type UserStorage struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, connURL string) (*UserStorage, error) {
	const op = "storage.postgres.New"

	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = initializeSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &UserStorage{db: pool}, nil
}

func initializeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users(
            telegram_id BIGINT PRIMARY KEY,
            language TEXT NOT NULL DEFAULT '',
            requests_today INTEGER NOT NULL DEFAULT 0,
            last_request_date DATE NOT NULL,
            registration_date DATE NOT NULL,
            subscription_status TEXT NOT NULL DEFAULT 'free',
            subscription_expire DATE
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_users_subscription_status
        ON users (subscription_status);
    `)
	if err != nil {
		return fmt.Errorf("failed to create subscription status index: %w", err)
	}
	return nil
}

func (u *UserStorage) Close() {
	u.db.Close()
}

func (u *UserStorage) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	const op = "storage.postgres.GetUser"

	query := `SELECT telegram_id, language, requests_today, last_request_date,
	              registration_date, subscription_status, subscription_expire
	          FROM users
	          WHERE telegram_id = $1`
	user, err := scanUser(u.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrUserDoesNotExist
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (u *UserStorage) CreateUser(ctx context.Context, telegramID int64, language model.Language) (model.User, error) {
	const op = "storage.postgres.CreateUser"

	today := date.Today()
	query := `INSERT INTO users (telegram_id, language, requests_today, last_request_date,
	              registration_date, subscription_status)
	          VALUES ($1, $2, 0, $3, $3, $4)
	          ON CONFLICT (telegram_id) DO NOTHING`
	if _, err := u.db.Exec(ctx, query, telegramID, string(language), today,
		string(model.SubscriptionFree)); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u.GetUser(ctx, telegramID)
}

func (u *UserStorage) SetLanguage(ctx context.Context, telegramID int64, language model.Language) error {
	const op = "storage.postgres.SetLanguage"

	query := `UPDATE users SET language = $2 WHERE telegram_id = $1`
	tag, err := u.db.Exec(ctx, query, telegramID, string(language))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserDoesNotExist
	}
	return nil
}

func (u *UserStorage) ResetDailyIfStale(ctx context.Context, telegramID int64, today time.Time) error {
	const op = "storage.postgres.ResetDailyIfStale"

	query := `UPDATE users
	          SET requests_today = 0, last_request_date = $2
	          WHERE telegram_id = $1 AND last_request_date <> $2`
	if _, err := u.db.Exec(ctx, query, telegramID, date.Day(today)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (u *UserStorage) IncrementRequest(ctx context.Context, telegramID int64, today time.Time) error {
	const op = "storage.postgres.IncrementRequest"

	query := `UPDATE users
	          SET requests_today = requests_today + 1, last_request_date = $2
	          WHERE telegram_id = $1`
	tag, err := u.db.Exec(ctx, query, telegramID, date.Day(today))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserDoesNotExist
	}
	return nil
}

func (u *UserStorage) SetSubscription(
	ctx context.Context, telegramID int64, status model.SubscriptionStatus, expire *time.Time,
) error {
	const op = "storage.postgres.SetSubscription"

	var expireDay *time.Time
	if expire != nil {
		d := date.Day(*expire)
		expireDay = &d
	}
	query := `UPDATE users
	          SET subscription_status = $2, subscription_expire = $3
	          WHERE telegram_id = $1`
	tag, err := u.db.Exec(ctx, query, telegramID, string(status), expireDay)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserDoesNotExist
	}
	return nil
}

func (u *UserStorage) ListPremium(ctx context.Context) ([]model.User, error) {
	const op = "storage.postgres.ListPremium"

	query := `SELECT telegram_id, language, requests_today, last_request_date,
	              registration_date, subscription_status, subscription_expire
	          FROM users
	          WHERE subscription_status = $1`
	rows, err := u.db.Query(ctx, query, string(model.SubscriptionPremium))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user     model.User
		language string
		status   string
		expire   *time.Time
	)
	if err := row.Scan(&user.TelegramID, &language, &user.RequestsToday,
		&user.LastRequestDate, &user.RegistrationDate, &status, &expire); err != nil {
		return model.User{}, err
	}
	user.Language = model.ParseLanguage(language)
	user.SubscriptionStatus = model.ParseSubscriptionStatus(status)
	if expire != nil {
		expireDay := date.Day(*expire)
		user.SubscriptionExpire = &expireDay
	}
	return user, nil
}
