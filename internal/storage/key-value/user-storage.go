package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

const (
	dateLayout    = "2006-01-02"
	premiumSetKey = "premium_users"
)

type userInternal struct {
	TelegramID         int64  `json:"telegram_id"`
	Language           string `json:"language"`
	RequestsToday      int    `json:"requests_today"`
	LastRequestDate    string `json:"last_request_date"`
	RegistrationDate   string `json:"registration_date"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionExpire string `json:"subscription_expire,omitempty"`
}

// UserStorage persists user records as JSON values in Redis, one key per
// user, with a set of premium user ids for expiry scans.
type UserStorage struct {
	rdb *redis.Client
}

func NewUserStorage(rdb *redis.Client) *UserStorage {
	return &UserStorage{
		rdb: rdb,
	}
}

func (u *UserStorage) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	userInt, err := u.getUser(ctx, telegramID)
	if err != nil {
		return model.User{}, err
	}
	return userInt.toModel()
}

func (u *UserStorage) CreateUser(ctx context.Context, telegramID int64, language model.Language) (model.User, error) {
	userInt, err := u.getUser(ctx, telegramID)
	if err == nil {
		return userInt.toModel()
	}
	if !errors.Is(err, model.ErrUserDoesNotExist) {
		return model.User{}, err
	}

	today := date.Today()
	userInt = userInternal{
		TelegramID:         telegramID,
		Language:           string(language),
		RequestsToday:      0,
		LastRequestDate:    today.Format(dateLayout),
		RegistrationDate:   today.Format(dateLayout),
		SubscriptionStatus: string(model.SubscriptionFree),
	}
	if err = u.setUser(ctx, telegramID, userInt); err != nil {
		return model.User{}, err
	}
	return userInt.toModel()
}

func (u *UserStorage) SetLanguage(ctx context.Context, telegramID int64, language model.Language) error {
	userInt, err := u.getUser(ctx, telegramID)
	if err != nil {
		return err
	}
	userInt.Language = string(language)
	return u.setUser(ctx, telegramID, userInt)
}

func (u *UserStorage) ResetDailyIfStale(ctx context.Context, telegramID int64, today time.Time) error {
	userInt, err := u.getUser(ctx, telegramID)
	if err != nil {
		return err
	}
	todayStr := date.Day(today).Format(dateLayout)
	if userInt.LastRequestDate == todayStr {
		return nil
	}
	userInt.RequestsToday = 0
	userInt.LastRequestDate = todayStr
	return u.setUser(ctx, telegramID, userInt)
}

func (u *UserStorage) IncrementRequest(ctx context.Context, telegramID int64, today time.Time) error {
	userInt, err := u.getUser(ctx, telegramID)
	if err != nil {
		return err
	}
	userInt.RequestsToday++
	userInt.LastRequestDate = date.Day(today).Format(dateLayout)
	return u.setUser(ctx, telegramID, userInt)
}

func (u *UserStorage) SetSubscription(
	ctx context.Context, telegramID int64, status model.SubscriptionStatus, expire *time.Time,
) error {
	userInt, err := u.getUser(ctx, telegramID)
	if err != nil {
		return err
	}
	userInt.SubscriptionStatus = string(status)
	if expire != nil {
		userInt.SubscriptionExpire = date.Day(*expire).Format(dateLayout)
	} else {
		userInt.SubscriptionExpire = ""
	}
	if err = u.setUser(ctx, telegramID, userInt); err != nil {
		return err
	}

	member := strconv.FormatInt(telegramID, 10)
	if status == model.SubscriptionPremium {
		err = u.rdb.SAdd(ctx, premiumSetKey, member).Err()
	} else {
		err = u.rdb.SRem(ctx, premiumSetKey, member).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to update premium index for user %d: %w", telegramID, err)
	}
	return nil
}

func (u *UserStorage) ListPremium(ctx context.Context) ([]model.User, error) {
	members, err := u.rdb.SMembers(ctx, premiumSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read premium index: %w", err)
	}
	users := make([]model.User, 0, len(members))
	for _, member := range members {
		telegramID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse premium member %q: %w", member, err)
		}
		user, err := u.GetUser(ctx, telegramID)
		if err != nil {
			if errors.Is(err, model.ErrUserDoesNotExist) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (u *UserStorage) getUser(ctx context.Context, telegramID int64) (userInternal, error) {
	userRaw, err := u.rdb.Get(ctx, getUserKey(telegramID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return userInternal{}, model.ErrUserDoesNotExist
		}
		return userInternal{}, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}
	var userInt userInternal
	if err = json.Unmarshal([]byte(userRaw), &userInt); err != nil {
		return userInternal{}, fmt.Errorf("failed to unmarshal user %d: %w", telegramID, err)
	}
	return userInt, nil
}

func (u *UserStorage) setUser(ctx context.Context, telegramID int64, userInt userInternal) error {
	userJSON, err := json.Marshal(userInt)
	if err != nil {
		return fmt.Errorf("failed to marshal user %d: %w", telegramID, err)
	}
	if err = u.rdb.Set(ctx, getUserKey(telegramID), userJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save user %d: %w", telegramID, err)
	}
	return nil
}

func (u userInternal) toModel() (model.User, error) {
	lastRequestDate, err := time.Parse(dateLayout, u.LastRequestDate)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse last request date of user %d: %w", u.TelegramID, err)
	}
	registrationDate, err := time.Parse(dateLayout, u.RegistrationDate)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse registration date of user %d: %w", u.TelegramID, err)
	}
	user := model.User{
		TelegramID:         u.TelegramID,
		Language:           model.ParseLanguage(u.Language),
		RequestsToday:      u.RequestsToday,
		LastRequestDate:    lastRequestDate,
		RegistrationDate:   registrationDate,
		SubscriptionStatus: model.ParseSubscriptionStatus(u.SubscriptionStatus),
	}
	if u.SubscriptionExpire != "" {
		expire, err := time.Parse(dateLayout, u.SubscriptionExpire)
		if err != nil {
			return model.User{}, fmt.Errorf("failed to parse subscription expire of user %d: %w", u.TelegramID, err)
		}
		user.SubscriptionExpire = &expire
	}
	return user, nil
}

func getUserKey(telegramID int64) string {
	return fmt.Sprintf("user_%d", telegramID)
}
