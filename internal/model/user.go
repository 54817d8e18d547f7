package model

import (
	"errors"
	"time"
)

var (
	ErrUserDoesNotExist = errors.New("user does not exist")
)

type Language string

const (
	LanguageUnset = Language("")
	LanguageEng   = Language("en")
	LanguageRus   = Language("ru")
)

func ParseLanguage(s string) Language {
	switch s {
	case "en":
		return LanguageEng
	case "ru":
		return LanguageRus
	default:
		return LanguageUnset
	}
}

type SubscriptionStatus string

const (
	SubscriptionFree    = SubscriptionStatus("free")
	SubscriptionPremium = SubscriptionStatus("premium")
)

func ParseSubscriptionStatus(s string) SubscriptionStatus {
	switch s {
	case "premium":
		return SubscriptionPremium
	default:
		return SubscriptionFree
	}
}

// User is one record per Telegram user. All dates are UTC calendar days.
// SubscriptionExpire is set while SubscriptionStatus is premium; only the
// subscription lifecycle clears it back.
type User struct {
	TelegramID         int64
	Language           Language
	RequestsToday      int
	LastRequestDate    time.Time
	RegistrationDate   time.Time
	SubscriptionStatus SubscriptionStatus
	SubscriptionExpire *time.Time
}

func (u User) IsPremium() bool {
	return u.SubscriptionStatus == SubscriptionPremium
}
