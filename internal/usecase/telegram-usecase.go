package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/sl"
	"github.com/dkurbatov/ai-assistant-bot/internal/metrics"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
	"github.com/dkurbatov/ai-assistant-bot/pkg/local"
)

const (
	CommandStart    = "start"
	CommandHelp     = "help"
	CommandLanguage = "language"
	CommandProfile  = "profile"
	CommandPremium  = "premium"

	callbackLanguageEng = "lang_en"
	callbackLanguageRus = "lang_ru"

	profileDateLayout = "02.01.2006"
)

var (
	textSelectLanguage = local.NewSet(
		"Choose your language 👇",
		local.NewTrans(local.Rus, "Выберите язык 👇"),
	)
	textLanguageSaved = local.NewSet(
		"Language saved. Send me a text or voice message!",
		local.NewTrans(local.Rus, "Язык сохранён. Отправьте мне текстовое или голосовое сообщение!"),
	)
	textHelp = local.NewSet(
		"Send me a text or voice message and I will answer. Commands: /language, /profile, /premium.",
		local.NewTrans(local.Rus, "Отправьте текстовое или голосовое сообщение, и я отвечу. Команды: /language, /profile, /premium."),
	)
	textUnknownCommand = local.NewSet(
		"I don't know that command",
		local.NewTrans(local.Rus, "Я не знаю такую команду"),
	)
	textUnsupported = local.NewSet(
		"I can only handle text and voice messages.",
		local.NewTrans(local.Rus, "Я понимаю только текстовые и голосовые сообщения."),
	)
	textQuotaExceeded = local.NewSet(
		"You have used all %d free requests for today. Come back tomorrow or remove the limit with /premium.",
		local.NewTrans(local.Rus, "Вы использовали все %d бесплатных запросов на сегодня. Возвращайтесь завтра или снимите лимит через /premium."),
	)
	textServerError = local.NewSet(
		"Something went wrong. Try again later.",
		local.NewTrans(local.Rus, "Что-то пошло не так. Попробуйте позже."),
	)
	textVoiceError = local.NewSet(
		"Failed to recognize the voice message. Try again later.",
		local.NewTrans(local.Rus, "Не удалось распознать голосовое сообщение. Попробуйте позже."),
	)
	textVoiceAnswer = local.NewSet("🗣 %s\n\n💬 %s")
	textProfile     = local.NewSet(
		"Plan: %s\nRequests today: %s\nRegistered: %s",
		local.NewTrans(local.Rus, "Тариф: %s\nЗапросов сегодня: %s\nРегистрация: %s"),
	)
	textPlanFree = local.NewSet("free", local.NewTrans(local.Rus, "бесплатный"))
	textPlanPremium = local.NewSet(
		"premium until %s",
		local.NewTrans(local.Rus, "премиум до %s"),
	)
	textUnlimited = local.NewSet("unlimited", local.NewTrans(local.Rus, "без ограничений"))
	textPremiumOffer = local.NewSet(
		"Premium removes the daily limit for %d days — %s.",
		local.NewTrans(local.Rus, "Премиум снимает дневной лимит на %d дней — %s."),
	)
	textPremiumUnavailable = local.NewSet(
		"Premium purchase is not available right now.",
		local.NewTrans(local.Rus, "Покупка премиума сейчас недоступна."),
	)
	textPremiumActivated = local.NewSet(
		"Premium is active until %s. Enjoy!",
		local.NewTrans(local.Rus, "Премиум активен до %s. Приятного общения!"),
	)
	buttonBuyPremium = local.NewSet("Buy premium", local.NewTrans(local.Rus, "Купить премиум"))
)

// BotAPI is the slice of the Telegram client the dispatcher needs;
// *api.BotAPI satisfies it.
type BotAPI interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config api.UpdateConfig) api.UpdatesChannel
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type TelegramUsecaseDeps struct {
	User         *UserUsecase
	Quota        *QuotaUsecase
	Subscription *SubscriptionUsecase
	Completer    Completer
	Transcriber  Transcriber
	Bot          BotAPI
	Log          *slog.Logger
}

// TelegramUsecase is the message dispatcher: it routes every inbound message
// through subscription reconciliation and the quota policy before any
// provider call, and commits the request counter only on full success.
type TelegramUsecase struct {
	TelegramUsecaseDeps
	cfg        config.Telegram
	premiumCfg config.Premium
	httpClient *http.Client
	userLocks  sync.Map
}

func NewTelegramUsecase(
	cfg config.Telegram, premiumCfg config.Premium, deps TelegramUsecaseDeps,
) (*TelegramUsecase, error) {
	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{
					Command:     CommandHelp,
					Description: "Get help",
				},
				{
					Command:     CommandLanguage,
					Description: "Change language",
				},
				{
					Command:     CommandProfile,
					Description: "Show your profile",
				},
				{
					Command:     CommandPremium,
					Description: "Remove the daily limit",
				},
			}...,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set bot commands: %w", err)
	}

	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		cfg:                 cfg,
		premiumCfg:          premiumCfg,
		httpClient: &http.Client{
			Timeout: cfg.FileFetchTimeout,
		},
	}, nil
}

// Run consumes updates until the channel closes. Updates are handled
// concurrently; ordering per user is enforced by per-user locks.
func (t *TelegramUsecase) Run() error {
	u := api.NewUpdate(0)
	u.Timeout = t.cfg.UpdateTimeout

	updates := t.Bot.GetUpdatesChan(u)

	wg := conc.NewWaitGroup()
	for update := range updates {
		update := update
		wg.Go(
			func() {
				t.handleUpdate(update)
			},
		)
	}
	wg.Wait()
	return nil
}

func (t *TelegramUsecase) handleUpdate(update api.Update) {
	log := t.Log.With(slog.String("message_uid", uuid.NewString()))
	ctx := context.Background()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = t.handleCallbackQuery(ctx, update)
	case update.Message != nil:
		err = t.processMessage(ctx, log, inboundFromMessage(update.Message))
	}
	if err != nil {
		log.Error("failed to handle update", sl.Err(err))
	}
}

// inboundMessage is the transport-independent shape of one inbound event.
type inboundMessage struct {
	ChatID           int64
	Text             string
	Command          string
	VoiceFileID      string
	PaymentConfirmed bool
}

func inboundFromMessage(msg *api.Message) inboundMessage {
	in := inboundMessage{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if msg.IsCommand() {
		in.Command = msg.Command()
	}
	if msg.Voice != nil {
		in.VoiceFileID = msg.Voice.FileID
	}
	if msg.SuccessfulPayment != nil {
		in.PaymentConfirmed = true
	}
	return in
}

func (t *TelegramUsecase) processMessage(ctx context.Context, log *slog.Logger, in inboundMessage) error {
	unlock := t.lockUser(in.ChatID)
	defer unlock()

	user, err := t.User.ResolveUser(ctx, in.ChatID)
	if err != nil {
		t.sendMessageAndHandleErr(in.ChatID, textServerError.Text(local.Eng))
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	lang := languageOf(user)

	if in.PaymentConfirmed {
		expire, err := t.Subscription.ApplySubscription(ctx, user.TelegramID)
		if err != nil {
			t.sendMessageAndHandleErr(in.ChatID, textServerError.Text(lang))
			return fmt.Errorf("failed to apply subscription: %w", err)
		}
		t.sendMessageAndHandleErr(in.ChatID, textPremiumActivated.Format(lang, expire.Format(profileDateLayout)))
		return nil
	}

	if in.Command != "" {
		return t.handleCommand(ctx, user, in.Command)
	}

	if user.Language == model.LanguageUnset {
		return t.sendLanguageKeyboard(in.ChatID, lang)
	}

	switch {
	case in.VoiceFileID != "":
		metrics.MessagesTotal.WithLabelValues("voice").Inc()
		return t.dispatch(ctx, log, user, in)
	case strings.TrimSpace(in.Text) != "":
		metrics.MessagesTotal.WithLabelValues("text").Inc()
		return t.dispatch(ctx, log, user, in)
	default:
		t.sendMessageAndHandleErr(in.ChatID, textUnsupported.Text(lang))
		return nil
	}
}

// dispatch is the single quota-gated path shared by text and voice input.
func (t *TelegramUsecase) dispatch(ctx context.Context, log *slog.Logger, user model.User, in inboundMessage) error {
	lang := languageOf(user)
	today := date.Today()

	user, demoted, err := t.Subscription.Reconcile(ctx, user, today)
	if err != nil {
		t.sendMessageAndHandleErr(user.TelegramID, textServerError.Text(lang))
		return fmt.Errorf("failed to reconcile subscription: %w", err)
	}
	if demoted {
		metrics.SubscriptionsDemotedTotal.Inc()
		log.Info("premium expired", slog.Int64("telegram_id", user.TelegramID))
	}

	user, err = t.User.ResetDailyIfStale(ctx, user, today)
	if err != nil {
		t.sendMessageAndHandleErr(user.TelegramID, textServerError.Text(lang))
		return err
	}

	if decision := t.Quota.CanProceed(user, today); !decision.Permitted {
		metrics.QuotaDeniedTotal.Inc()
		t.sendMessageAndHandleErr(user.TelegramID, textQuotaExceeded.Format(lang, t.Quota.DailyFreeLimit()))
		return nil
	}

	prompt := in.Text
	isVoice := in.VoiceFileID != ""
	if isVoice {
		prompt, err = t.transcribeVoice(ctx, in.VoiceFileID)
		if err != nil {
			metrics.ProviderFailuresTotal.WithLabelValues("transcription").Inc()
			t.sendMessageAndHandleErr(user.TelegramID, textVoiceError.Text(lang))
			return fmt.Errorf("failed to transcribe voice message: %w", err)
		}
	}

	answer, err := t.Completer.Complete(ctx, prompt)
	if err != nil {
		metrics.ProviderFailuresTotal.WithLabelValues("completion").Inc()
		t.sendMessageAndHandleErr(user.TelegramID, textServerError.Text(lang))
		return fmt.Errorf("failed to complete prompt: %w", err)
	}

	// Failed attempts are free: the counter moves only once the provider has
	// answered.
	if err = t.User.IncrementRequest(ctx, user.TelegramID, today); err != nil {
		log.Error("failed to increment request counter", sl.Err(err))
	}

	reply := answer
	if isVoice {
		reply = textVoiceAnswer.Format(lang, prompt, answer)
	}
	t.sendMessageAndHandleErr(user.TelegramID, reply)
	return nil
}

func (t *TelegramUsecase) handleCommand(ctx context.Context, user model.User, command string) error {
	lang := languageOf(user)
	chatID := user.TelegramID

	switch command {
	case CommandStart, CommandLanguage:
		return t.sendLanguageKeyboard(chatID, lang)
	case CommandHelp:
		t.sendMessageAndHandleErr(chatID, textHelp.Text(lang))
	case CommandProfile:
		user, _, err := t.Subscription.Reconcile(ctx, user, date.Today())
		if err != nil {
			t.sendMessageAndHandleErr(chatID, textServerError.Text(lang))
			return fmt.Errorf("failed to reconcile subscription: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, t.profileText(user))
	case CommandPremium:
		user, _, err := t.Subscription.Reconcile(ctx, user, date.Today())
		if err != nil {
			t.sendMessageAndHandleErr(chatID, textServerError.Text(lang))
			return fmt.Errorf("failed to reconcile subscription: %w", err)
		}
		return t.sendPremiumOffer(user)
	default:
		t.sendMessageAndHandleErr(chatID, textUnknownCommand.Text(lang))
	}
	return nil
}

func (t *TelegramUsecase) handleCallbackQuery(ctx context.Context, update api.Update) error {
	chatID := update.CallbackQuery.Message.Chat.ID
	data := update.CallbackQuery.Data

	callback := api.NewCallback(update.CallbackQuery.ID, "")
	if _, err := t.Bot.Request(callback); err != nil {
		return fmt.Errorf("failed to request callback: %w", err)
	}

	var language model.Language
	switch data {
	case callbackLanguageEng:
		language = model.LanguageEng
	case callbackLanguageRus:
		language = model.LanguageRus
	default:
		return nil
	}

	unlock := t.lockUser(chatID)
	defer unlock()

	if _, err := t.User.ResolveUser(ctx, chatID); err != nil {
		t.sendMessageAndHandleErr(chatID, textServerError.Text(local.Eng))
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	if err := t.User.SetLanguage(ctx, chatID, language); err != nil {
		t.sendMessageAndHandleErr(chatID, textServerError.Text(localOf(language)))
		return fmt.Errorf("failed to set language: %w", err)
	}
	t.sendMessageAndHandleErr(chatID, textLanguageSaved.Text(localOf(language)))
	return nil
}

func (t *TelegramUsecase) sendLanguageKeyboard(chatID int64, lang local.Language) error {
	msg := api.NewMessage(chatID, textSelectLanguage.Text(lang))
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData("English 🇬🇧", callbackLanguageEng),
			api.NewInlineKeyboardButtonData("Русский 🇷🇺", callbackLanguageRus),
		),
	)
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send language keyboard: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) sendPremiumOffer(user model.User) error {
	lang := languageOf(user)
	chatID := user.TelegramID

	if user.IsPremium() && user.SubscriptionExpire != nil {
		t.sendMessageAndHandleErr(chatID, textPremiumActivated.Format(lang, user.SubscriptionExpire.Format(profileDateLayout)))
		return nil
	}
	if t.premiumCfg.PaymentURL == "" {
		t.sendMessageAndHandleErr(chatID, textPremiumUnavailable.Text(lang))
		return nil
	}

	msg := api.NewMessage(chatID, textPremiumOffer.Format(lang, t.premiumCfg.DurationDays, t.premiumCfg.PriceLabel))
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonURL(buttonBuyPremium.Text(lang), t.premiumCfg.PaymentURL),
		),
	)
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send premium offer: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) profileText(user model.User) string {
	lang := languageOf(user)

	plan := textPlanFree.Text(lang)
	requests := fmt.Sprintf("%d / %d", shownRequestsToday(user), t.Quota.DailyFreeLimit())
	if user.IsPremium() && user.SubscriptionExpire != nil {
		plan = textPlanPremium.Format(lang, user.SubscriptionExpire.Format(profileDateLayout))
		requests = textUnlimited.Text(lang)
	}
	return textProfile.Format(lang, plan, requests, user.RegistrationDate.Format(profileDateLayout))
}

// shownRequestsToday mirrors the quota view of the counter: a record stamped
// on an earlier day counts as zero even before the store is reset.
func shownRequestsToday(user model.User) int {
	if !date.SameDay(user.LastRequestDate, date.Today()) {
		return 0
	}
	return user.RequestsToday
}

func (t *TelegramUsecase) transcribeVoice(ctx context.Context, fileID string) (string, error) {
	audio, err := t.downloadFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	// The audio bytes stay scoped to this call and are released with it.
	return t.Transcriber.Transcribe(ctx, audio)
}

func (t *TelegramUsecase) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := t.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching file", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return body, nil
}

// lockUser serializes processing per user so concurrent messages cannot race
// the daily-reset check or double-increment the counter.
func (t *TelegramUsecase) lockUser(telegramID int64) func() {
	v, _ := t.userLocks.LoadOrStore(telegramID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (t *TelegramUsecase) sendMessageAndHandleErr(chatID int64, message string) api.Message {
	msg, err := t.sendMessage(chatID, message)
	if err != nil {
		t.Log.Error("failed to send message to bot", sl.Err(err))
	}
	return msg
}

func (t *TelegramUsecase) sendMessage(chatID int64, message string) (api.Message, error) {
	return t.Bot.Send(api.NewMessage(chatID, message))
}

func languageOf(user model.User) local.Language {
	return localOf(user.Language)
}

func localOf(language model.Language) local.Language {
	if language == model.LanguageRus {
		return local.Rus
	}
	return local.Eng
}
