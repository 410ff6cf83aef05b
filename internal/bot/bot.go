package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"snowman_backend/internal/config"
	"snowman_backend/internal/domain"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the Telegram side of the game: it greets players, issues Stars
// invoices, answers pre-checkout queries and feeds successful payments
// into the purchase reconciler. Admin commands ride on the same loop.
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *repository.UserRepository
	purchases *service.PurchaseService
	cfg       *config.Config
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger

	mu               sync.Mutex
	broadcastPending map[int64]bool // admins waiting to enter a broadcast message
}

func New(cfg *config.Config, users *repository.UserRepository, purchases *service.PurchaseService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "bot")
	log.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:              api,
		users:            users,
		purchases:        purchases,
		cfg:              cfg,
		stopCh:           make(chan struct{}),
		log:              log,
		broadcastPending: make(map[int64]bool),
	}, nil
}

// Start runs the long-poll update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	if b.cfg.DailyReminder {
		b.wg.Add(1)
		go b.runDailyReminder()
	}

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.PreCheckoutQuery != nil {
				b.answerPreCheckout(update.PreCheckoutQuery)
				continue
			}

			if update.Message == nil {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminTelegramIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}

	b.mu.Lock()
	pending := b.broadcastPending[msg.From.ID]
	b.mu.Unlock()
	if pending && b.isAdmin(msg.From.ID) {
		b.executeBroadcast(msg)
		return
	}

	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		if b.isAdmin(msg.From.ID) {
			b.reply(msg, b.adminHelp())
		} else {
			b.handleStart(ctx, msg)
		}
	case "stats":
		if b.isAdmin(msg.From.ID) {
			b.reply(msg, b.handleStats(ctx))
		}
	case "broadcast":
		if b.isAdmin(msg.From.ID) {
			b.mu.Lock()
			b.broadcastPending[msg.From.ID] = true
			b.mu.Unlock()
			b.reply(msg, "📢 <b>Режим рассылки</b>\n\nВведите сообщение (текст или фото с подписью).\nОтправьте /cancel для отмены.")
		}
	}
}

// handleStart registers the player on first contact so broadcasts can reach
// them even before they open the web app. The start argument is the
// referrer's Telegram id.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From

	_, err := b.users.GetByTgID(ctx, from.ID)
	if errors.Is(err, repository.ErrUserNotFound) {
		referrerID := b.resolveReferrer(ctx, from.ID, msg.CommandArguments())
		u := &domain.User{
			TgID:      from.ID,
			Username:  from.UserName,
			FirstName: from.FirstName,
		}
		if err := b.users.Create(ctx, u, referrerID, b.cfg.ReferralJoinBonus); err != nil {
			b.log.Error("failed to create user from /start", "tg_id", from.ID, "error", err)
		} else {
			b.log.Info("user registered via bot", "tg_id", from.ID, "referred", referrerID != nil)
		}
	} else if err != nil {
		b.log.Error("failed to look up user", "tg_id", from.ID, "error", err)
	}

	welcome := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"❄️ <b>Привет, %s!</b>\n\nТапай снеговика, зарабатывай монеты, крути колесо призов и приглашай друзей — за каждого друга бонус %d монет и %d%% с его заработка.",
		htmlEscape(from.FirstName), b.cfg.ReferralJoinBonus, b.cfg.ReferralCommissionPercent))
	welcome.ParseMode = "HTML"
	welcome.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("⛄ Играть", b.cfg.WebAppURL),
		),
	)

	if _, err := b.api.Send(welcome); err != nil {
		b.log.Error("error sending welcome", "error", err)
	}
}

// resolveReferrer maps a /start argument (the referrer's Telegram id) to an
// internal user id. Self-referrals and unknown ids are ignored.
func (b *Bot) resolveReferrer(ctx context.Context, selfTgID int64, arg string) *int64 {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}
	refTgID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || refTgID <= 0 || refTgID == selfTgID {
		return nil
	}
	referrer, err := b.users.GetByTgID(ctx, refTgID)
	if err != nil {
		return nil
	}
	return &referrer.ID
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	sp := msg.SuccessfulPayment

	applied, err := b.purchases.Reconcile(ctx, sp.TelegramPaymentChargeID, sp.InvoicePayload)
	if err != nil {
		b.log.Error("payment reconciliation failed",
			"charge_id", sp.TelegramPaymentChargeID,
			"payload", sp.InvoicePayload,
			"error", err)
		b.reply(msg, "⚠️ Платёж получен, но начисление не прошло. Напишите в поддержку, мы всё исправим.")
		return
	}

	if !applied {
		// Duplicate confirmation, the purchase was already credited.
		return
	}

	b.reply(msg, "✅ Покупка зачислена! Возвращайся в игру.")
}

// answerPreCheckout approves the checkout only when the payload still maps
// to a known catalog item.
func (b *Bot) answerPreCheckout(q *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 true,
	}

	itemID, _, err := service.ParsePayload(q.InvoicePayload)
	if err == nil {
		_, err = b.purchases.Item(itemID)
	}
	if err != nil {
		answer.OK = false
		answer.ErrorMessage = "Товар больше недоступен"
		b.log.Warn("rejecting pre-checkout", "payload", q.InvoicePayload, "error", err)
	}

	if _, err := b.api.Request(answer); err != nil {
		b.log.Error("error answering pre-checkout query", "error", err)
	}
}

// CreateInvoiceLink builds a Telegram Stars invoice for a catalog item.
// The library has no wrapper for createInvoiceLink, so this goes through
// MakeRequest directly.
func (b *Bot) CreateInvoiceLink(itemID string, tgID int64) (string, error) {
	item, err := b.purchases.Item(itemID)
	if err != nil {
		return "", err
	}

	prices, err := json.Marshal([]map[string]interface{}{
		{"label": item.Title, "amount": item.Stars},
	})
	if err != nil {
		return "", err
	}

	params := tgbotapi.Params{
		"title":       item.Title,
		"description": itemDescription(item),
		"payload":     service.InvoicePayload(item.ID, tgID),
		"currency":    "XTR", // Telegram Stars
		"prices":      string(prices),
	}

	resp, err := b.api.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("createInvoiceLink: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("createInvoiceLink: decode result: %w", err)
	}
	return link, nil
}

func itemDescription(item domain.ShopItem) string {
	switch item.Kind {
	case domain.KindCurrency:
		return fmt.Sprintf("Пополнение баланса на %d монет", item.GrantAmount)
	case domain.KindBooster:
		return "Удвоенный заработок за каждый тап"
	case domain.KindAutotap:
		return "Снеговик тапает сам, даже когда вы офлайн"
	default:
		return item.Title
	}
}

func (b *Bot) adminHelp() string {
	return `<b>🤖 Команды администратора</b>

/stats - Статистика игры
/broadcast - Рассылка всем игрокам`
}

func (b *Bot) handleStats(ctx context.Context) string {
	total, err := b.users.Count(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	top, err := b.users.GetTopByBalance(ctx, 5)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📊 Статистика</b>\n\n👥 Игроков: %d\n\n<b>🏆 Топ по монетам:</b>\n", total)
	for i, entry := range top {
		name := entry.Username
		if name == "" {
			name = entry.FirstName
		}
		fmt.Fprintf(&sb, "%d. %s — %d\n", i+1, htmlEscape(name), entry.Balance)
	}
	return sb.String()
}

func (b *Bot) executeBroadcast(msg *tgbotapi.Message) {
	adminID := msg.From.ID
	chatID := msg.Chat.ID

	b.mu.Lock()
	delete(b.broadcastPending, adminID)
	b.mu.Unlock()

	if msg.Text == "/cancel" {
		b.reply(msg, "❌ Рассылка отменена")
		return
	}

	bctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b.log.Info("starting broadcast", "admin_id", adminID)

	tgIDs, err := b.users.AllTgIDs(bctx)
	if err != nil {
		b.log.Error("failed to list broadcast recipients", "error", err)
		b.reply(msg, fmt.Sprintf("❌ Ошибка: %v", err))
		return
	}
	if len(tgIDs) == 0 {
		b.reply(msg, "❌ Нет пользователей для рассылки")
		return
	}

	progress := tgbotapi.NewMessage(chatID, fmt.Sprintf("📤 Начинаю рассылку %d пользователям...", len(tgIDs)))
	b.api.Send(progress)

	sent, failed, blocked := b.fanOut(tgIDs, func(tgID int64) error {
		if len(msg.Photo) > 0 {
			photo := msg.Photo[len(msg.Photo)-1]
			photoMsg := tgbotapi.NewPhoto(tgID, tgbotapi.FileID(photo.FileID))
			photoMsg.Caption = msg.Caption
			photoMsg.ParseMode = "HTML"
			_, err := b.api.Send(photoMsg)
			return err
		}
		textMsg := tgbotapi.NewMessage(tgID, msg.Text)
		textMsg.ParseMode = "HTML"
		textMsg.DisableWebPagePreview = true
		_, err := b.api.Send(textMsg)
		return err
	})

	b.log.Info("broadcast complete", "sent", sent, "failed", failed, "blocked", blocked)
	b.reply(msg, fmt.Sprintf("✅ <b>Рассылка завершена</b>\n\n📨 Отправлено: %d\n❌ Не доставлено: %d\n🚫 Заблокировали бота: %d",
		sent, failed-blocked, blocked))
}

// fanOut sends to every recipient with a small pause to stay under the
// Telegram rate limit (~30 messages per second).
func (b *Bot) fanOut(tgIDs []int64, send func(int64) error) (sent, failed, blocked int) {
	for _, tgID := range tgIDs {
		if err := send(tgID); err != nil {
			if strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "deactivated") {
				blocked++
			} else {
				b.log.Error("failed to send broadcast message", "tg_id", tgID, "error", err)
			}
			failed++
		} else {
			sent++
		}
		time.Sleep(50 * time.Millisecond)
	}
	return sent, failed, blocked
}

// runDailyReminder nudges every player once a day at 12:00 UTC.
func (b *Bot) runDailyReminder() {
	defer b.wg.Done()

	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-b.stopCh:
			return
		case <-time.After(time.Until(next)):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		tgIDs, err := b.users.AllTgIDs(ctx)
		cancel()
		if err != nil {
			b.log.Error("failed to list reminder recipients", "error", err)
			continue
		}

		sent, _, _ := b.fanOut(tgIDs, func(tgID int64) error {
			reminder := tgbotapi.NewMessage(tgID, "❄️ Снеговик заскучал! Заходи тапать и крутить колесо призов.")
			reminder.DisableWebPagePreview = true
			_, err := b.api.Send(reminder)
			return err
		})
		b.log.Info("daily reminder sent", "recipients", sent)
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
