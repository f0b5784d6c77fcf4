package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"daybook/internal/model"
	"daybook/internal/prayer"
	"daybook/internal/service"
)

const (
	cbTogglePrefix  = "toggle:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	btnConfirm  = "🗑 Delete"
	btnCancel   = "↩️ Keep"
	iconDefault = "🟢"
	iconDone    = "✅"
)

// sender is the part of the Telegram client the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot binds the planner store to a private Telegram chat.
type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	store    *service.Store
	reminder *service.ReminderService
	logger   *zap.Logger
	owner    int64

	// listings keeps the task IDs last shown per chat so /done and /delete can use positions.
	listings map[int64][]string
	mu       sync.Mutex

	unsubscribe func()
}

// New authorizes against Telegram and subscribes to persistence notices.
func New(token string, ownerChatID int64, store *service.Store, reminder *service.ReminderService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, ownerChatID, store, reminder, logger)
	b.client = api
	b.logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(api sender, ownerChatID int64, store *service.Store, reminder *service.ReminderService, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		api:      api,
		store:    store,
		reminder: reminder,
		logger:   logger.Named("bot"),
		owner:    ownerChatID,
		listings: make(map[int64][]string),
	}
	b.unsubscribe = store.Subscribe(b.onChange)
	return b
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("bot has no telegram client")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

// Close stops forwarding store notices.
func (b *Bot) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

// SendDailySummary pushes today's agenda to the owner chat.
func (b *Bot) SendDailySummary(ctx context.Context) error {
	if b.owner == 0 {
		return errors.New("OWNER_CHAT_ID is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.sendText(b.owner, b.reminder.DailySummary(b.store.Now()))
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Warn("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Warn("handle message", zap.Error(err))
		}
	}
}

func (b *Bot) allowed(chatID int64) bool {
	return b.owner == 0 || chatID == b.owner
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.allowed(msg.Chat.ID) {
		b.logger.Info("ignoring foreign chat", zap.Int64("chat_id", msg.Chat.ID))
		return b.sendText(msg.Chat.ID, "This planner is private.")
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help to see what I can do.")
	}
	b.logger.Debug("command", zap.String("command", msg.Command()), zap.Int64("chat_id", msg.Chat.ID))
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	var err error
	switch msg.Command() {
	case "start", "help":
		return b.sendText(chatID, helpText)
	case "today":
		return b.sendText(chatID, b.reminder.DailySummary(b.store.Now()))
	case "tasks":
		return b.sendTaskList(chatID)
	case "add":
		err = b.handleAdd(ctx, chatID, args)
	case "done":
		err = b.handleDone(ctx, chatID, args)
	case "delete":
		err = b.handleDelete(chatID, args)
	case "events":
		err = b.handleEvents(chatID, args)
	case "note":
		err = b.handleNote(ctx, chatID, args)
	case "tag":
		err = b.handleTag(ctx, chatID, args)
	case "presets":
		return b.sendPresets(chatID)
	case "preset_add":
		err = b.handlePresetChange(ctx, chatID, args, b.store.AddPreset)
	case "preset_rm":
		err = b.handlePresetChange(ctx, chatID, args, b.store.RemovePreset)
	case "prayer":
		err = b.handlePrayer(ctx, chatID, args)
	case "streaks":
		return b.sendStreaks(chatID)
	case "status":
		return b.sendStatus(chatID)
	case "dismiss":
		b.store.DismissError()
		return b.sendText(chatID, "👌 Notice dismissed.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(userMessage(err)))
	}
	return nil
}

const helpText = "ℹ️ <b>Daybook</b>\n" +
	"• /today — today's summary\n" +
	"• /tasks — open tasks with check-off buttons\n" +
	"• /add &lt;title&gt; [YYYY-MM-DD] [HH:MM-HH:MM] [weekly] — new task\n" +
	"• /done &lt;n&gt; — toggle task n from the last /tasks\n" +
	"• /delete &lt;n&gt; — delete task n from the last /tasks\n" +
	"• /events [YYYY-MM-DD] — calendar for a day\n" +
	"• /note [text] — show or replace today's note\n" +
	"• /tag &lt;YYYY-MM-DD&gt; [YYYY-MM-DD] &lt;tag, tag&gt; — mark days with #tags\n" +
	"• /presets, /preset_add &lt;title&gt;, /preset_rm &lt;title&gt; — daily habits\n" +
	"• /prayer [method] [madhab] — prayer times settings\n" +
	"• /streaks — habit streaks\n" +
	"• /status, /dismiss — sync state"

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	req, err := parseAdd(args, b.store.Today())
	if err != nil {
		return err
	}

	var created []model.Task
	if req.window != nil || req.repeatWeeks > 0 {
		created, err = b.store.PlanTask(ctx, req.input, req.window, req.repeatWeeks)
	} else {
		var task model.Task
		task, err = b.store.AddTask(ctx, req.input)
		created = []model.Task{task}
	}
	if err != nil {
		return err
	}

	text := fmt.Sprintf("➕ Added <b>%s</b>", escape(created[0].Title))
	if len(created) > 1 {
		text += fmt.Sprintf(" for %d weeks", len(created))
	}
	if due := created[0].DueAt; due != nil {
		text += fmt.Sprintf(" · %s", due.In(b.store.Location()).Format("Mon 02 Jan"))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) error {
	id, err := b.pick(chatID, args)
	if err != nil {
		return err
	}
	task, err := b.store.ToggleTask(ctx, id)
	if err != nil {
		return err
	}
	if task.ID == "" {
		return errors.New("that task is gone, open /tasks again")
	}
	return b.sendText(chatID, toggledText(task))
}

func (b *Bot) handleDelete(chatID int64, args string) error {
	id, err := b.pick(chatID, args)
	if err != nil {
		return err
	}
	task, ok := b.store.Task(id)
	if !ok {
		return errors.New("that task is gone, open /tasks again")
	}
	return b.askDeleteConfirmation(chatID, task)
}

func (b *Bot) handleEvents(chatID int64, args string) error {
	day, err := parseDay(args, b.store.Today())
	if err != nil {
		return err
	}
	events := b.store.EventsOn(day)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗓 <b>%s</b>\n", day.Format("Mon, 02 Jan 2006")))
	if len(events) == 0 {
		builder.WriteString("— nothing on the calendar")
	}
	for _, e := range events {
		builder.WriteString(service.FormatEvent(e))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleNote(ctx context.Context, chatID int64, args string) error {
	today := b.store.Today()
	if strings.TrimSpace(args) == "" {
		note, err := b.store.LoadNoteByDate(ctx, today)
		if err != nil {
			return err
		}
		if note == nil || strings.TrimSpace(note.Content) == "" {
			return b.sendText(chatID, "📝 No note for today yet. Write one with /note &lt;text&gt;.")
		}
		return b.sendText(chatID, "📝 "+escape(note.Content))
	}
	if _, err := b.store.SaveNoteForDate(ctx, today, args); err != nil {
		return err
	}
	return b.sendText(chatID, "📝 Saved.")
}

func (b *Bot) handleTag(ctx context.Context, chatID int64, args string) error {
	from, to, tags, err := parseTag(args, b.store.Location())
	if err != nil {
		return err
	}
	created, err := b.store.TagDays(ctx, from, to, tags)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		return b.sendText(chatID, "🏷 Those days are already tagged.")
	}
	return b.sendText(chatID, fmt.Sprintf("🏷 Added %d tag event(s).", len(created)))
}

func (b *Bot) handlePresetChange(ctx context.Context, chatID int64, args string, change func(context.Context, string) error) error {
	if err := change(ctx, args); err != nil {
		return err
	}
	if err := b.store.Reconcile(ctx); err != nil && !service.IsError(err, service.ErrCodeUnavailable) {
		return err
	}
	return b.sendPresets(chatID)
}

func (b *Bot) handlePrayer(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) > 0 {
		if err := b.store.SetPrayerMethod(ctx, fields[0]); err != nil {
			return err
		}
	}
	if len(fields) > 1 {
		if err := b.store.SetPrayerMadhab(ctx, fields[1]); err != nil {
			return err
		}
	}

	prefs := b.store.Preferences()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🕌 <b>%s</b> · %s\n", escape(prefs.PrayerMethod), escape(prefs.PrayerMadhab)))

	names := make(map[string]bool, len(prayer.Names))
	for _, name := range prayer.Names {
		names[name] = true
	}
	for _, e := range b.store.EventsOn(b.store.Today()) {
		if names[model.BaseTitle(e.Title)] {
			builder.WriteString(service.FormatEvent(e))
		}
	}
	if len(fields) == 0 {
		methods := make([]string, 0, len(prayer.Methods()))
		for _, m := range prayer.Methods() {
			methods = append(methods, string(m))
		}
		builder.WriteString("\nMethods: " + escape(strings.Join(methods, ", ")))
		builder.WriteString(fmt.Sprintf("\nMadhabs: %s, %s", prayer.Shafi, prayer.Hanafi))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) sendTaskList(chatID int64) error {
	tasks := append(b.store.TodayPresetTasks(), openTasks(b.store.OtherTasks())...)
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	b.mu.Lock()
	b.listings[chatID] = ids
	b.mu.Unlock()

	if len(tasks) == 0 {
		return b.sendText(chatID, "📋 Nothing to do. Add a task with /add.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Tasks</b>\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, t := range tasks {
		icon := iconDefault
		if t.IsCompleted() {
			icon = iconDone
		}
		builder.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, icon, escape(t.Title)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", icon, i+1, shortTitle(t.Title)), cbTogglePrefix+t.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+t.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPresets(chatID int64) error {
	presets := b.store.Presets()
	if len(presets) == 0 {
		return b.sendText(chatID, "No presets. Add one with /preset_add &lt;title&gt;.")
	}
	var builder strings.Builder
	builder.WriteString("⭐️ <b>Presets</b>\n")
	for i, p := range presets {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, escape(p)))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) sendStreaks(chatID int64) error {
	streaks := b.store.Streaks()
	names := make([]string, 0, len(streaks))
	for name := range streaks {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.WriteString("🔥 <b>Streaks</b>\n")
	for _, name := range names {
		builder.WriteString(fmt.Sprintf("%s · %dd\n", escape(name), streaks[name]))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) sendStatus(chatID int64) error {
	st := b.store.Status()
	if !st.Degraded && st.LastError == "" {
		return b.sendText(chatID, "✅ Everything is saved.")
	}
	text := fmt.Sprintf("⚠️ %d change(s) waiting to be saved.", st.Pending)
	if st.LastError != "" {
		text += fmt.Sprintf("\nLast error at %s: %s\nSend /dismiss to hide it.",
			st.LastErrorAt.In(b.store.Location()).Format("15:04"), escape(st.LastError))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) askDeleteConfirmation(chatID int64, task model.Task) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete <b>%s</b>? Its calendar entry stays.", escape(task.Title)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+task.ID),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+task.ID),
	))
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.Message == nil || cq.Message.Chat == nil {
		return nil
	}
	chatID := cq.Message.Chat.ID
	if !b.allowed(chatID) {
		return b.answer(cq, "")
	}

	data := cq.Data
	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		task, err := b.store.ToggleTask(ctx, strings.TrimPrefix(data, cbTogglePrefix))
		if err != nil {
			_ = b.answer(cq, "Could not update the task")
			return err
		}
		if task.ID == "" {
			return b.answer(cq, "That task is gone")
		}
		if err := b.answer(cq, ""); err != nil {
			return err
		}
		return b.sendText(chatID, toggledText(task))
	case strings.HasPrefix(data, cbDeletePrefix):
		task, ok := b.store.Task(strings.TrimPrefix(data, cbDeletePrefix))
		if !ok {
			return b.answer(cq, "That task is gone")
		}
		if err := b.answer(cq, ""); err != nil {
			return err
		}
		return b.askDeleteConfirmation(chatID, task)
	case strings.HasPrefix(data, cbConfirmPrefix):
		id := strings.TrimPrefix(data, cbConfirmPrefix)
		task, _ := b.store.Task(id)
		if err := b.store.RemoveTask(ctx, id); err != nil {
			_ = b.answer(cq, "Could not delete the task")
			return err
		}
		if err := b.answer(cq, "Deleted"); err != nil {
			return err
		}
		return b.sendText(chatID, fmt.Sprintf("🗑 Deleted <b>%s</b>.", escape(task.Title)))
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.answer(cq, "Kept")
	default:
		return b.answer(cq, "")
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text))
	return err
}

// onChange forwards persistence state changes to the owner.
func (b *Bot) onChange(c service.Change) {
	if b.owner == 0 {
		return
	}
	var text string
	switch c.Kind {
	case service.ChangePersistenceDegraded:
		text = "⚠️ Saving failed. Your changes are kept and will be retried. /status for details."
	case service.ChangePersistenceRecovered:
		text = "✅ All pending changes are saved."
	default:
		return
	}
	if err := b.sendText(b.owner, text); err != nil {
		b.logger.Warn("send persistence notice", zap.Error(err))
	}
}

func (b *Bot) pick(chatID int64, args string) (string, error) {
	b.mu.Lock()
	ids := b.listings[chatID]
	b.mu.Unlock()
	i, err := parseIndex(args, len(ids))
	if err != nil {
		return "", err
	}
	return ids[i], nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func openTasks(tasks []model.Task) []model.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if !t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

func toggledText(task model.Task) string {
	if task.IsCompleted() {
		return fmt.Sprintf("✅ <b>%s</b> done.", escape(task.Title))
	}
	return fmt.Sprintf("↩️ <b>%s</b> reopened.", escape(task.Title))
}

// userMessage keeps the chat free of wrapped storage internals.
func userMessage(err error) string {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}

func shortTitle(title string) string {
	const limit = 24
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
