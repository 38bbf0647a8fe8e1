package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/api"
	"werss_bot/internal/model"
)

func (b *Bot) handleTasks(ctx context.Context, chatID int64, page int) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListTasks(ctx, pageOf(page, size))
	if err != nil {
		b.fail(ctx, chatID, "list message tasks", err)
		return
	}
	p := ListPage{Page: page, Size: size, Total: res.Total}
	labels := make([]string, len(res.List))
	payloads := make([]string, len(res.List))
	for i, t := range res.List {
		labels[i] = t.Title()
		payloads[i] = "task:" + t.ID.String()
	}
	rows := withPager(itemRows(labels, payloads), pagerRow(cmdTasks, p, ""))
	b.replyWithKeyboard(chatID, FormatTaskList(res.List, p), rows)
}

func (b *Bot) handleTask(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /task <id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	task, err := a.GetTask(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load message task", err)
		return
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		{button("Run", "run:"+id), button("Test run", "test:"+id)},
		{button("Delete", "ask:"+kindTask+":"+id)},
	}
	b.replyWithKeyboard(chatID, FormatTask(task, b.now()), rows)
}

func (b *Bot) handleAddTask(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Options) == 0 {
		b.reply(chatID, `Usage: /addtask name=.. cron="*/30 * * * *" [type=message|webhook] [template=..] [webhook=..] [mps=a,b] [status=on|off]`)
		return
	}
	in := api.MessageTaskInput{
		Status: model.TaskEnabled,
		MpsID:  "[]",
	}
	if msg := applyTaskOptions(&in, a); msg != "" {
		b.reply(chatID, msg)
		return
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "add message task", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	task, err := backend.CreateTask(ctx, in)
	if err != nil {
		b.fail(ctx, chatID, "add message task", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Message task added: #%s %s\nUse /applytasks to reload the backend schedule.", task.ID, in.Name))
}

func (b *Bot) handleEditTask(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) == 0 || len(a.Options) == 0 {
		b.reply(chatID, `Usage: /edittask <id> [name=..] [cron=".."] [type=message|webhook] [template=..] [webhook=..] [mps=a,b] [status=on|off]`)
		return
	}
	id := a.Arg(0)

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	task, err := backend.GetTask(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load message task", err)
		return
	}
	in := taskInput(task)
	if msg := applyTaskOptions(&in, a); msg != "" {
		b.reply(chatID, msg)
		return
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "update message task", err)
		return
	}
	if err := backend.UpdateTask(ctx, id, in); err != nil {
		b.fail(ctx, chatID, "update message task", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Message task #%s updated.\nUse /applytasks to reload the backend schedule.", id))
}

func (b *Bot) handleToggleTask(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /toggletask <id>")
		return
	}
	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	task, err := backend.GetTask(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load message task", err)
		return
	}
	in := taskInput(task)
	in.Status = model.TaskEnabled
	if task.Status == model.TaskEnabled {
		in.Status = model.TaskDisabled
	}
	if err := backend.UpdateTask(ctx, id, in); err != nil {
		b.fail(ctx, chatID, "update message task", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Message task #%s %s.\nUse /applytasks to reload the backend schedule.", id, enabledLabel(in.Status == model.TaskEnabled)))
}

func taskInput(t *model.MessageTask) api.MessageTaskInput {
	in := api.MessageTaskInput{
		Name:            t.Name,
		MessageType:     t.MessageType,
		MessageTemplate: t.MessageTemplate,
		WebHookURL:      t.WebHookURL,
		MpsID:           t.MpsID,
		CronExp:         t.CronExp,
		Status:          t.Status,
	}
	if in.MpsID == "" {
		in.MpsID = "[]"
	}
	return in
}

// applyTaskOptions copies the given options onto in. It returns a message for
// the user when an option cannot be parsed.
func applyTaskOptions(in *api.MessageTaskInput, a Args) string {
	if a.Has("name") {
		in.Name = a.Get("name")
	}
	if a.Has("template") {
		in.MessageTemplate = a.Get("template")
	}
	if a.Has("webhook") {
		in.WebHookURL = a.Get("webhook")
	}
	if a.Has("cron") {
		in.CronExp = strings.TrimSpace(a.Get("cron"))
	}
	if a.Has("type") {
		switch strings.ToLower(a.Get("type")) {
		case "message", strconv.Itoa(model.MessageTypeMessage):
			in.MessageType = model.MessageTypeMessage
		case "webhook", strconv.Itoa(model.MessageTypeWebhook):
			in.MessageType = model.MessageTypeWebhook
		default:
			return "type must be message or webhook."
		}
	}
	if a.Has("status") {
		on, err := ParseSwitch(a.Get("status"))
		if err != nil {
			return fmt.Sprintf("status: %v", err)
		}
		in.Status = model.TaskDisabled
		if on {
			in.Status = model.TaskEnabled
		}
	}
	if a.Has("mps") {
		mps, err := encodeMps(SplitList(a.Get("mps")))
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		in.MpsID = mps
	}
	return ""
}

func (b *Bot) handleRunTask(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /runtask <id> [test]")
		return
	}
	id := fields[0]
	test := len(fields) > 1 && strings.EqualFold(fields[1], "test")

	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if _, err := a.RunTask(ctx, id, test); err != nil {
		b.fail(ctx, chatID, "run message task", err)
		return
	}
	if test {
		b.reply(chatID, fmt.Sprintf("Test run of task #%s started.", id))
		return
	}
	b.reply(chatID, fmt.Sprintf("Task #%s started.", id))
}

func (b *Bot) handleApplyTasks(ctx context.Context, chatID int64) {
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if err := a.ApplyTasks(ctx); err != nil {
		b.fail(ctx, chatID, "reload message tasks", err)
		return
	}
	b.reply(chatID, "Message task schedule reloaded.")
}
