package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/api"
)

// maxUploadSize bounds images fetched from Telegram for /upload.
const maxUploadSize = 10 * 1024 * 1024

func (b *Bot) handleExport(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) == 0 {
		b.reply(chatID, "Usage: /export <mp_id|all> formats=md,csv [scope=all|selected] [ids=a,b] "+
			"[page_size=N] [page_count=N] [title=on] [images=off] [links=off] [zip=name]")
		return
	}
	req := api.ExportRequest{
		MpID:        a.Arg(0),
		Scope:       api.ScopeAll,
		DocIDs:      SplitList(a.Get("ids")),
		Formats:     SplitList(strings.ToLower(a.Get("formats"))),
		AddTitle:    true,
		ZipFilename: a.Get("zip"),
	}
	if a.Has("scope") {
		req.Scope = strings.ToLower(a.Get("scope"))
	}
	if req.Scope != api.ScopeAll && req.Scope != api.ScopeSelected {
		b.reply(chatID, "scope must be all or selected.")
		return
	}
	if req.Scope == api.ScopeSelected && len(req.DocIDs) == 0 {
		b.reply(chatID, "Pass the article IDs with ids=a,b when exporting selected articles.")
		return
	}
	for _, opt := range []struct {
		key string
		dst *int
	}{{"page_size", &req.PageSize}, {"page_count", &req.PageCount}} {
		if !a.Has(opt.key) {
			continue
		}
		n, err := strconv.Atoi(a.Get(opt.key))
		if err != nil || n < 1 {
			b.reply(chatID, fmt.Sprintf("%s must be a positive number.", opt.key))
			return
		}
		*opt.dst = n
	}
	for _, opt := range []struct {
		key    string
		dst    *bool
		invert bool
	}{{"title", &req.AddTitle, false}, {"images", &req.RemoveImages, true}, {"links", &req.RemoveLinks, true}} {
		if !a.Has(opt.key) {
			continue
		}
		on, err := ParseSwitch(a.Get(opt.key))
		if err != nil {
			b.reply(chatID, fmt.Sprintf("%s: %v", opt.key, err))
			return
		}
		*opt.dst = on != opt.invert
	}
	if err := b.validator.Struct(req); err != nil {
		b.fail(ctx, chatID, "export articles", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if _, err := backend.ExportArticles(ctx, req); err != nil {
		b.fail(ctx, chatID, "export articles", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Export of %s started (%s). Use /exports %s to list the archives.",
		req.MpID, strings.Join(req.Formats, ", "), req.MpID))
}

func (b *Bot) handleExports(ctx context.Context, chatID int64, args string) {
	mpID := strings.TrimSpace(args)
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	list, err := a.ListExports(ctx, mpID)
	if err != nil {
		b.fail(ctx, chatID, "list exports", err)
		return
	}
	b.reply(chatID, FormatExports(list, mpID))
}

func (b *Bot) handleDownload(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /download <filename> [mp_id]")
		return
	}
	filename, mpID := fields[0], ""
	if len(fields) > 1 {
		mpID = fields[1]
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	file, err := a.DownloadExport(ctx, filename, mpID)
	if err != nil {
		b.fail(ctx, chatID, "download export", err)
		return
	}
	name := file.Name
	if name == "" {
		name = filename
	}
	b.sendDocument(chatID, name, file.Data, "")
}

// handleDelExport confirms with a button, or deletes right away when the
// last argument is "yes" or the names do not fit in a button.
func (b *Bot) handleDelExport(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /delexport <filename> [mp_id]")
		return
	}
	confirmed := len(fields) > 1 && fields[len(fields)-1] == "yes"
	if confirmed {
		fields = fields[:len(fields)-1]
	}
	filename, mpID := fields[0], ""
	if len(fields) > 1 {
		mpID = fields[1]
	}
	id := exportID(filename, mpID)
	if confirmed {
		b.deleteConfirmed(ctx, chatID, kindExport, id)
		return
	}
	if _, _, ok := b.authed(ctx, chatID); !ok {
		return
	}
	if len("del:"+kindExport+":"+id) > maxCallbackData {
		b.reply(chatID, fmt.Sprintf("Confirm with: /delexport %s yes", strings.Join(fields, " ")))
		return
	}
	b.askDelete(chatID, kindExport, id)
}

// handleUpload stores a photo or image document sent with the /upload
// caption and replies with its public URL.
func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}

	var fileID, name string
	switch {
	case msg.Document != nil:
		fileID, name = msg.Document.FileID, msg.Document.FileName
	case len(msg.Photo) > 0:
		// Telegram lists photo sizes smallest first.
		fileID, name = msg.Photo[len(msg.Photo)-1].FileID, "photo.jpg"
	default:
		b.reply(chatID, "Send a photo with the caption /upload.")
		return
	}
	if name == "" {
		name = "image" + path.Ext(fileID)
	}

	data, err := b.downloadTelegramFile(ctx, fileID)
	if err != nil {
		b.log.Error("download telegram file", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to read the image from Telegram.")
		return
	}
	url, err := a.UploadImage(ctx, name, bytes.NewReader(data))
	if err != nil {
		b.fail(ctx, chatID, "upload image", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Uploaded: %s\nUse it as avatar=%s", url, url))
}

func (b *Bot) downloadTelegramFile(ctx context.Context, fileID string) ([]byte, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := b.backend.HTTP().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("file larger than %d bytes", maxUploadSize)
	}
	return data, nil
}
