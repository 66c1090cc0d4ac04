// Package telegram implements the transport.Adapter contract on top of the
// Telegram Bot API via telebot.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"herald/internal/transport"
	"herald/pkg/logx"
)

type Config struct {
	Token string
}

// Adapter is a thin, send-only wrapper around telebot.
// The broadcaster never long-polls for updates; recipient intake is handled
// by a separate bot deployment.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// Identity returns the bot account this adapter sends as.
func (a *Adapter) Identity() transport.BotIdentity {
	me := a.bot.Me
	if me == nil {
		return transport.BotIdentity{}
	}
	return transport.BotIdentity{ID: me.ID, Username: me.Username, Name: me.FirstName}
}

func (a *Adapter) SendText(ctx context.Context, to transport.Target, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	if opt == nil {
		opt = &transport.SendOptions{}
	}

	sendOpt := &tele.SendOptions{
		ParseMode: opt.ParseMode,
		Protected: opt.Protect,
	}
	if rm := markup(opt.Buttons); rm != nil {
		sendOpt.ReplyMarkup = rm
	}

	msg, err := a.bot.Send(tele.ChatID(to.ChatID), text, sendOpt)
	if err != nil {
		return transport.MessageRef{}, err
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}, nil
}

func (a *Adapter) SendAlbum(ctx context.Context, to transport.Target, items []transport.MediaItem, opt *transport.SendOptions) ([]transport.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if opt == nil {
		opt = &transport.SendOptions{}
	}

	album := make(tele.Album, 0, len(items))
	for _, it := range items {
		file := tele.File{FileID: it.Ref}
		switch it.Kind {
		case transport.MediaVideo:
			album = append(album, &tele.Video{File: file, Caption: it.Caption})
		default:
			album = append(album, &tele.Photo{File: file, Caption: it.Caption})
		}
	}

	msgs, err := a.bot.SendAlbum(tele.ChatID(to.ChatID), album, &tele.SendOptions{
		ParseMode: opt.ParseMode,
		Protected: opt.Protect,
	})
	if err != nil {
		return nil, err
	}

	refs := make([]transport.MessageRef, 0, len(msgs))
	for _, m := range msgs {
		refs = append(refs, transport.MessageRef{ChatID: to.ChatID, MessageID: m.ID})
	}
	return refs, nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return a.bot.Delete(&tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	})
}

func (a *Adapter) SendDocument(ctx context.Context, to transport.Target, payload []byte, filename, caption string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(payload)),
		FileName: filename,
		Caption:  caption,
	}
	_, err := a.bot.Send(tele.ChatID(to.ChatID), doc)
	return err
}

func (a *Adapter) FileMetadata(ctx context.Context, ref string) (transport.FileInfo, error) {
	if err := ctxErr(ctx); err != nil {
		return transport.FileInfo{}, err
	}
	f, err := a.bot.FileByID(ref)
	if err != nil {
		return transport.FileInfo{}, err
	}
	return transport.FileInfo{Path: f.FilePath, Size: int64(f.FileSize)}, nil
}

// markup converts URL buttons to an inline keyboard, one button per row.
func markup(buttons []transport.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rm := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tele.Row{tele.Btn{Text: b.Text, URL: b.URL}})
	}
	rm.Inline(rows...)
	return rm
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
