// Package transport defines the messaging-platform contract consumed by the
// broadcast engine. The telegram subpackage provides the production adapter.
package transport

import (
	"context"
	"strings"
)

// Target addresses one chat on the messaging platform.
type Target struct {
	ChatID int64
}

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// MediaItem is one album entry. Ref is the platform's file reference.
// Only the first item of an album may carry a caption.
type MediaItem struct {
	Kind    MediaKind
	Ref     string
	Caption string
}

// Button is an inline URL button attached to a message.
type Button struct {
	Text string
	URL  string
}

const ModeHTML = "HTML"

// SendOptions carries per-send flags shared by all send calls.
type SendOptions struct {
	ParseMode string
	// Protect forbids forwarding/saving of the delivered message.
	Protect bool
	Buttons []Button
}

// MessageRef identifies a delivered message for later deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// FileInfo describes a platform-stored file.
type FileInfo struct {
	Path string
	Size int64
}

// BotIdentity is the transport account the broadcaster sends as.
type BotIdentity struct {
	ID       int64
	Username string
	Name     string
}

// Adapter is the outbound messaging surface.
//
// All methods are synchronous single attempts; retry and failure policy
// belong to the caller.
type Adapter interface {
	SendText(ctx context.Context, to Target, text string, opt *SendOptions) (MessageRef, error)
	SendAlbum(ctx context.Context, to Target, items []MediaItem, opt *SendOptions) ([]MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendDocument(ctx context.Context, to Target, payload []byte, filename, caption string) error
	FileMetadata(ctx context.Context, ref string) (FileInfo, error)
}

// IsPermanentlyUnreachable reports whether a transport error description
// means the recipient can never be reached again (they blocked the bot).
// Anything else, including "chat not found", is treated as transient.
func IsPermanentlyUnreachable(desc string) bool {
	return strings.Contains(desc, "bot was blocked by the user")
}
