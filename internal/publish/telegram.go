// Package publish delivers stream snapshots to messaging platforms.
// The Telegram sink edits one chat message in place as the document
// grows, rolls over to a fresh message when the API length limit is
// reached, and upgrades the final text to Telegram HTML.
package publish

import (
	"fmt"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/samsaffron/streammd/internal/stream"
)

// telegramMessageLimit keeps edits under Telegram's 4096-char cap with
// margin for the streaming cursor and entity overhead.
const telegramMessageLimit = 4000

const (
	placeholderText = "⏳"
	streamingCursor = "▌"
)

// Sender is the bot API subset the sink uses. *tgbotapi.BotAPI
// satisfies it; tests supply a fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram publishes snapshots into a single chat by editing a message
// in place. Methods are not safe for concurrent use; the stream driver
// calls them from one goroutine.
type Telegram struct {
	bot      Sender
	chatID   int64
	interval time.Duration // minimum delay between streaming edits

	doc      string // latest snapshot received
	winStart int    // offset where the current message window begins
	msgID    int    // message being edited; 0 until one exists
	lastEdit time.Time
	finished bool
	firstErr error
}

func NewTelegram(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, interval: 500 * time.Millisecond}
}

// Placeholder sends the initial hourglass message so the chat shows
// activity before the first snapshot arrives.
func (t *Telegram) Placeholder() error {
	msg, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, placeholderText))
	if err != nil {
		return fmt.Errorf("send placeholder: %w", err)
	}
	t.msgID = msg.MessageID
	return nil
}

// Publish edits the current message with the new snapshot. Edits are
// throttled; a skipped snapshot is superseded by the next one or by the
// final flush in Finish.
func (t *Telegram) Publish(p stream.Publication) {
	t.doc = p.Markdown
	if time.Since(t.lastEdit) < t.interval {
		return
	}
	t.flush(false)
}

// Finish delivers the last snapshot without the streaming cursor,
// upgraded to Telegram HTML when the conversion fits a single message.
// A failed run additionally reports the error as its own message.
func (t *Telegram) Finish(err error) {
	if t.finished {
		return
	}
	t.finished = true

	switch {
	case t.doc != "":
		t.flush(true)
	case t.msgID != 0:
		// A placeholder went out but the run produced nothing.
		t.edit("(no response)", "")
	}

	if err != nil {
		_, _ = t.bot.Send(tgbotapi.NewMessage(t.chatID, "Sorry, an error occurred: "+err.Error()))
	}
}

// Err reports the first failure to create a chat message. Edit errors
// are not tracked: rate-limited or duplicate edits are superseded by
// the next flush.
func (t *Telegram) Err() error {
	return t.firstErr
}

func (t *Telegram) flush(final bool) {
	window := t.doc[t.winStart:]

	// Freeze the current message at the limit and continue the document
	// in a fresh one.
	for len(window) > telegramMessageLimit {
		cut := splitPoint(window, telegramMessageLimit)
		t.edit(window[:cut], "")
		t.winStart += cut
		t.msgID = 0
		window = t.doc[t.winStart:]
	}

	body, mode := window+streamingCursor, ""
	if final {
		body, mode = window, ""
		if h := TelegramHTML(window); len(h) <= telegramMessageLimit {
			body, mode = h, tgbotapi.ModeHTML
		}
	}
	t.edit(body, mode)
	t.lastEdit = time.Now()
}

func (t *Telegram) edit(text, parseMode string) {
	if t.msgID == 0 {
		msg, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, placeholderText))
		if err != nil {
			if t.firstErr == nil {
				t.firstErr = err
			}
			return
		}
		t.msgID = msg.MessageID
	}

	e := tgbotapi.NewEditMessageText(t.chatID, t.msgID, text)
	e.ParseMode = parseMode
	_, _ = t.bot.Send(e) // rate-limit errors are superseded by the next edit
}

// splitPoint backs the cut off to a rune boundary so a frozen message
// never ends mid-rune.
func splitPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
