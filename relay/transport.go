package relay

import (
	"fmt"
	"io"

	tele "gopkg.in/telebot.v4"
)

// Transport is the outbound surface the engine needs from the messaging
// layer. Production wraps a live telebot instance; tests substitute a fake.
type Transport interface {
	// SendToUser delivers plain text to a user's private chat.
	SendToUser(userID int64, text string) error
	// SendToChannel posts text into the admin channel and returns the new message ID.
	SendToChannel(text string) (int, error)
	// SendDocumentToChannel uploads a staged file into the admin channel and
	// returns the new message ID.
	SendDocumentToChannel(path, filename, caption string) (int, error)
	// FileContent retrieves the raw content of a transport-held file.
	FileContent(fileID string) (io.ReadCloser, error)
}

// botTransport implements Transport over telebot. The bot handle only exists
// after the runtime started, so it is bound from the OnStart hook.
type botTransport struct {
	bot       *tele.Bot
	adminChat tele.ChatID
}

func newBotTransport(adminChatID int64) *botTransport {
	return &botTransport{adminChat: tele.ChatID(adminChatID)}
}

func (t *botTransport) bind(bot *tele.Bot) {
	t.bot = bot
}

func (t *botTransport) ready() error {
	if t.bot == nil {
		return fmt.Errorf("relay: transport not bound to a bot")
	}
	return nil
}

func (t *botTransport) SendToUser(userID int64, text string) error {
	if err := t.ready(); err != nil {
		return err
	}
	_, err := t.bot.Send(tele.ChatID(userID), text)
	return err
}

func (t *botTransport) SendToChannel(text string) (int, error) {
	if err := t.ready(); err != nil {
		return 0, err
	}
	msg, err := t.bot.Send(t.adminChat, text)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *botTransport) SendDocumentToChannel(path, filename, caption string) (int, error) {
	if err := t.ready(); err != nil {
		return 0, err
	}
	doc := &tele.Document{
		File:     tele.FromDisk(path),
		FileName: filename,
		Caption:  caption,
	}
	msg, err := t.bot.Send(t.adminChat, doc)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *botTransport) FileContent(fileID string) (io.ReadCloser, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.bot.File(&tele.File{FileID: fileID})
}
