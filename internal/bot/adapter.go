package bot

import (
	"context"
	"fmt"
	"io"
	"strings"

	tghelpers "shopbot/core/telegram/helpers"
	"shopbot/core/telegram/keyboard"
	"shopbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// fsmAdapter bridges the transport-facing FSM interface to the dialogue engine.
type fsmAdapter struct {
	engine *conversation.Engine
}

func (f *fsmAdapter) InProgress(userID int64) bool {
	return f.engine.InProgress(context.Background(), userID)
}

// ManagerHandler feeds the update bound to the user's current state into the
// engine and renders its reply.
func (f *fsmAdapter) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	ev, closer, err := eventFrom(c)
	if err != nil {
		return tghelpers.SendText(c, "Could not read that photo, try sending it again.")
	}
	if closer != nil {
		defer closer.Close()
	}

	reply, err := f.engine.Handle(ctx, userID, ev)
	if err != nil {
		return err
	}
	return sendReply(c, reply)
}

// eventFrom narrows a Telegram update to a dialogue event. Photos are
// downloaded through the Bot API so the engine can stream them to the
// upload endpoint.
func eventFrom(c tele.Context) (conversation.Event, io.Closer, error) {
	msg := c.Message()
	if msg != nil && msg.Photo != nil {
		rc, err := c.Bot().File(&msg.Photo.File)
		if err != nil {
			return nil, nil, fmt.Errorf("photo download: %w", err)
		}
		name := msg.Photo.File.UniqueID
		if name == "" {
			name = msg.Photo.File.FileID
		}
		return conversation.Photo{Name: name + ".jpg", Data: rc}, rc, nil
	}
	return conversation.Text{Body: c.Text()}, nil, nil
}

// sendReply renders a dialogue reply, attaching inline buttons when present.
func sendReply(c tele.Context, reply conversation.Reply) error {
	if reply.Text == "" {
		return nil
	}
	markup := buttonsMarkup(reply.Buttons)
	if markup == nil && reply.ClearKeyboard {
		markup = keyboard.RemoveKeyboard()
	}
	if markup != nil {
		return tghelpers.SendText(c, reply.Text, &tele.SendOptions{ReplyMarkup: markup})
	}
	return tghelpers.SendText(c, reply.Text)
}

func buttonsMarkup(rows [][]conversation.ReplyButton) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	btnRows := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			unique, data := splitToken(b.Token)
			r = append(r, keyboard.InlineBtn{Text: b.Label, Unique: unique, Data: data})
		}
		btnRows = append(btnRows, r)
	}
	return keyboard.InlineButtonsRows(btnRows...)
}

// splitToken separates a dialogue button token into callback unique and payload.
func splitToken(token string) (string, string) {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return token, ""
}
