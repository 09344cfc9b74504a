package bot

import (
	"fmt"
	"strings"

	tg "shopbot/core/telegram"
	"shopbot/core/telegram/callbacks"
	"shopbot/core/telegram/commands"
	tghelpers "shopbot/core/telegram/helpers"
	"shopbot/internal/catalog"
	"shopbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

func (a *App) buildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Show your Telegram ID",
	})
	reg.RegisterCommand("/add", commands.Command{
		Handler:     a.handleAdd,
		Description: "Create a new catalog item",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current dialog",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/categories", commands.Command{
		Handler:     a.handleCategories,
		Description: "List catalog categories",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/setprice", commands.Command{
		Handler:     a.handleSetPrice,
		Description: "Change the price of an item",
		AdminOnly:   true,
	})

	// Dialogue buttons arrive as callbacks; every token maps to one Button
	// event for the engine.
	for _, key := range []string{
		conversation.TokenFlowSimple,
		conversation.TokenFlowComplex,
		conversation.TokenSkipPhoto,
		conversation.TokenAddMemory,
		conversation.TokenFinish,
		conversation.TokenCategory,
	} {
		_ = reg.RegisterCallback(key, a.handleDialogButton)
	}

	reg.SetTextFallback(a.handleUnknownText)
	return reg
}

func (a *App) handleStart(c tele.Context) error {
	from := c.Sender()
	if from == nil {
		return nil
	}
	greeting := fmt.Sprintf("Hello! Your Telegram ID: <b>%d</b>", from.ID)
	if a.isAdmin(c) {
		greeting += "\nUse /add to create a catalog item."
	}
	return tghelpers.SendHTML(c, greeting)
}

func (a *App) handleAdd(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := a.engine.Start(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return sendReply(c, reply)
}

func (a *App) handleCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := a.engine.Cancel(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return sendReply(c, reply)
}

func (a *App) handleCategories(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	cats, err := a.api.Categories(ctx)
	if err != nil {
		return tghelpers.SendText(c, fmt.Sprintf("Failed to load categories: %v", err))
	}
	options := catalog.FlattenCategories(cats)
	if len(options) == 0 {
		return tghelpers.SendText(c, "No categories yet.")
	}
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", opt.ID, opt.Label)
	}
	return tghelpers.SendText(c, strings.TrimRight(b.String(), "\n"))
}

func (a *App) handleSetPrice(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := a.engine.StartEdit(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return sendReply(c, reply)
}

// handleDialogButton forwards a pressed inline button into the engine.
func (a *App) handleDialogButton(c tele.Context) error {
	if !a.isAdmin(c) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	token := callbacks.CallbackKey(c)
	if payload := callbacks.CallbackPayload(c); payload != "" {
		token = token + "|" + payload
	}
	reply, err := a.engine.Handle(ctx, c.Sender().ID, conversation.Button{Token: token})
	if err != nil {
		return err
	}
	return sendReply(c, reply)
}

func (a *App) handleUnknownText(c tele.Context) error {
	if !a.isAdmin(c) {
		return nil
	}
	return tghelpers.SendText(c, "Unknown command. Use /add to create an item or /cancel to stop.")
}
