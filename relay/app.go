// Package relay implements the user/organizer relay: users introduce
// themselves and submit work or questions, the bot forwards everything into a
// single admin channel, and organizers answer with /reply on the forwarded
// messages.
package relay

import (
	"context"
	"fmt"

	"relaybot/core/cmd"
	coreconfig "relaybot/core/config"
	"relaybot/core/logger"
	coretelegram "relaybot/core/telegram"
	"relaybot/core/telegram/commands"
	tghelpers "relaybot/core/telegram/helpers"
	"relaybot/core/telegram/router"
	"relaybot/relay/correlation"
	"relaybot/relay/scratch"
	"relaybot/relay/session"

	tele "gopkg.in/telebot.v4"
)

// App bundles the engine with its configuration and the live bot transport.
type App struct {
	cfg       *coreconfig.Config
	engine    *Engine
	transport *botTransport
}

type configCarrier struct {
	cfg *coreconfig.Config
}

func (c configCarrier) CoreConfig() *coreconfig.Config { return c.cfg }

// LoadConfig loads and validates configuration for cmd.Run.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return configCarrier{cfg: cfg}, nil
}

// Bootstrap initializes logging, the relay stores, and the engine.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("relay: logger init failed: %w", err)
	}

	correlations, err := correlation.NewStore(cfg.Relay.CorrelationCapacity)
	if err != nil {
		return nil, fmt.Errorf("relay: correlation store init failed: %w", err)
	}

	transport := newBotTransport(cfg.Telegram.AdminChatID)
	engine := NewEngine(
		Options{
			AdminChatID: cfg.Telegram.AdminChatID,
			IsAdmin:     cfg.Telegram.IsAdmin,
			MaxFileSize: cfg.Relay.MaxFileSizeBytes(),
		},
		session.NewStore(),
		correlations,
		scratch.New(cfg.Relay.DownloadsDir),
		transport,
	)

	return &App{cfg: cfg, engine: engine, transport: transport}, nil
}

// TelegramRunOptions assembles commands, routes, and middleware for the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Introduce yourself and submit your work",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Ask the organizers a question",
	})
	reg.RegisterCommand("/reply", commands.Command{
		Handler:     a.handleReply,
		Description: "Reply to a forwarded submission or question",
		AdminOnly:   true,
		Hidden:      true,
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Allow: a.cfg.Telegram.IsAdmin,
		OnAdminReject: func(c tele.Context) error {
			return tghelpers.SendText(c, msgNotOrganizer)
		},
	})
	routes = append(routes, router.TextRoutes(router.TextOptions{
		Text:     a.handleText,
		Document: a.handleDocument,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.transport.bind(rt.Bot)
			return nil
		},
	}, nil
}

func (a *App) handleStart(c tele.Context) error {
	if a.fromAdminChannel(c) {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "start")
	return tghelpers.SendText(c, a.engine.Start(ctx, c.Sender().ID))
}

func (a *App) handleHelp(c tele.Context) error {
	if a.fromAdminChannel(c) {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "help")
	return tghelpers.SendText(c, a.engine.Help(ctx, c.Sender().ID))
}

func (a *App) handleReply(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "reply")
	msg := c.Message()
	ev := AdminReplyEvent{
		SenderID: c.Sender().ID,
		Text:     msg.Payload,
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if msg.ReplyTo != nil {
		ev.ReplyToMessageID = msg.ReplyTo.ID
	}
	return tghelpers.SendText(c, a.engine.AdminReply(ctx, ev))
}

func (a *App) handleText(c tele.Context) error {
	// Chatter in the admin channel is not part of any user flow.
	if a.fromAdminChannel(c) {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "text")
	reply := a.engine.Text(ctx, TextEvent{
		UserID: c.Sender().ID,
		Handle: c.Sender().Username,
		Text:   c.Text(),
	})
	return tghelpers.SendText(c, reply)
}

func (a *App) handleDocument(c tele.Context) error {
	if a.fromAdminChannel(c) {
		return nil
	}
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "document")
	reply := a.engine.Document(ctx, DocumentEvent{
		UserID:   c.Sender().ID,
		Handle:   c.Sender().Username,
		FileID:   doc.FileID,
		FileName: doc.FileName,
		FileSize: doc.FileSize,
	})
	return tghelpers.SendText(c, reply)
}

func (a *App) fromAdminChannel(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.ID == a.cfg.Telegram.AdminChatID
}
