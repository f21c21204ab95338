package router

import (
	"time"

	tg "relaybot/core/telegram"
	"relaybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions binds handlers for plain text and document updates.
type TextOptions struct {
	Text     tele.HandlerFunc
	Document tele.HandlerFunc
}

// TextRoutes builds the routes for text and document updates with
// recover/logging middleware and a per-update handler summary line.
func TextRoutes(opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if opts.Text == nil {
			logHandlerSummary(c, "text", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "text", start, "", "", func() error {
			return opts.Text(c)
		})
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Document == nil {
			logHandlerSummary(c, "document", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "document", start, "", "", func() error {
			return opts.Document(c)
		})
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
