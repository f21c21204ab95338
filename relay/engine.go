package relay

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"relaybot/core/logger"
	"relaybot/relay/correlation"
	"relaybot/relay/scratch"
	"relaybot/relay/session"
)

// TextEvent is a plain text message from a user.
type TextEvent struct {
	UserID int64
	Handle string
	Text   string
}

// DocumentEvent is a document attached by a user.
type DocumentEvent struct {
	UserID   int64
	Handle   string
	FileID   string
	FileName string
	FileSize int64
}

// AdminReplyEvent is an organizer's /reply command issued in the admin channel.
type AdminReplyEvent struct {
	SenderID int64
	// ChatID is the chat the command arrived from. Message IDs are per-chat,
	// so only replies issued inside the admin channel can be resolved.
	ChatID int64
	// ReplyToMessageID references the forwarded message being answered; zero
	// when the command was not issued as a reply.
	ReplyToMessageID int
	// Text is the command payload with the /reply token already stripped.
	Text string
}

// Options carries the engine's configuration slice.
type Options struct {
	// AdminChatID is the admin channel all forwards go to.
	AdminChatID int64
	// IsAdmin reports whether a user is in the organizer allow-set.
	// Nil denies everyone.
	IsAdmin func(userID int64) bool
	// MaxFileSize bounds direct document submissions in bytes.
	MaxFileSize int64
}

// Engine implements the relay's conversation flows: per-user session
// advancement, forwarding into the admin channel with correlation recording,
// and routing organizer replies back to users.
//
// Every handler returns the reply text for the initiating party. Session and
// correlation state is only advanced after the corresponding outbound send
// succeeded, so a failed forward leaves everything as if it was never tried.
type Engine struct {
	opts         Options
	sessions     *session.Store
	correlations *correlation.Store
	downloads    *scratch.Dir
	transport    Transport
}

// NewEngine wires the engine with its stores and outbound transport.
func NewEngine(opts Options, sessions *session.Store, correlations *correlation.Store, downloads *scratch.Dir, transport Transport) *Engine {
	return &Engine{
		opts:         opts,
		sessions:     sessions,
		correlations: correlations,
		downloads:    downloads,
		transport:    transport,
	}
}

// Start handles /start: touches the session and returns the welcome text.
func (e *Engine) Start(ctx context.Context, userID int64) string {
	e.sessions.Get(userID)
	logger.Debug(ctx, "relay", "start",
		slog.Int64("user_id", userID),
	)
	return msgWelcome
}

// Help handles /help: flags the user so their next text message is treated
// as a question regardless of stage.
func (e *Engine) Help(ctx context.Context, userID int64) string {
	e.sessions.SetAwaitingQuestion(userID, true)
	logger.Debug(ctx, "relay", "question.awaiting",
		slog.Int64("user_id", userID),
	)
	return msgAskQuestion
}

// Text routes a plain text message through the session state machine.
func (e *Engine) Text(ctx context.Context, ev TextEvent) string {
	sess := e.sessions.Get(ev.UserID)

	if sess.AwaitingQuestion {
		return e.forwardQuestion(ctx, ev)
	}
	if sess.Stage == session.StageAwaitingLargeFileLink && isLink(ev.Text) {
		return e.forwardLink(ctx, ev, sess)
	}

	switch sess.Stage {
	case session.StageNew:
		name := strings.TrimSpace(ev.Text)
		// Unregistered commands fall through to the text handler, and an
		// empty name would wedge the set-once display name.
		if name == "" || strings.HasPrefix(name, "/") || isLink(name) {
			return msgNameFirst
		}
		e.sessions.SetDisplayName(ev.UserID, name)
		e.sessions.SetStage(ev.UserID, session.StageNameCollected)
		logger.Info(ctx, "relay", "name.collected",
			slog.Int64("user_id", ev.UserID),
			slog.String("stage", session.StageNameCollected.String()),
		)
		return msgNameSaved
	case session.StageNameCollected:
		if isLink(ev.Text) {
			return msgLinkHint
		}
		return msgSendFileHint
	case session.StageAwaitingLargeFileLink:
		return msgSendLinkReminder
	case session.StageSubmitted:
		return msgSticky
	default:
		return msgSendFileHint
	}
}

// Document runs the submission forwarder for an attached file.
func (e *Engine) Document(ctx context.Context, ev DocumentEvent) string {
	sess := e.sessions.Get(ev.UserID)

	if sess.DisplayName == "" {
		return msgNameFirst
	}

	if ev.FileSize > e.opts.MaxFileSize {
		e.sessions.SetStage(ev.UserID, session.StageAwaitingLargeFileLink)
		logger.Info(ctx, "relay", "document.too_large",
			slog.Int64("user_id", ev.UserID),
			slog.String("file_name", ev.FileName),
			slog.Int64("file_size", ev.FileSize),
		)
		return fmt.Sprintf(msgFileTooLargeFmt, e.opts.MaxFileSize/(1024*1024))
	}

	content, err := e.transport.FileContent(ev.FileID)
	if err != nil {
		logger.Error(ctx, "relay", "document.download_failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("file_name", ev.FileName),
			slog.String("err", err.Error()),
		)
		return msgDownloadFailed
	}
	defer content.Close()

	path, err := e.downloads.Save(ev.UserID, ev.FileName, content)
	if err != nil {
		logger.Error(ctx, "relay", "document.stage_failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("file_name", ev.FileName),
			slog.String("err", err.Error()),
		)
		return msgDownloadFailed
	}

	caption := fmt.Sprintf("Submission from %s (@%s) (id %d)", sess.DisplayName, handleOr(ev.Handle), ev.UserID)
	msgID, err := e.transport.SendDocumentToChannel(path, ev.FileName, caption)
	if err != nil {
		logger.Error(ctx, "relay", "forward.failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("category", correlation.CategorySubmission.String()),
			slog.String("err", err.Error()),
		)
		return msgSendFailed
	}

	e.correlations.Put(msgID, ev.UserID, correlation.CategorySubmission)
	e.sessions.SetStage(ev.UserID, session.StageSubmitted)
	logger.Info(ctx, "relay", "forward.sent",
		slog.Int64("user_id", ev.UserID),
		slog.String("category", correlation.CategorySubmission.String()),
		slog.Int("msg_id", msgID),
		slog.String("file_name", ev.FileName),
	)
	return msgSubmissionReceived
}

// AdminReply resolves an organizer's /reply against the correlation store and
// delivers the answer to the originating user.
func (e *Engine) AdminReply(ctx context.Context, ev AdminReplyEvent) string {
	if !e.isAdmin(ev.SenderID) {
		logger.Warn(ctx, "relay", "reply.unauthorized",
			slog.Int64("user_id", ev.SenderID),
		)
		return msgNotOrganizer
	}
	if ev.ChatID != e.opts.AdminChatID || ev.ReplyToMessageID == 0 {
		return msgReplyGuide
	}

	entry, ok := e.correlations.Get(ev.ReplyToMessageID)
	if !ok {
		logger.Warn(ctx, "relay", "reply.unresolved",
			slog.Int("msg_id", ev.ReplyToMessageID),
		)
		return msgTargetNotFound
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return msgReplyTextRequired
	}

	label := labelSubmissionReply
	if entry.Category == correlation.CategoryQuestion {
		label = labelQuestionReply
	}
	if err := e.transport.SendToUser(entry.UserID, label+text); err != nil {
		logger.Error(ctx, "relay", "reply.failed",
			slog.Int("msg_id", ev.ReplyToMessageID),
			slog.Int64("target_user_id", entry.UserID),
			slog.String("err", err.Error()),
		)
		return msgSendFailed
	}

	logger.Info(ctx, "relay", "reply.sent",
		slog.Int("msg_id", ev.ReplyToMessageID),
		slog.Int64("target_user_id", entry.UserID),
		slog.String("category", entry.Category.String()),
	)
	return msgReplySent
}

// forwardQuestion sends the pending question into the admin channel. The
// awaiting flag is cleared whether or not the forward succeeds.
func (e *Engine) forwardQuestion(ctx context.Context, ev TextEvent) string {
	defer e.sessions.SetAwaitingQuestion(ev.UserID, false)

	msgID, err := e.transport.SendToChannel(fmt.Sprintf("Question from @%s: %s", handleOr(ev.Handle), ev.Text))
	if err != nil {
		logger.Error(ctx, "relay", "forward.failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("category", correlation.CategoryQuestion.String()),
			slog.String("err", err.Error()),
		)
		return msgSendFailed
	}

	e.correlations.Put(msgID, ev.UserID, correlation.CategoryQuestion)
	logger.Info(ctx, "relay", "forward.sent",
		slog.Int64("user_id", ev.UserID),
		slog.String("category", correlation.CategoryQuestion.String()),
		slog.Int("msg_id", msgID),
	)
	return msgQuestionSent
}

// forwardLink sends a large-file link notice into the admin channel.
func (e *Engine) forwardLink(ctx context.Context, ev TextEvent, sess session.Session) string {
	notice := fmt.Sprintf("File link from %s (@%s): %s", sess.DisplayName, handleOr(ev.Handle), ev.Text)
	msgID, err := e.transport.SendToChannel(notice)
	if err != nil {
		logger.Error(ctx, "relay", "forward.failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("category", correlation.CategorySubmission.String()),
			slog.String("err", err.Error()),
		)
		return msgSendFailed
	}

	e.correlations.Put(msgID, ev.UserID, correlation.CategorySubmission)
	e.sessions.SetStage(ev.UserID, session.StageSubmitted)
	logger.Info(ctx, "relay", "forward.sent",
		slog.Int64("user_id", ev.UserID),
		slog.String("category", correlation.CategorySubmission.String()),
		slog.Int("msg_id", msgID),
	)
	return msgLinkReceived
}

func (e *Engine) isAdmin(userID int64) bool {
	return e.opts.IsAdmin != nil && e.opts.IsAdmin(userID)
}

func isLink(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}

func handleOr(handle string) string {
	if strings.TrimSpace(handle) == "" {
		return unknownHandle
	}
	return handle
}
