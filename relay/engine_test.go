package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	coreconfig "relaybot/core/config"
	"relaybot/relay/correlation"
	"relaybot/relay/scratch"
	"relaybot/relay/session"
)

const (
	testMaxFileSize = 20 * 1024 * 1024
	testAdminChat   = int64(-100500)
)

type sentDoc struct {
	path     string
	filename string
	caption  string
}

// fakeTransport records outbound traffic and hands out sequential message IDs.
type fakeTransport struct {
	nextMsgID int

	channelTexts []string
	channelDocs  []sentDoc
	userMsgs     map[int64][]string

	files map[string]string

	failChannel error
	failUser    error
	failFile    error

	fileRequests int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		userMsgs: make(map[int64][]string),
		files:    make(map[string]string),
	}
}

func (t *fakeTransport) SendToUser(userID int64, text string) error {
	if t.failUser != nil {
		return t.failUser
	}
	t.userMsgs[userID] = append(t.userMsgs[userID], text)
	return nil
}

func (t *fakeTransport) SendToChannel(text string) (int, error) {
	if t.failChannel != nil {
		return 0, t.failChannel
	}
	t.nextMsgID++
	t.channelTexts = append(t.channelTexts, text)
	return t.nextMsgID, nil
}

func (t *fakeTransport) SendDocumentToChannel(path, filename, caption string) (int, error) {
	if t.failChannel != nil {
		return 0, t.failChannel
	}
	t.nextMsgID++
	t.channelDocs = append(t.channelDocs, sentDoc{path: path, filename: filename, caption: caption})
	return t.nextMsgID, nil
}

func (t *fakeTransport) FileContent(fileID string) (io.ReadCloser, error) {
	t.fileRequests++
	if t.failFile != nil {
		return nil, t.failFile
	}
	content, ok := t.files[fileID]
	if !ok {
		return nil, errors.New("unknown file id")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func newTestEngine(t *testing.T, transport *fakeTransport) *Engine {
	t.Helper()
	correlations, err := correlation.NewStore(16)
	if err != nil {
		t.Fatalf("correlation.NewStore: %v", err)
	}
	return NewEngine(
		Options{
			AdminChatID: testAdminChat,
			IsAdmin:     coreconfig.TelegramConfig{AdminIDs: []int64{42}}.IsAdmin,
			MaxFileSize: testMaxFileSize,
		},
		session.NewStore(),
		correlations,
		scratch.New(t.TempDir()),
		transport,
	)
}

func TestSubmissionFlow(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.files["doc-1"] = "essay body"
	e := newTestEngine(t, tr)

	if got := e.Start(ctx, 100); got != msgWelcome {
		t.Fatalf("Start = %q", got)
	}
	if got := e.Text(ctx, TextEvent{UserID: 100, Handle: "alice", Text: "Alice Liddell"}); got != msgNameSaved {
		t.Fatalf("name reply = %q", got)
	}
	got := e.Document(ctx, DocumentEvent{
		UserID: 100, Handle: "alice", FileID: "doc-1", FileName: "essay.pdf", FileSize: 1024,
	})
	if got != msgSubmissionReceived {
		t.Fatalf("document reply = %q", got)
	}

	if len(tr.channelDocs) != 1 {
		t.Fatalf("channel docs = %d", len(tr.channelDocs))
	}
	doc := tr.channelDocs[0]
	if doc.filename != "essay.pdf" {
		t.Fatalf("forwarded filename = %q", doc.filename)
	}
	for _, want := range []string{"Alice Liddell", "@alice", "100"} {
		if !strings.Contains(doc.caption, want) {
			t.Fatalf("caption %q missing %q", doc.caption, want)
		}
	}
	data, err := os.ReadFile(doc.path)
	if err != nil {
		t.Fatalf("staged file: %v", err)
	}
	if string(data) != "essay body" {
		t.Fatalf("staged content = %q", data)
	}

	// Organizer answers on the forwarded message.
	reply := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "Looks great"})
	if reply != msgReplySent {
		t.Fatalf("AdminReply = %q", reply)
	}
	msgs := tr.userMsgs[100]
	if len(msgs) != 1 || msgs[0] != labelSubmissionReply+"Looks great" {
		t.Fatalf("user messages = %v", msgs)
	}
}

func TestQuestionFlow(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	if got := e.Help(ctx, 200); got != msgAskQuestion {
		t.Fatalf("Help = %q", got)
	}
	if got := e.Text(ctx, TextEvent{UserID: 200, Handle: "bob", Text: "When are results due?"}); got != msgQuestionSent {
		t.Fatalf("question reply = %q", got)
	}
	if len(tr.channelTexts) != 1 {
		t.Fatalf("channel texts = %d", len(tr.channelTexts))
	}
	if want := "Question from @bob: When are results due?"; tr.channelTexts[0] != want {
		t.Fatalf("forwarded question = %q", tr.channelTexts[0])
	}

	// The question flag is one-shot: the next text goes through the stage flow.
	if got := e.Text(ctx, TextEvent{UserID: 200, Handle: "bob", Text: "Bob Builder"}); got != msgNameSaved {
		t.Fatalf("post-question text reply = %q", got)
	}

	reply := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "Friday"})
	if reply != msgReplySent {
		t.Fatalf("AdminReply = %q", reply)
	}
	msgs := tr.userMsgs[200]
	if len(msgs) != 1 || msgs[0] != labelQuestionReply+"Friday" {
		t.Fatalf("user messages = %v", msgs)
	}
}

func TestLargeFileLinkFlow(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Text(ctx, TextEvent{UserID: 300, Handle: "carol", Text: "Carol Danvers"})

	got := e.Document(ctx, DocumentEvent{
		UserID: 300, Handle: "carol", FileID: "big", FileName: "thesis.pdf", FileSize: testMaxFileSize + 1,
	})
	if got != fmt.Sprintf(msgFileTooLargeFmt, 20) {
		t.Fatalf("oversized reply = %q", got)
	}
	if tr.fileRequests != 0 {
		t.Fatalf("oversized document was downloaded")
	}

	if got := e.Text(ctx, TextEvent{UserID: 300, Handle: "carol", Text: "it is on my drive"}); got != msgSendLinkReminder {
		t.Fatalf("non-link reply = %q", got)
	}

	got = e.Text(ctx, TextEvent{UserID: 300, Handle: "carol", Text: "https://drive.example/thesis"})
	if got != msgLinkReceived {
		t.Fatalf("link reply = %q", got)
	}
	if len(tr.channelTexts) != 1 {
		t.Fatalf("channel texts = %d", len(tr.channelTexts))
	}
	notice := tr.channelTexts[0]
	for _, want := range []string{"Carol Danvers", "@carol", "https://drive.example/thesis"} {
		if !strings.Contains(notice, want) {
			t.Fatalf("link notice %q missing %q", notice, want)
		}
	}

	reply := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "Received"})
	if reply != msgReplySent {
		t.Fatalf("AdminReply = %q", reply)
	}
	if msgs := tr.userMsgs[300]; len(msgs) != 1 || msgs[0] != labelSubmissionReply+"Received" {
		t.Fatalf("user messages = %v", msgs)
	}
}

func TestNameRequiredFirst(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	if got := e.Text(ctx, TextEvent{UserID: 400, Text: "https://example.com/work"}); got != msgNameFirst {
		t.Fatalf("link at start = %q", got)
	}
	if got := e.Document(ctx, DocumentEvent{UserID: 400, FileID: "d", FileName: "w.pdf", FileSize: 10}); got != msgNameFirst {
		t.Fatalf("document at start = %q", got)
	}
	if len(tr.channelTexts) != 0 || len(tr.channelDocs) != 0 {
		t.Fatalf("something was forwarded before a name was collected")
	}
}

func TestLinkBeforeOversizedFileIsNotForwarded(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Text(ctx, TextEvent{UserID: 450, Handle: "dan", Text: "Dan Abnett"})
	if got := e.Text(ctx, TextEvent{UserID: 450, Handle: "dan", Text: "https://example.com/work"}); got != msgLinkHint {
		t.Fatalf("early link reply = %q", got)
	}
	if len(tr.channelTexts) != 0 {
		t.Fatalf("early link was forwarded")
	}
}

func TestTextAfterSubmissionIsSticky(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.files["doc-1"] = "x"
	e := newTestEngine(t, tr)

	e.Text(ctx, TextEvent{UserID: 500, Handle: "eve", Text: "Eve Online"})
	e.Document(ctx, DocumentEvent{UserID: 500, Handle: "eve", FileID: "doc-1", FileName: "a.pdf", FileSize: 1})

	if got := e.Text(ctx, TextEvent{UserID: 500, Handle: "eve", Text: "hello?"}); got != msgSticky {
		t.Fatalf("post-submission text = %q", got)
	}
	// But a fresh document starts another forward.
	if got := e.Document(ctx, DocumentEvent{UserID: 500, Handle: "eve", FileID: "doc-1", FileName: "b.pdf", FileSize: 1}); got != msgSubmissionReceived {
		t.Fatalf("re-submission = %q", got)
	}
	if len(tr.channelDocs) != 2 {
		t.Fatalf("channel docs = %d", len(tr.channelDocs))
	}
}

func TestQuestionForwardFailure(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.failChannel = errors.New("network down")
	e := newTestEngine(t, tr)

	e.Help(ctx, 600)
	if got := e.Text(ctx, TextEvent{UserID: 600, Handle: "fay", Text: "anyone there?"}); got != msgSendFailed {
		t.Fatalf("failed question = %q", got)
	}

	// The flag is cleared even on failure, so the next text is a name.
	tr.failChannel = nil
	if got := e.Text(ctx, TextEvent{UserID: 600, Handle: "fay", Text: "Fay Wray"}); got != msgNameSaved {
		t.Fatalf("text after failed question = %q", got)
	}
}

func TestDocumentForwardFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.files["doc-1"] = "x"
	tr.failChannel = errors.New("network down")
	e := newTestEngine(t, tr)

	e.Text(ctx, TextEvent{UserID: 700, Handle: "gus", Text: "Gus Fring"})
	if got := e.Document(ctx, DocumentEvent{UserID: 700, Handle: "gus", FileID: "doc-1", FileName: "a.pdf", FileSize: 1}); got != msgSendFailed {
		t.Fatalf("failed forward = %q", got)
	}

	// Stage did not advance: a retry is still a plain submission, not sticky.
	tr.failChannel = nil
	if got := e.Document(ctx, DocumentEvent{UserID: 700, Handle: "gus", FileID: "doc-1", FileName: "a.pdf", FileSize: 1}); got != msgSubmissionReceived {
		t.Fatalf("retry = %q", got)
	}
}

func TestDocumentDownloadFailure(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.failFile = errors.New("file gone")
	e := newTestEngine(t, tr)

	e.Text(ctx, TextEvent{UserID: 750, Handle: "hal", Text: "Hal Jordan"})
	if got := e.Document(ctx, DocumentEvent{UserID: 750, Handle: "hal", FileID: "doc-1", FileName: "a.pdf", FileSize: 1}); got != msgDownloadFailed {
		t.Fatalf("download failure = %q", got)
	}
	if len(tr.channelDocs) != 0 {
		t.Fatalf("failed download still forwarded")
	}
}

func TestAdminReplyValidation(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Help(ctx, 800)
	e.Text(ctx, TextEvent{UserID: 800, Handle: "ivy", Text: "question?"})

	cases := []struct {
		name string
		ev   AdminReplyEvent
		want string
	}{
		{"unauthorized", AdminReplyEvent{SenderID: 7, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "hi"}, msgNotOrganizer},
		{"no reply reference", AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, Text: "hi"}, msgReplyGuide},
		{"unknown message", AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 999, Text: "hi"}, msgTargetNotFound},
		{"empty text", AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "   "}, msgReplyTextRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.AdminReply(ctx, tc.ev); got != tc.want {
				t.Fatalf("AdminReply = %q, want %q", got, tc.want)
			}
		})
	}
	if len(tr.userMsgs) != 0 {
		t.Fatalf("rejected replies still reached users: %v", tr.userMsgs)
	}
}

func TestAdminReplyDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Help(ctx, 900)
	e.Text(ctx, TextEvent{UserID: 900, Handle: "joe", Text: "question?"})

	tr.failUser = errors.New("blocked the bot")
	if got := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "answer"}); got != msgSendFailed {
		t.Fatalf("AdminReply = %q", got)
	}

	// The correlation survives a failed delivery and can be retried.
	tr.failUser = nil
	if got := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: testAdminChat, ReplyToMessageID: 1, Text: "answer"}); got != msgReplySent {
		t.Fatalf("retry = %q", got)
	}
}

func TestHandleFallsBackWhenMissing(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Help(ctx, 950)
	if got := e.Text(ctx, TextEvent{UserID: 950, Handle: "", Text: "no username here"}); got != msgQuestionSent {
		t.Fatalf("question reply = %q", got)
	}
	if !strings.Contains(tr.channelTexts[0], "@"+unknownHandle) {
		t.Fatalf("forwarded question %q missing fallback handle", tr.channelTexts[0])
	}
}

func TestNameCaptureRejectsCommandText(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	// Unregistered commands reach the text handler; they are not names.
	if got := e.Text(ctx, TextEvent{UserID: 960, Handle: "kim", Text: "/unknowncmd"}); got != msgNameFirst {
		t.Fatalf("command text reply = %q", got)
	}
	if got := e.Text(ctx, TextEvent{UserID: 960, Handle: "kim", Text: "Kim Wexler"}); got != msgNameSaved {
		t.Fatalf("name after command = %q", got)
	}
}

func TestBlankNameDoesNotWedgeSession(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	tr.files["doc-1"] = "x"
	e := newTestEngine(t, tr)

	if got := e.Text(ctx, TextEvent{UserID: 970, Handle: "lou", Text: "   "}); got != msgNameFirst {
		t.Fatalf("blank name reply = %q", got)
	}
	// The stage did not advance, so a real name still goes through and the
	// submission flow works end to end.
	if got := e.Text(ctx, TextEvent{UserID: 970, Handle: "lou", Text: "Lou Reed"}); got != msgNameSaved {
		t.Fatalf("name retry = %q", got)
	}
	if got := e.Document(ctx, DocumentEvent{UserID: 970, Handle: "lou", FileID: "doc-1", FileName: "a.pdf", FileSize: 1}); got != msgSubmissionReceived {
		t.Fatalf("document after retry = %q", got)
	}
}

func TestOversizeReplyUsesConfiguredLimit(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	correlations, err := correlation.NewStore(16)
	if err != nil {
		t.Fatalf("correlation.NewStore: %v", err)
	}
	e := NewEngine(
		Options{AdminChatID: testAdminChat, MaxFileSize: 5 * 1024 * 1024},
		session.NewStore(),
		correlations,
		scratch.New(t.TempDir()),
		tr,
	)

	e.Text(ctx, TextEvent{UserID: 980, Handle: "mia", Text: "Mia Hamm"})
	got := e.Document(ctx, DocumentEvent{UserID: 980, Handle: "mia", FileID: "big", FileName: "t.pdf", FileSize: 6 * 1024 * 1024})
	if got != fmt.Sprintf(msgFileTooLargeFmt, 5) {
		t.Fatalf("oversized reply = %q", got)
	}
}

func TestReplyOutsideAdminChannelIsNotResolved(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	e := newTestEngine(t, tr)

	e.Help(ctx, 990)
	e.Text(ctx, TextEvent{UserID: 990, Handle: "ned", Text: "question?"})

	// Message IDs are per-chat: a reply to message 1 in the organizer's
	// private bot chat must not resolve against the admin-channel entry.
	got := e.AdminReply(ctx, AdminReplyEvent{SenderID: 42, ChatID: 42, ReplyToMessageID: 1, Text: "answer"})
	if got != msgReplyGuide {
		t.Fatalf("reply outside channel = %q", got)
	}
	if len(tr.userMsgs) != 0 {
		t.Fatalf("reply outside channel reached a user: %v", tr.userMsgs)
	}
}
