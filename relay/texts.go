package relay

// User-facing reply texts. Kept in one place so the wording can be reviewed
// without digging through the flows.
const (
	msgWelcome = "Hi! We are the organizers. Please send your full name first, " +
		"then attach the file with your work (Word or PDF) or send a link to it."

	msgAskQuestion = "Please write your question in the next message."

	msgNameSaved = "Thank you! Your name has been saved. " +
		"Now send the file with your work or a link to the file."
	msgNameFirst    = "Please send your full name as a text message first."
	msgSendFileHint = "You have already sent your name. Please attach the file with your work, or send a link to it."
	msgLinkHint     = "Links are accepted once a file turned out to be too large. " +
		"Please attach the file with your work instead."
	msgSendLinkReminder = "Please send a link to your file (starting with http:// or https://)."

	msgFileTooLargeFmt = "Unfortunately we cannot receive files larger than %d MB. " +
		"You can send a version without images, or share a link to the file instead."
	msgSubmissionReceived = "Thank you, your work has been sent to the organizers. " +
		"They will review it within 1-2 days and get back to you."
	msgLinkReceived = "Thank you, your link has been sent to the organizers."
	msgSticky       = "If you want to ask the organizers a question, use /help. " +
		"If you want to submit your work again, attach a new file. " +
		"Plain messages here are not delivered."

	msgQuestionSent = "Your question has been sent to the organizers. Please wait for an answer."

	msgNotOrganizer      = "You are not an organizer and cannot send replies."
	msgReplyGuide        = "Reply to a forwarded message in the group first, then use /reply to deliver feedback."
	msgTargetNotFound    = "Could not find the user to reply to."
	msgReplyTextRequired = "Provide the reply text after the /reply command."
	msgReplySent         = "Reply delivered."

	msgSendFailed     = "Something went wrong while sending. Please try again later."
	msgDownloadFailed = "Something went wrong while processing your file. Please try again later."

	labelQuestionReply   = "Answer to your question: "
	labelSubmissionReply = "Organizers' reply: "

	unknownHandle = "unknown"
)
