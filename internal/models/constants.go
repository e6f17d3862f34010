package models

const (
	// ContextSeparator joins per-source answers in cross-class mode.
	ContextSeparator = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

var (
	AnswerSystemPrompt = "You are a helpful assistant. Answer the question using only the supplied context. " +
		"If the context does not contain the answer, say so."
	BriefAnswerSystemPrompt = AnswerSystemPrompt + " Respond in 2-4 lines."

	AnswerPromptTemplate = `Answer the question based on the following context:

%s

Question: %s`

	TitleSystemPrompt = "Produce a concise informative title for the text supplied by the user. " +
		"Respond with the title only, without quotes or trailing punctuation."
)
