package models

// Stream event types emitted on the ask SSE stream.
const (
	EventToken   = "token"
	EventSources = "sources"
	EventDone    = "done"
	EventError   = "error"
)

var (
	QAPromptTemplate = `You are an expert Q&A assistant. Your task is to answer the user's question based *only* on the provided text context.

Follow these rules STRICTLY:
1. Read the context carefully.
2. Formulate a concise answer to the question using ONLY the information from the context.
3. Do NOT copy-paste the context. Summarize and rephrase the information in your own words.
4. If the answer cannot be found in the context, you MUST reply with "I'm sorry, the answer to that question is not in the provided document."

CONTEXT:
---
%s
---

QUESTION: %s

ANSWER:`
)
