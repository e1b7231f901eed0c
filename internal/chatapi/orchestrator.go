package chatapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fabfab/faqvec/internal/search"
)

const (
	hitsPerQuery        = 5
	maxAnswerCharacters = 2000
)

// Orchestrator answers a chat question by retrieving grounded hits from
// the Search API, assembling a prompt from them plus conversation
// history, and forwarding it to a ChatClient. It also records every turn
// to conversation history and archives a transcript of each reply.
type Orchestrator struct {
	searchAPI *search.API
	llm       ChatClient
	history   *HistoryStore
}

// NewOrchestrator constructs an Orchestrator wired to the given
// collaborators.
func NewOrchestrator(searchAPI *search.API, llm ChatClient, history *HistoryStore) *Orchestrator {
	return &Orchestrator{searchAPI: searchAPI, llm: llm, history: history}
}

// Ask answers question within the given conversation: it retrieves
// grounded hits, asks the ChatClient for a reply, and persists both the
// user's question and the assistant's answer to conversation history.
func (o *Orchestrator) Ask(ctx context.Context, conversationID, question string) (answer string, hits []search.Hit, err error) {
	hits, err = o.searchAPI.Search(ctx, question, hitsPerQuery)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve grounding hits: %w", err)
	}

	now := time.Now().UTC()
	userMsg := Message{Role: "user", Content: question, Timestamp: now}
	if err := o.history.AppendMessage(conversationID, userMsg); err != nil {
		return "", nil, fmt.Errorf("store user message: %w", err)
	}

	past, err := o.history.LoadHistory(conversationID)
	if err != nil {
		return "", nil, fmt.Errorf("load conversation history: %w", err)
	}

	messages := buildPrompt(past, hits)

	answer, err = o.llm.Generate(ctx, messages)
	if err != nil {
		return "", nil, fmt.Errorf("generate response: %w", err)
	}

	assistantTimestamp := time.Now().UTC()
	assistantMsg := Message{Role: "assistant", Content: answer, Timestamp: assistantTimestamp}
	if err := o.history.AppendMessage(conversationID, assistantMsg); err != nil {
		return "", nil, fmt.Errorf("store assistant message: %w", err)
	}

	groundedOn := make([]string, 0, len(hits))
	for _, h := range hits {
		groundedOn = append(groundedOn, fmt.Sprintf("[%d] %s", h.PayloadIndex, h.Question))
	}
	if _, err := o.history.SaveTranscript(conversationID, answer, groundedOn, assistantTimestamp); err != nil {
		return "", nil, fmt.Errorf("save transcript: %w", err)
	}

	return answer, hits, nil
}

// buildPrompt assembles the message list sent to the ChatClient: a system
// message listing the retrieved QA pairs the reply must be grounded in,
// followed by the full conversation history (the just-appended question
// included).
func buildPrompt(history []Message, hits []search.Hit) []ChatMessage {
	var sb strings.Builder
	sb.WriteString("You are a support assistant. Answer the user's question using only the information below; ")
	sb.WriteString("if the retrieved entries don't cover the question, say you don't know rather than guessing.\n\n")

	if len(hits) == 0 {
		sb.WriteString("No matching entries were found for this question.")
	} else {
		sb.WriteString("Retrieved entries:\n")
		for _, h := range hits {
			answer := h.Answer
			if len(answer) > maxAnswerCharacters {
				answer = answer[:maxAnswerCharacters]
			}
			sb.WriteString(fmt.Sprintf("- Q: %s\n  A: %s\n", h.Question, answer))
		}
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: sb.String()})
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return messages
}
