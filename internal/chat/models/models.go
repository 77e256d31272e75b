package models

import (
	"fmt"
	"strings"

	quotamodels "folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/validation"
)

const (
	MsgMessageRequired = "Message is required"
	MsgChatFailed      = "Failed to get response from AI"
	MsgNoResponse      = "No response generated"

	// CannedResponse is returned when no model is configured.
	CannedResponse = "The AI chat feature requires an API key to be configured. Please check out the dashboard tab to explore the data visually!"
)

// ThrottleMessage is the reply shown once the hourly limit is reached.
func ThrottleMessage(limit, resetInMinutes int) string {
	unit := "minutes"
	if resetInMinutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("You've reached the chat limit (%d messages per hour). Try again in %d %s!", limit, resetInMinutes, unit)
}

type ChatRequest struct {
	Message string `json:"message"`
}

// Normalize trims the message and caps it at MaxChatMessageRunes.
func (r *ChatRequest) Normalize() {
	if r == nil {
		return
	}
	r.Message = validation.Truncate(strings.TrimSpace(r.Message), validation.MaxChatMessageRunes)
}

func (r *ChatRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Message) == "" {
		return dErrors.New(dErrors.CodeBadRequest, MsgMessageRequired)
	}
	return nil
}

type ChatResponse struct {
	Response string `json:"response"`
}

type RateLimitedResponse struct {
	Response    string `json:"response"`
	RateLimited bool   `json:"rateLimited"`
	ResetIn     int    `json:"resetIn"`
}

// Result is the service's answer. Decision is nil for canned replies, which
// never touch the quota.
type Result struct {
	Decision *quotamodels.Decision
	Reply    string
	Canned   bool
}
