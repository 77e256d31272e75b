package models

import (
	"fmt"
	"strings"

	quotamodels "folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/validation"
)

// Messages shown to the caller.
const (
	MsgNoImage             = "No image provided"
	MsgVerificationMissing = "CAPTCHA verification required"
	MsgVerificationFailed  = "CAPTCHA verification failed. Please try again."
	MsgNotConfigured       = "Image classification is not configured."
	MsgClassifyFailed      = "Failed to classify image. Please try again."
)

// LimitReachedMessage names the daily limit, e.g.
// "Daily limit reached (5 checks per day). Come back tomorrow!".
func LimitReachedMessage(limit int) string {
	return fmt.Sprintf("Daily limit reached (%d checks per day). Come back tomorrow!", limit)
}

type ClassifyRequest struct {
	// Image is a base64 payload, optionally as a data URL.
	Image          string `json:"image"`
	TurnstileToken string `json:"turnstileToken"`
}

func (r *ClassifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Image = strings.TrimSpace(r.Image)
	r.TurnstileToken = strings.TrimSpace(r.TurnstileToken)
}

func (r *ClassifyRequest) Validate() error {
	if r == nil || r.Image == "" {
		return dErrors.New(dErrors.CodeBadRequest, MsgNoImage)
	}
	if r.TurnstileToken == "" {
		return dErrors.New(dErrors.CodeBadRequest, MsgVerificationMissing)
	}
	if len(r.TurnstileToken) > validation.MaxVerificationTokenLength {
		return dErrors.New(dErrors.CodeVerificationFailed, MsgVerificationFailed)
	}
	return nil
}

type ClassifyResponse struct {
	Result          bool `json:"result"`
	RemainingChecks int  `json:"remainingChecks"`
}

// Result is what the service hands back to the transport. A denied Decision
// means no classification ran.
type Result struct {
	Decision *quotamodels.Decision
	Match    bool
}
