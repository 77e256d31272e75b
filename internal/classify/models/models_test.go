package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "folio/pkg/domain-errors"
)

func TestClassifyRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     *ClassifyRequest
		code    dErrors.Code
		message string
	}{
		{"nil request", nil, dErrors.CodeBadRequest, MsgNoImage},
		{"blank image", &ClassifyRequest{Image: "  ", TurnstileToken: "t"}, dErrors.CodeBadRequest, MsgNoImage},
		{"missing token", &ClassifyRequest{Image: "abc"}, dErrors.CodeBadRequest, MsgVerificationMissing},
		{"oversized token", &ClassifyRequest{Image: "abc", TurnstileToken: strings.Repeat("x", 2049)}, dErrors.CodeVerificationFailed, MsgVerificationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			assert.True(t, dErrors.HasCode(err, tt.code))
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	ok := &ClassifyRequest{Image: " data:image/png;base64,AAA ", TurnstileToken: " tok "}
	ok.Normalize()
	assert.NoError(t, ok.Validate())
	assert.Equal(t, "tok", ok.TurnstileToken)
}

func TestLimitReachedMessage(t *testing.T) {
	assert.Equal(t, "Daily limit reached (5 checks per day). Come back tomorrow!", LimitReachedMessage(5))
}
