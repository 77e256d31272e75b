package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	dErrors "folio/pkg/domain-errors"
)

func TestChatRequestNormalize(t *testing.T) {
	long := strings.Repeat("é", 700)
	req := &ChatRequest{Message: "  " + long + "  "}
	req.Normalize()
	assert.Equal(t, 600, utf8.RuneCountInString(req.Message))
	assert.True(t, utf8.ValidString(req.Message))

	short := &ChatRequest{Message: " how far did I run? "}
	short.Normalize()
	assert.Equal(t, "how far did I run?", short.Message)
}

func TestChatRequestValidate(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t"} {
		req := &ChatRequest{Message: msg}
		req.Normalize()
		err := req.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.Equal(t, MsgMessageRequired, err.Error())
	}
	var nilReq *ChatRequest
	assert.Error(t, nilReq.Validate())
	assert.NoError(t, (&ChatRequest{Message: "hi"}).Validate())
}

func TestThrottleMessage(t *testing.T) {
	assert.Equal(t, "You've reached the chat limit (10 messages per hour). Try again in 42 minutes!", ThrottleMessage(10, 42))
	assert.Contains(t, ThrottleMessage(10, 1), "1 minute!")
}
