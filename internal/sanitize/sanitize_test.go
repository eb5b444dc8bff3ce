package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unsentboard/unsent-backend/internal/domain"
)

func validRequest() domain.SubmitMemoryRequest {
	return domain.SubmitMemoryRequest{
		Recipient: "the one who left",
		Message:   "I never said what I meant to say.",
		Sender:    "me",
		Color:     "rose",
		Animation: "cursive",
	}
}

func TestSanitize_ValidPayload(t *testing.T) {
	result := Sanitize(validRequest())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "rose", result.Sanitized.Color)
	assert.Equal(t, "cursive", result.Sanitized.Animation)
}

func TestSanitize_RequiredFields(t *testing.T) {
	result := Sanitize(domain.SubmitMemoryRequest{})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "recipient is required")
	assert.Contains(t, result.Errors, "message is required")
}

func TestSanitize_WhitespaceOnlyIsEmpty(t *testing.T) {
	req := validRequest()
	req.Message = "   \t  "

	result := Sanitize(req)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "message is required")
}

func TestSanitize_StripsControlCharacters(t *testing.T) {
	req := validRequest()
	req.Message = "hello\x00world\x07 kept\nnewline"

	result := Sanitize(req)

	assert.True(t, result.Valid)
	assert.NotContains(t, result.Sanitized.Message, "\x00")
	assert.NotContains(t, result.Sanitized.Message, "\x07")
	assert.Contains(t, result.Sanitized.Message, "\n")
}

func TestSanitize_CollapsesWhitespaceRuns(t *testing.T) {
	req := validRequest()
	req.Recipient = "dear    old     friend"

	result := Sanitize(req)

	assert.True(t, result.Valid)
	assert.Equal(t, "dear old friend", result.Sanitized.Recipient)
}

func TestSanitize_WordLimit(t *testing.T) {
	req := validRequest()
	req.Message = strings.TrimSpace(strings.Repeat("word ", MaxWords+1))

	result := Sanitize(req)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "word limit")
}

func TestSanitize_ExactWordLimitPasses(t *testing.T) {
	req := validRequest()
	req.Message = strings.TrimSpace(strings.Repeat("word ", MaxWords))

	result := Sanitize(req)

	assert.True(t, result.Valid)
}

func TestSanitize_OversizedTokenRejected(t *testing.T) {
	// A 60-char unspaced blob is one "word" but must not slip through.
	req := validRequest()
	req.Message = "short " + strings.Repeat("a", 60) + " short"

	result := Sanitize(req)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "exceeds 15 characters")
}

func TestSanitize_PunctuationDoesNotCountTowardTokenLength(t *testing.T) {
	req := validRequest()
	req.Message = `"extraordinarily"...` // 15 letters plus punctuation

	result := Sanitize(req)

	assert.True(t, result.Valid)
}

func TestSanitize_InjectionPatterns(t *testing.T) {
	cases := []string{
		"<script>alert(1)</script>",
		"click javascript:void(0)",
		"x'; DROP TABLE memories",
		"a UNION SELECT password",
		"{$where: 'sleep(100)'}",
	}
	for _, msg := range cases {
		req := validRequest()
		req.Message = msg

		result := Sanitize(req)

		assert.False(t, result.Valid, "expected rejection for %q", msg)
		assert.Contains(t, result.Errors, "content contains a disallowed pattern")
	}
}

func TestSanitize_UnknownColorAndAnimationDowngrade(t *testing.T) {
	req := validRequest()
	req.Color = "neon-green"
	req.Animation = "spinning"

	result := Sanitize(req)

	assert.True(t, result.Valid)
	assert.Equal(t, DefaultColor, result.Sanitized.Color)
	assert.Equal(t, DefaultAnimation, result.Sanitized.Animation)
}

func TestSanitize_TruncatesLongFields(t *testing.T) {
	req := validRequest()
	req.Recipient = strings.Repeat("r", MaxRecipientLen+50)
	req.Sender = strings.Repeat("s", MaxSenderLen+10)

	result := Sanitize(req)

	assert.True(t, result.Valid)
	assert.Len(t, []rune(result.Sanitized.Recipient), MaxRecipientLen)
	assert.Len(t, []rune(result.Sanitized.Sender), MaxSenderLen)
}
