package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/unsentboard/unsent-backend/internal/domain"
)

// Field maxima after sanitization
const (
	MaxRecipientLen = 100
	MaxMessageLen   = 5000
	MaxSenderLen    = 50
	MaxTagLen       = 30

	// MaxTokenLen caps any single whitespace-delimited token. A 60-char
	// unspaced blob counts as one "word" but still gets rejected, which
	// defeats word-limit bypass by concatenation.
	MaxTokenLen = 15

	// MaxWords is the canonical word ceiling, enforced identically at
	// every entry point.
	MaxWords = 200

	DefaultColor     = "classic"
	DefaultAnimation = "none"
)

var allowedColors = map[string]bool{
	"classic": true,
	"rose":    true,
	"ocean":   true,
	"sunset":  true,
	"forest":  true,
	"lavender": true,
	"midnight": true,
}

var allowedAnimations = map[string]bool{
	"none":        true,
	"cursive":     true,
	"handwritten": true,
	"rough":       true,
}

// Textual injection patterns, checked lowercase. The stores use
// parameterized queries already; this is defense in depth.
var injectionPatterns = []string{
	"<script",
	"javascript:",
	"onerror=",
	"onload=",
	"drop table",
	"delete from",
	"insert into",
	"union select",
	"$where",
	"$regex",
	"--;",
	"'; ",
}

var whitespaceRun = regexp.MustCompile(`[ \t]{2,}`)

// Result is the validator outcome: either a sanitized payload or a list of
// field errors. Never both.
type Result struct {
	Valid     bool
	Errors    []string
	Sanitized domain.SubmitMemoryRequest
}

// Sanitize cleans and validates a raw submission payload. It never panics;
// every failure mode is reported through Result.Errors.
func Sanitize(raw domain.SubmitMemoryRequest) Result {
	var errs []string

	recipient := truncate(clean(raw.Recipient), MaxRecipientLen)
	message := truncate(clean(raw.Message), MaxMessageLen)
	sender := truncate(clean(raw.Sender), MaxSenderLen)
	tag := truncate(clean(raw.Tag), MaxTagLen)
	subTag := truncate(clean(raw.SubTag), MaxTagLen)

	if recipient == "" {
		errs = append(errs, "recipient is required")
	}
	if message == "" {
		errs = append(errs, "message is required")
	}

	if message != "" {
		if n := countWords(message); n > MaxWords {
			errs = append(errs, fmt.Sprintf("message exceeds the %d word limit (%d words)", MaxWords, n))
		}
		if tok := oversizedToken(message); tok != "" {
			errs = append(errs, fmt.Sprintf("word %q exceeds %d characters", shorten(tok), MaxTokenLen))
		}
	}

	for _, field := range []string{recipient, message, sender} {
		if pattern := matchInjection(field); pattern != "" {
			errs = append(errs, "content contains a disallowed pattern")
			break
		}
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	// Unknown presentation metadata downgrades silently rather than
	// rejecting the submission.
	color := strings.ToLower(strings.TrimSpace(raw.Color))
	if !allowedColors[color] {
		color = DefaultColor
	}
	animation := strings.ToLower(strings.TrimSpace(raw.Animation))
	if !allowedAnimations[animation] {
		animation = DefaultAnimation
	}

	return Result{
		Valid: true,
		Sanitized: domain.SubmitMemoryRequest{
			Recipient: recipient,
			Message:   message,
			Sender:    sender,
			Color:     color,
			Animation: animation,
			Tag:       tag,
			SubTag:    subTag,
			UserUUID:  strings.TrimSpace(raw.UserUUID),
		},
	}
}

// clean strips control characters and collapses excessive whitespace
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	out := whitespaceRun.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(out)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// oversizedToken returns the first whitespace-delimited token that, after
// stripping leading/trailing punctuation, exceeds MaxTokenLen runes.
func oversizedToken(s string) string {
	for _, tok := range strings.Fields(s) {
		trimmed := strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if len([]rune(trimmed)) > MaxTokenLen {
			return tok
		}
	}
	return ""
}

func matchInjection(s string) string {
	lower := strings.ToLower(s)
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func shorten(s string) string {
	runes := []rune(s)
	if len(runes) <= 20 {
		return s
	}
	return string(runes[:20]) + "..."
}
