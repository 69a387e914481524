package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottled_PassesThrough(t *testing.T) {
	var gotPrompt string
	var gotAttachments []Attachment
	inner := ClientFunc(func(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
		gotPrompt = prompt
		gotAttachments = attachments
		return `{"action":"DECIDE"}`, nil
	})

	c := NewThrottled(inner, ratelimit.New(0), "turn")
	out, err := c.Generate(context.Background(), "hello", []Attachment{{MIMEType: "image/png", Data: []byte{1}}})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"DECIDE"}`, out)
	assert.Equal(t, "hello", gotPrompt)
	require.Len(t, gotAttachments, 1)
	assert.Equal(t, "image/png", gotAttachments[0].MIMEType)
}

func TestThrottled_PropagatesErrors(t *testing.T) {
	boom := errors.New("quota")
	c := NewThrottled(ClientFunc(func(context.Context, string, []Attachment) (string, error) {
		return "", boom
	}), ratelimit.New(0), "extract")

	_, err := c.Generate(context.Background(), "p", nil)
	assert.ErrorIs(t, err, boom)
}

func TestThrottled_StopsWhenContextDone(t *testing.T) {
	calls := 0
	c := NewThrottled(ClientFunc(func(context.Context, string, []Attachment) (string, error) {
		calls++
		return "{}", nil
	}), ratelimit.New(1), "turn")

	_, err := c.Generate(context.Background(), "first", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, "second", nil)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
