package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	to, subject, body []string
}

func (r *recordingProvider) SendEmail(_ context.Context, email, subject, message string) error {
	r.to = append(r.to, email)
	r.subject = append(r.subject, subject)
	r.body = append(r.body, message)
	return nil
}

func TestNotificationService(t *testing.T) {
	rec := &recordingProvider{}
	svc := NewNotificationService(rec, "ops@example.com")
	ctx := context.Background()

	require.NoError(t, svc.SendEmail(ctx, "user@example.com", "Deposit received", "pending review"))
	require.NoError(t, svc.NotifyAdmin(ctx, "New deposit", "check it"))
	assert.Equal(t, []string{"user@example.com", "ops@example.com"}, rec.to)

	assert.Error(t, svc.SendEmail(ctx, "not-an-address", "x", "y"))
	assert.Len(t, rec.to, 2)

	none := NewNotificationService(nil, "")
	assert.ErrorIs(t, none.SendEmail(ctx, "user@example.com", "x", "y"), ErrEmailNotConfigured)
	assert.NoError(t, none.NotifyAdmin(ctx, "x", "y"))
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("a@x.io", "b@x.io", "Hello", "line1\nline2"))
	assert.True(t, strings.HasPrefix(msg, "From: a@x.io\r\nTo: b@x.io\r\nSubject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}
