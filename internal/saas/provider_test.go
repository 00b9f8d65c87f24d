package saas

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

func testProvider(t *testing.T, templates map[string]string) *Provider {
	t.Helper()
	dir := ""
	if templates != nil {
		dir = t.TempDir()
		for id, body := range templates {
			require.NoError(t, os.WriteFile(filepath.Join(dir, id+".tmpl"), []byte(body), 0o600))
		}
	}
	store := state.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewProvider(NewOutbox(store), dir)
}

func TestSendEmail(t *testing.T) {
	p := testProvider(t, nil)
	ctx := context.Background()

	result, err := p.SendEmail(ctx, &saas.SendEmailRequest{
		From:    "noreply@example.com",
		To:      []string{"user@example.com"},
		Subject: "Welcome",
		Body:    "Hello!",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.MessageID)
	assert.Equal(t, saas.StatusSent, result.Status)

	status, err := p.GetEmailStatus(ctx, result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, saas.StatusSent, status)
}

func TestSendEmailValidation(t *testing.T) {
	p := testProvider(t, nil)
	ctx := context.Background()

	cases := []*saas.SendEmailRequest{
		{From: "not-an-address", To: []string{"user@example.com"}, Subject: "s", Body: "b"},
		{From: "a@example.com", To: []string{"broken@"}, Subject: "s", Body: "b"},
		{From: "a@example.com", Subject: "s", Body: "b"},
		{From: "a@example.com", To: []string{"u@example.com"}, Body: "b"},
		{From: "a@example.com", To: []string{"u@example.com"}, Subject: "s"},
	}
	for _, req := range cases {
		_, err := p.SendEmail(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestSendEmailTemplate(t *testing.T) {
	p := testProvider(t, map[string]string{
		"welcome": "Subject: Hi {{.name}}\n\nWelcome aboard, {{.name}}.",
	})
	ctx := context.Background()

	result, err := p.SendEmailTemplate(ctx, &saas.SendEmailTemplateRequest{
		From:       "noreply@example.com",
		To:         []string{"user@example.com"},
		TemplateID: "welcome",
		Data:       map[string]string{"name": "Ada"},
	})
	require.NoError(t, err)

	msg, err := p.outbox.Get(ctx, result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", msg.Subject)
	assert.Equal(t, "Welcome aboard, Ada.", msg.Body)
}

func TestSendEmailTemplateMissing(t *testing.T) {
	p := testProvider(t, map[string]string{})
	_, err := p.SendEmailTemplate(context.Background(), &saas.SendEmailTemplateRequest{
		From:       "a@example.com",
		To:         []string{"u@example.com"},
		TemplateID: "nope",
	})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestSendSMS(t *testing.T) {
	p := testProvider(t, nil)
	ctx := context.Background()

	result, err := p.SendSMS(ctx, &saas.SendSMSRequest{
		From: "+14155550100",
		To:   []string{"+491701234567"},
		Body: "Your code is 123456",
	})
	require.NoError(t, err)
	assert.Equal(t, saas.StatusSent, result.Status)

	status, err := p.GetSMSStatus(ctx, result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, saas.StatusSent, status)
}

func TestSendSMSValidation(t *testing.T) {
	p := testProvider(t, nil)
	ctx := context.Background()

	_, err := p.SendSMS(ctx, &saas.SendSMSRequest{To: []string{"0170 1234567"}, Body: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.SendSMS(ctx, &saas.SendSMSRequest{To: []string{"+491701234567"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.SendSMS(ctx, &saas.SendSMSRequest{Body: "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendSMSTemplate(t *testing.T) {
	p := testProvider(t, map[string]string{
		"otp": "{{.service}} code: {{.code}}",
	})

	result, err := p.SendSMSTemplate(context.Background(), &saas.SendSMSTemplateRequest{
		To:         []string{"+491701234567"},
		TemplateID: "otp",
		Data:       map[string]string{"service": "Example", "code": "9876"},
	})
	require.NoError(t, err)

	msg, err := p.outbox.Get(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Example code: 9876", msg.Body)
}

func TestStatusKindMismatch(t *testing.T) {
	p := testProvider(t, nil)
	ctx := context.Background()

	result, err := p.SendSMS(ctx, &saas.SendSMSRequest{To: []string{"+491701234567"}, Body: "x"})
	require.NoError(t, err)

	// An SMS ID is not visible through the email status lookup.
	_, err = p.GetEmailStatus(ctx, result.MessageID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = p.GetSMSStatus(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
