package saas

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

var (
	// ErrValidation is returned for malformed send requests.
	ErrValidation = errors.New("saas: invalid request")
	// ErrTemplateNotFound is returned for unknown template IDs.
	ErrTemplateNotFound = errors.New("saas: template not found")
)

// E.164: plus sign, then 8 to 15 digits.
var phoneRe = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Provider is the dev-mode email and SMS backend.
type Provider struct {
	outbox      *Outbox
	templateDir string

	mu        sync.Mutex
	templates map[string]*template.Template
}

// NewProvider creates the provider. templateDir may be empty, which
// disables template sends.
func NewProvider(outbox *Outbox, templateDir string) *Provider {
	return &Provider{
		outbox:      outbox,
		templateDir: templateDir,
		templates:   make(map[string]*template.Template),
	}
}

// SendEmail validates and records one email message.
func (p *Provider) SendEmail(ctx context.Context, req *saas.SendEmailRequest) (*saas.SendResult, error) {
	started := time.Now()
	result, err := p.sendEmail(ctx, req)
	metrics.ObserveOperation("saas", "send_email", err, time.Since(started))
	return result, err
}

func (p *Provider) sendEmail(ctx context.Context, req *saas.SendEmailRequest) (*saas.SendResult, error) {
	if err := validateEmailAddrs(req.From, req.To, req.Cc, req.Bcc); err != nil {
		return nil, err
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("%w: subject must not be empty", ErrValidation)
	}
	if req.Body == "" {
		return nil, fmt.Errorf("%w: body must not be empty", ErrValidation)
	}

	result, err := p.outbox.Record(ctx, &Message{
		Kind:     KindEmail,
		From:     req.From,
		To:       req.To,
		Cc:       req.Cc,
		Bcc:      req.Bcc,
		Subject:  req.Subject,
		Body:     req.Body,
		HTML:     req.HTML,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info().
		Str("message_id", result.MessageID).
		Str("subject", req.Subject).
		Int("recipients", len(req.To)).
		Msg("email accepted into outbox")
	return result, nil
}

// SendEmailTemplate renders the named template and sends the result. A
// template whose output starts with a "Subject:" line supplies the subject;
// otherwise the template ID is used.
func (p *Provider) SendEmailTemplate(ctx context.Context, req *saas.SendEmailTemplateRequest) (*saas.SendResult, error) {
	rendered, err := p.render(req.TemplateID, req.Data)
	if err != nil {
		return nil, err
	}
	subject, body := splitSubject(rendered)
	if subject == "" {
		subject = req.TemplateID
	}
	return p.SendEmail(ctx, &saas.SendEmailRequest{
		From:     req.From,
		To:       req.To,
		Subject:  subject,
		Body:     body,
		Metadata: req.Metadata,
	})
}

// GetEmailStatus looks up the delivery status of an email message.
func (p *Provider) GetEmailStatus(ctx context.Context, messageID string) (saas.DeliveryStatus, error) {
	return p.status(ctx, messageID, KindEmail)
}

// SendSMS validates and records one text message.
func (p *Provider) SendSMS(ctx context.Context, req *saas.SendSMSRequest) (*saas.SendResult, error) {
	started := time.Now()
	result, err := p.sendSMS(ctx, req)
	metrics.ObserveOperation("saas", "send_sms", err, time.Since(started))
	return result, err
}

func (p *Provider) sendSMS(ctx context.Context, req *saas.SendSMSRequest) (*saas.SendResult, error) {
	if len(req.To) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient required", ErrValidation)
	}
	for _, to := range req.To {
		if !phoneRe.MatchString(to) {
			return nil, fmt.Errorf("%w: %q is not an E.164 phone number", ErrValidation, to)
		}
	}
	if req.Body == "" {
		return nil, fmt.Errorf("%w: body must not be empty", ErrValidation)
	}

	result, err := p.outbox.Record(ctx, &Message{
		Kind:     KindSMS,
		From:     req.From,
		To:       req.To,
		Body:     req.Body,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info().
		Str("message_id", result.MessageID).
		Int("recipients", len(req.To)).
		Msg("sms accepted into outbox")
	return result, nil
}

// SendSMSTemplate renders the named template and sends the result.
func (p *Provider) SendSMSTemplate(ctx context.Context, req *saas.SendSMSTemplateRequest) (*saas.SendResult, error) {
	rendered, err := p.render(req.TemplateID, req.Data)
	if err != nil {
		return nil, err
	}
	return p.SendSMS(ctx, &saas.SendSMSRequest{
		From:     req.From,
		To:       req.To,
		Body:     strings.TrimSpace(rendered),
		Metadata: req.Metadata,
	})
}

// GetSMSStatus looks up the delivery status of a text message.
func (p *Provider) GetSMSStatus(ctx context.Context, messageID string) (saas.DeliveryStatus, error) {
	return p.status(ctx, messageID, KindSMS)
}

func (p *Provider) status(ctx context.Context, messageID, kind string) (saas.DeliveryStatus, error) {
	msg, err := p.outbox.Get(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.Kind != kind {
		return "", fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return msg.Status, nil
}

// render loads (and caches) the template and executes it with data.
func (p *Provider) render(templateID string, data map[string]string) (string, error) {
	if templateID == "" {
		return "", fmt.Errorf("%w: template_id must not be empty", ErrValidation)
	}
	if p.templateDir == "" {
		return "", fmt.Errorf("%w: no template directory configured", ErrTemplateNotFound)
	}

	p.mu.Lock()
	tmpl, cached := p.templates[templateID]
	p.mu.Unlock()

	if !cached {
		name := filepath.Base(templateID) + ".tmpl"
		raw, err := os.ReadFile(filepath.Join(p.templateDir, name))
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
		}
		if err != nil {
			return "", err
		}
		tmpl, err = template.New(name).Option("missingkey=zero").Parse(string(raw))
		if err != nil {
			return "", fmt.Errorf("saas: parsing template %s: %w", templateID, err)
		}
		p.mu.Lock()
		p.templates[templateID] = tmpl
		p.mu.Unlock()
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("saas: rendering template %s: %w", templateID, err)
	}
	return sb.String(), nil
}

func validateEmailAddrs(from string, lists ...[]string) error {
	if _, err := mail.ParseAddress(from); err != nil {
		return fmt.Errorf("%w: from address %q: %v", ErrValidation, from, err)
	}
	total := 0
	for _, list := range lists {
		total += len(list)
		for _, addr := range list {
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("%w: recipient %q: %v", ErrValidation, addr, err)
			}
		}
	}
	if total == 0 {
		return fmt.Errorf("%w: at least one recipient required", ErrValidation)
	}
	return nil
}

// splitSubject peels a leading "Subject: ..." line off rendered output.
func splitSubject(rendered string) (subject, body string) {
	trimmed := strings.TrimLeft(rendered, "\n")
	if strings.HasPrefix(trimmed, "Subject:") {
		line, rest, _ := strings.Cut(trimmed, "\n")
		return strings.TrimSpace(strings.TrimPrefix(line, "Subject:")), strings.TrimLeft(rest, "\n")
	}
	return "", rendered
}
