package client

import (
	"context"
	"net/http"
	"net/url"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

type emailClient struct {
	t *transport
}

var _ saas.Email = (*emailClient)(nil)

func (c *emailClient) SendEmail(ctx context.Context, req *saas.SendEmailRequest) (*saas.SendResult, error) {
	var result saas.SendResult
	if err := c.t.doJSON(ctx, http.MethodPost, "/v1.0/saas/email", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *emailClient) SendEmailTemplate(ctx context.Context, req *saas.SendEmailTemplateRequest) (*saas.SendResult, error) {
	var result saas.SendResult
	if err := c.t.doJSON(ctx, http.MethodPost, "/v1.0/saas/email/template", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *emailClient) GetEmailStatus(ctx context.Context, messageID string) (saas.DeliveryStatus, error) {
	if messageID == "" {
		return "", cloudruntimes.Errorf(cloudruntimes.CodeParam, "message id required")
	}
	var out struct {
		Status saas.DeliveryStatus `json:"status"`
	}
	path := "/v1.0/saas/email/" + url.PathEscape(messageID) + "/status"
	if err := c.t.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

type smsClient struct {
	t *transport
}

var _ saas.SMS = (*smsClient)(nil)

func (c *smsClient) SendSMS(ctx context.Context, req *saas.SendSMSRequest) (*saas.SendResult, error) {
	var result saas.SendResult
	if err := c.t.doJSON(ctx, http.MethodPost, "/v1.0/saas/sms", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *smsClient) SendSMSTemplate(ctx context.Context, req *saas.SendSMSTemplateRequest) (*saas.SendResult, error) {
	var result saas.SendResult
	if err := c.t.doJSON(ctx, http.MethodPost, "/v1.0/saas/sms/template", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *smsClient) GetSMSStatus(ctx context.Context, messageID string) (saas.DeliveryStatus, error) {
	if messageID == "" {
		return "", cloudruntimes.Errorf(cloudruntimes.CodeParam, "message id required")
	}
	var out struct {
		Status saas.DeliveryStatus `json:"status"`
	}
	path := "/v1.0/saas/sms/" + url.PathEscape(messageID) + "/status"
	if err := c.t.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
