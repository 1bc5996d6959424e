// Package sms delivers notifications through the Twilio messages REST
// API. It is the fallback channel when the chat session is down.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/knitkart/orderflow/internal/phone"
	"go.uber.org/zap"
)

const channelName = "sms"

type Channel struct {
	cfg         config.SMSConfig
	countryCode string
	httpClient  *http.Client
	log         *zap.Logger
}

func New(cfg config.SMSConfig, countryCode string, log *zap.Logger) *Channel {
	return &Channel{
		cfg:         cfg,
		countryCode: countryCode,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log.Named("notification.sms"),
	}
}

func (c *Channel) Name() string { return channelName }

type messageResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// Send delivers one message. Transport and gateway errors are converted
// into a failed outcome carrying the gateway's error text.
func (c *Channel) Send(ctx context.Context, rawPhone, body string) domain.Outcome {
	to := phone.Normalize(rawPhone, c.countryCode)
	if to == "" {
		return domain.Failed(channelName, fmt.Errorf("unusable phone number %q", rawPhone))
	}

	form := url.Values{}
	form.Set("To", "+"+to)
	form.Set("From", c.cfg.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Failed(channelName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Failed(channelName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Failed(channelName, err)
	}

	var parsed messageResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(parsed.Message)
		if detail == "" {
			detail = fmt.Sprintf("sms gateway returned status %d", resp.StatusCode)
		}
		return domain.Failed(channelName, fmt.Errorf("%s", detail))
	}

	c.log.Debug("sms dispatched", zap.String("sid", parsed.SID))
	return domain.Delivered(channelName, parsed.SID)
}
