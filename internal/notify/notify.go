// Package notify forwards push notifications and transactional email to the
// external gateways.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrForbidden     = errors.New("sender is not allowed to send email")
	ErrValidation    = errors.New("invalid notification")
	ErrNotConfigured = errors.New("dispatch endpoint not configured")
)

// privilegedRoles may send email on behalf of the office.
var privilegedRoles = map[string]struct{}{"admin": {}}

type PushMessage struct {
	Audience     string            `json:"audience"`
	TargetUserID string            `json:"target_user_id,omitempty"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Description  string            `json:"description,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type Email struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
	SenderID   string `json:"sender_id"`
	SenderRole string `json:"-"`
}

type Options struct {
	PushURL   string
	EmailURL  string
	EmailKey  string
	EmailFrom string
}

type Dispatcher struct {
	opts       Options
	httpClient *http.Client
}

func NewDispatcher(opts Options) *Dispatcher {
	return &Dispatcher{
		opts: opts,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NotifyUser sends a push notification to a single user.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID, title, body, description, imageURL string, data map[string]string) error {
	if userID == "" || title == "" {
		return fmt.Errorf("%w: user id and title required", ErrValidation)
	}
	return d.push(ctx, PushMessage{
		Audience:     "user",
		TargetUserID: userID,
		Title:        title,
		Body:         body,
		Description:  description,
		ImageURL:     imageURL,
		Data:         data,
	})
}

// NotifyAll sends a push notification to every registered device.
func (d *Dispatcher) NotifyAll(ctx context.Context, title, body, description, imageURL string, data map[string]string) error {
	if title == "" {
		return fmt.Errorf("%w: title required", ErrValidation)
	}
	return d.push(ctx, PushMessage{
		Audience:    "all",
		Title:       title,
		Body:        body,
		Description: description,
		ImageURL:    imageURL,
		Data:        data,
	})
}

func (d *Dispatcher) push(ctx context.Context, msg PushMessage) error {
	if d.opts.PushURL == "" {
		return ErrNotConfigured
	}
	return d.post(ctx, d.opts.PushURL, "", msg)
}

// SendEmail checks the sender before anything leaves the process.
func (d *Dispatcher) SendEmail(ctx context.Context, email Email) error {
	if _, ok := privilegedRoles[email.SenderRole]; !ok {
		return ErrForbidden
	}
	if !strings.Contains(email.To, "@") || email.Subject == "" || email.HTML == "" {
		return fmt.Errorf("%w: to, subject and html required", ErrValidation)
	}
	if d.opts.EmailURL == "" {
		return ErrNotConfigured
	}

	body := map[string]string{
		"from":      d.opts.EmailFrom,
		"to":        email.To,
		"subject":   email.Subject,
		"html":      email.HTML,
		"sender_id": email.SenderID,
	}
	return d.post(ctx, d.opts.EmailURL, d.opts.EmailKey, body)
}

func (d *Dispatcher) post(ctx context.Context, url, apiKey string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("dispatch failed (status %d): %s", resp.StatusCode, respBody)
	}
	return nil
}
