package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/pkg/apperr"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const user = "me"

// Service implements the provider surface against the Gmail API.
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (s *Service) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}
}

// Refresh exchanges a refresh token at Google's token endpoint. A rejected
// refresh token is a permanent credential failure; everything else is
// transient and may be retried by the caller.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*mailboxdomain.RefreshedToken, error) {
	src := s.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
				return nil, apperr.Credential("refresh token rejected by provider", err)
			}
		}
		return nil, apperr.Transient("unable to refresh access token", err)
	}

	return &mailboxdomain.RefreshedToken{
		AccessToken: token.AccessToken,
		ExpiryMs:    token.Expiry.UnixMilli(),
	}, nil
}

// client builds a Gmail service for a single call. Token refresh is handled
// upstream, so the token source is static.
func (s *Service) client(ctx context.Context, accessToken string) (*gmail.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// Watch registers push notifications for the mailbox's INBOX and returns the
// provider's current history id plus the subscription expiry.
func (s *Service) Watch(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	// A mailbox allows only one push notification client; clear any stale
	// registration first. Failure here is fine when no watch exists.
	_ = srv.Users.Stop(user).Do()

	req := &gmail.WatchRequest{
		TopicName:           topicName,
		LabelIds:            []string{"INBOX"},
		LabelFilterBehavior: "INCLUDE",
	}

	resp, err := srv.Users.Watch(user, req).Do()
	if err != nil {
		return nil, providerError("unable to watch mailbox", err)
	}

	return &mailboxdomain.WatchResult{
		HistoryID:    resp.HistoryId,
		ExpirationMs: resp.Expiration,
	}, nil
}

// StopWatch tears down the push notification registration.
func (s *Service) StopWatch(ctx context.Context, accessToken string) error {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop(user).Do(); err != nil {
		return providerError("unable to stop mailbox watch", err)
	}
	return nil
}

// ListHistory fetches one page of the mailbox change log starting at
// startHistoryID, restartable via pageToken.
func (s *Service) ListHistory(ctx context.Context, accessToken string, startHistoryID uint64, pageToken string) (*mailboxdomain.HistoryPage, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := srv.Users.History.List(user).
		StartHistoryId(startHistoryID).
		HistoryTypes("messageAdded").
		MaxResults(100)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, providerError("unable to list history", err)
	}

	page := &mailboxdomain.HistoryPage{
		NextPageToken: resp.NextPageToken,
		HistoryID:     resp.HistoryId,
	}
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message == nil {
				continue
			}
			page.Added = append(page.Added, mailboxdomain.MessageRef{
				MessageID: added.Message.Id,
				ThreadID:  added.Message.ThreadId,
				Labels:    added.Message.LabelIds,
			})
		}
	}

	return page, nil
}

// GetMessage fetches a full message and converts it into a candidate.
func (s *Service) GetMessage(ctx context.Context, accessToken, messageID string) (*mailboxdomain.CandidateMessage, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, messageID).Format("full").Do()
	if err != nil {
		return nil, providerError("unable to retrieve message", err)
	}

	return convertMessage(msg), nil
}

// ListThreadMessages fetches every message in a thread. Used for the
// thread-scoped bounce check, which must see all messages because delivery
// failure notices can arrive before or after the message they report on.
func (s *Service) ListThreadMessages(ctx context.Context, accessToken, threadID string) ([]*mailboxdomain.CandidateMessage, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	thread, err := srv.Users.Threads.Get(user, threadID).Format("full").Do()
	if err != nil {
		return nil, providerError("unable to retrieve thread", err)
	}

	messages := make([]*mailboxdomain.CandidateMessage, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		messages = append(messages, convertMessage(msg))
	}
	return messages, nil
}

// SendMessage sends a rendered HTML message and returns the thread id Gmail
// assigned, which the dispatch path stores for later reply attribution.
func (s *Service) SendMessage(ctx context.Context, accessToken string, mail *mailboxdomain.OutboundMail) (string, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var raw bytes.Buffer
	if mail.FromEmail != "" {
		if mail.FromName != "" {
			encodedName := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(mail.FromName)))
			raw.WriteString(fmt.Sprintf("From: %s <%s>\r\n", encodedName, mail.FromEmail))
		} else {
			raw.WriteString(fmt.Sprintf("From: %s\r\n", mail.FromEmail))
		}
	}
	raw.WriteString(fmt.Sprintf("To: %s\r\n", mail.To))
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(mail.Subject)))
	raw.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	raw.WriteString(mail.BodyHTML)
	raw.WriteString("\r\n")

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}

	sent, err := srv.Users.Messages.Send(user, msg).Do()
	if err != nil {
		return "", providerError("unable to send message", err)
	}

	return sent.ThreadId, nil
}

// Helper functions

func convertMessage(msg *gmail.Message) *mailboxdomain.CandidateMessage {
	var headers strings.Builder
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers.WriteString(h.Name)
			headers.WriteString(": ")
			headers.WriteString(h.Value)
			headers.WriteString("\r\n")
		}
	}

	var bodyHTML, bodyText string
	if msg.Payload != nil {
		bodyHTML, bodyText = getMessageBody(msg.Payload)
	}

	return &mailboxdomain.CandidateMessage{
		ThreadID:     msg.ThreadId,
		MessageID:    msg.Id,
		Labels:       msg.LabelIds,
		RawHeaders:   headers.String(),
		BodyHTML:     bodyHTML,
		BodyText:     bodyText,
		InternalDate: time.Unix(msg.InternalDate/1000, 0),
	}
}

func getMessageBody(payload *gmail.MessagePart) (string, string) {
	// The payload itself may be the body for single-part messages
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			if payload.MimeType == "text/html" {
				return string(data), ""
			}
			return "", string(data)
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)
	return htmlBody, plainBody
}

// providerError maps a Gmail API error into the failure taxonomy: rate
// limits and 5xx are transient, 401 means the token died underneath us,
// anything else stays a plain error.
func providerError(message string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return apperr.Credential(message, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return apperr.Transient(message, err)
		}
		return fmt.Errorf("%s: %v", message, err)
	}
	// Network-level failure
	return apperr.Transient(message, err)
}
