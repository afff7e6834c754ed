package domain

import (
	"context"
	"strings"
	"time"
)

// CandidateMessage is a message pulled from a mailbox change log that has not
// been classified yet. Ephemeral: produced by history sync, consumed by the
// classifier, never persisted.
type CandidateMessage struct {
	ThreadID     string
	MessageID    string
	Labels       []string
	RawHeaders   string // RFC 5322 header block, CRLF separated
	BodyHTML     string
	BodyText     string
	InternalDate time.Time // provider storage time
}

// HasLabel reports whether the provider attached the given label.
func (m *CandidateMessage) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HeaderValue does a plain line scan of the raw header block. Callers that
// need decoded or typed values should parse the block properly; this is the
// cheap path for simple ASCII headers.
func (m *CandidateMessage) HeaderValue(name string) string {
	for _, line := range strings.Split(m.RawHeaders, "\r\n") {
		if len(line) > len(name) && strings.EqualFold(line[:len(name)], name) && line[len(name)] == ':' {
			return strings.TrimSpace(line[len(name)+1:])
		}
	}
	return ""
}

// WatchResult is the provider's answer to a watch registration.
type WatchResult struct {
	HistoryID    uint64
	ExpirationMs int64 // epoch milliseconds
}

// MessageRef identifies a message within a history page.
type MessageRef struct {
	MessageID string
	ThreadID  string
	Labels    []string
}

// HistoryPage is one page of the provider's change log, restartable from
// either a history cursor or a page token.
type HistoryPage struct {
	Added         []MessageRef
	NextPageToken string
	HistoryID     uint64 // newest history id known to the provider
}

// OutboundMail is a fully rendered message ready for dispatch.
type OutboundMail struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	BodyHTML  string
}

// RefreshedToken is the result of exchanging a refresh token.
type RefreshedToken struct {
	AccessToken string
	ExpiryMs    int64
}

// TokenRefresher exchanges a refresh token at the provider's token endpoint.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// MailProvider abstracts the provider API surface the sync engine needs.
// All calls take a currently valid access token; token lifecycle is handled
// by the caller.
type MailProvider interface {
	Watch(ctx context.Context, accessToken, topicName string) (*WatchResult, error)
	StopWatch(ctx context.Context, accessToken string) error
	ListHistory(ctx context.Context, accessToken string, startHistoryID uint64, pageToken string) (*HistoryPage, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*CandidateMessage, error)
	ListThreadMessages(ctx context.Context, accessToken, threadID string) ([]*CandidateMessage, error)
	SendMessage(ctx context.Context, accessToken string, mail *OutboundMail) (threadID string, err error)
}
