package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"
	mailboxdomain "outreach-backend/internal/mailbox/domain"

	"github.com/google/uuid"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*campaigndomain.CampaignEvent
	err    error
}

func (r *fakeEventRepo) Create(event *campaigndomain.CampaignEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedOn.IsZero() {
		event.CreatedOn = time.Now()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = event.CreatedOn
	}
	copied := *event
	r.events = append(r.events, &copied)
	return nil
}

func (r *fakeEventRepo) FindBySequence(sequenceID string) ([]*campaigndomain.CampaignEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*campaigndomain.CampaignEvent
	for _, e := range r.events {
		if e.SequenceID == sequenceID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) FindBySequenceAndAction(sequenceID string, action campaigndomain.ActionType) ([]*campaigndomain.CampaignEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*campaigndomain.CampaignEvent
	for _, e := range r.events {
		if e.SequenceID == sequenceID && e.ActionType == action {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) HasBouncedForProspect(sequenceProspectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.SequenceProspectID == sequenceProspectID && e.HasBounced {
			return true, nil
		}
	}
	return false, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*campaigndomain.SequenceProspectMessage
	err      error
}

func newFakeMessageRepo(msgs ...*campaigndomain.SequenceProspectMessage) *fakeMessageRepo {
	r := &fakeMessageRepo{messages: make(map[string]*campaigndomain.SequenceProspectMessage)}
	for _, m := range msgs {
		r.messages[m.ID] = m
	}
	return r
}

func (r *fakeMessageRepo) FindDue(now time.Time, limit int) ([]*campaigndomain.SequenceProspectMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*campaigndomain.SequenceProspectMessage
	for _, m := range r.messages {
		if m.Status == campaigndomain.MessageStatusScheduled && !m.SendAt.After(now) {
			copied := *m
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FindByID(id string) (*campaigndomain.SequenceProspectMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) FindByThreadID(threadID string) (*campaigndomain.SequenceProspectMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) MarkSent(id, threadID string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = campaigndomain.MessageStatusSent
		m.ThreadID = threadID
		m.SentAt = &sentAt
	}
	return nil
}

func (r *fakeMessageRepo) MarkSkipped(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = campaigndomain.MessageStatusSkipped
	}
	return nil
}

type fakeProspectRepo struct {
	mu        sync.Mutex
	prospects map[string]*campaigndomain.SequenceProspect
}

func newFakeProspectRepo(prospects ...*campaigndomain.SequenceProspect) *fakeProspectRepo {
	r := &fakeProspectRepo{prospects: make(map[string]*campaigndomain.SequenceProspect)}
	for _, p := range prospects {
		r.prospects[p.ID] = p
	}
	return r
}

func (r *fakeProspectRepo) FindByID(id string) (*campaigndomain.SequenceProspect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prospects[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProspectRepo) MarkUnsubscribed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prospects[id]; ok {
		p.Unsubscribed = true
	}
	return nil
}

type fakeTokens struct {
	err error
}

func (t *fakeTokens) GetValidToken(ctx context.Context, mailboxEmail string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "token-" + mailboxEmail, nil
}

// fakeProvider implements the provider surface the campaign layer touches.
type fakeProvider struct {
	sendFn        func(ctx context.Context, accessToken string, mail *mailboxdomain.OutboundMail) (string, error)
	listThreadFn  func(ctx context.Context, accessToken, threadID string) ([]*mailboxdomain.CandidateMessage, error)
	sentMails     []*mailboxdomain.OutboundMail
	threadCounter int
}

func (p *fakeProvider) Watch(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
	return &mailboxdomain.WatchResult{}, nil
}

func (p *fakeProvider) StopWatch(ctx context.Context, accessToken string) error { return nil }

func (p *fakeProvider) ListHistory(ctx context.Context, accessToken string, startHistoryID uint64, pageToken string) (*mailboxdomain.HistoryPage, error) {
	return &mailboxdomain.HistoryPage{}, nil
}

func (p *fakeProvider) GetMessage(ctx context.Context, accessToken, messageID string) (*mailboxdomain.CandidateMessage, error) {
	return &mailboxdomain.CandidateMessage{MessageID: messageID}, nil
}

func (p *fakeProvider) ListThreadMessages(ctx context.Context, accessToken, threadID string) ([]*mailboxdomain.CandidateMessage, error) {
	if p.listThreadFn == nil {
		return nil, nil
	}
	return p.listThreadFn(ctx, accessToken, threadID)
}

func (p *fakeProvider) SendMessage(ctx context.Context, accessToken string, mail *mailboxdomain.OutboundMail) (string, error) {
	if p.sendFn != nil {
		return p.sendFn(ctx, accessToken, mail)
	}
	p.sentMails = append(p.sentMails, mail)
	p.threadCounter++
	return fmt.Sprintf("thread-%d", p.threadCounter), nil
}
