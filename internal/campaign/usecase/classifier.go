package usecase

import (
	"regexp"
	"strings"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"

	"github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
)

// ClassificationKind is the classifier's verdict on a candidate message.
type ClassificationKind string

const (
	ClassBounce    ClassificationKind = "bounce"
	ClassReply     ClassificationKind = "reply"
	ClassAutoReply ClassificationKind = "auto_reply"
	ClassIgnorable ClassificationKind = "ignorable"
)

// Classification carries the verdict plus the attributed outbound message
// when a tracking tag was found.
type Classification struct {
	Kind                      ClassificationKind
	SequenceProspectMessageID string
}

// trackingTagRe matches the tracking pixel embedded in outbound HTML bodies.
// Replies usually quote the original message, so the tag survives into the
// reply body and carries the attribution back.
var trackingTagRe = regexp.MustCompile(`<img[^>]+src="[^"]*[?&]spmsId=([A-Za-z0-9\-]+)`)

// bouncePhrases are delivery-failure markers looked for in From and Subject.
var bouncePhrases = []string{
	"mail delivery subsystem",
	"mailer-daemon",
	"postmaster",
	"undeliverable",
	"undelivered mail",
	"non-delivery report",
	"delivery status notification",
	"delivery incomplete",
	"returned mail",
	"failure notice",
	"message blocked",
}

// autoReplyHeaders mark machine-generated responses (vacation responders
// and the like) that should not count as genuine replies.
var autoReplyHeaders = []string{"Auto-Submitted", "X-Autoreply", "X-Autorespond"}

// Classifier decides whether a candidate message is a bounce, a genuine
// reply attributable to an outbound message, or noise.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(msg *mailboxdomain.CandidateMessage) Classification {
	spmsID := c.extractTrackingID(msg)

	if c.IsBounce(msg) {
		return Classification{Kind: ClassBounce, SequenceProspectMessageID: spmsID}
	}

	if spmsID == "" {
		// Not attributable: out-of-band mail, newsletters, anything that
		// never quoted one of our outbound bodies.
		return Classification{Kind: ClassIgnorable}
	}

	if c.isAutoReply(msg) {
		return Classification{Kind: ClassAutoReply, SequenceProspectMessageID: spmsID}
	}

	return Classification{Kind: ClassReply, SequenceProspectMessageID: spmsID}
}

// IsBounce scans From and Subject for known delivery-failure phrases.
func (c *Classifier) IsBounce(msg *mailboxdomain.CandidateMessage) bool {
	from, subject, _ := c.parseEnvelope(msg)
	haystack := strings.ToLower(from + " " + subject)
	for _, phrase := range bouncePhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}

// HasBouncedMessage inspects every message in a thread, not just the newest:
// providers may deliver failure notices before or after the message they
// report on.
func (c *Classifier) HasBouncedMessage(msgs []*mailboxdomain.CandidateMessage) bool {
	for _, msg := range msgs {
		if c.IsBounce(msg) {
			return true
		}
	}
	return false
}

// MessageDate returns the parsed Date header, falling back to the provider's
// storage time when the header is missing or malformed. Storage time is the
// definitive fallback; header dates are best effort only.
func (c *Classifier) MessageDate(msg *mailboxdomain.CandidateMessage) time.Time {
	_, _, date := c.parseEnvelope(msg)
	if date.IsZero() {
		return msg.InternalDate
	}
	return date
}

func (c *Classifier) extractTrackingID(msg *mailboxdomain.CandidateMessage) string {
	body := msg.BodyHTML
	if body == "" {
		body = msg.BodyText
	}
	match := trackingTagRe.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return match[1]
}

func (c *Classifier) isAutoReply(msg *mailboxdomain.CandidateMessage) bool {
	for _, h := range autoReplyHeaders {
		v := strings.ToLower(msg.HeaderValue(h))
		if v != "" && v != "no" {
			return true
		}
	}
	return strings.EqualFold(msg.HeaderValue("Precedence"), "auto_reply")
}

// parseEnvelope decodes From, Subject and Date from the raw header block.
// Parse failures degrade to the naive line scan rather than failing
// classification.
func (c *Classifier) parseEnvelope(msg *mailboxdomain.CandidateMessage) (from, subject string, date time.Time) {
	from = msg.HeaderValue("From")
	subject = msg.HeaderValue("Subject")

	entity, err := message.Read(strings.NewReader(msg.RawHeaders + "\r\n"))
	if err != nil && !message.IsUnknownCharset(err) {
		return from, subject, time.Time{}
	}

	header := gomail.Header{Header: entity.Header}
	if v, err := header.Text("From"); err == nil && v != "" {
		from = v
	}
	if v, err := header.Subject(); err == nil && v != "" {
		subject = v
	}
	if d, err := header.Date(); err == nil {
		date = d
	}
	return from, subject, date
}
