package dto

// ConnectMailboxRequest carries the OAuth grant captured for a sending mailbox.
type ConnectMailboxRequest struct {
	MailboxEmail string `json:"mailboxEmail" binding:"required,email"`
	AccessToken  string `json:"accessToken" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
	ExpiryMs     int64  `json:"expiryMs"`
	Scope        string `json:"scope"`
}

type ConnectMailboxResponse struct {
	MailboxEmail string `json:"mailboxEmail"`
	Status       string `json:"status"`
	WatchExpiry  int64  `json:"watchExpiryMs"`
}

// PushEnvelope is the wrapper Pub/Sub wraps around push deliveries.
type PushEnvelope struct {
	Message struct {
		Data      string `json:"data"` // base64-encoded GmailNotification
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
