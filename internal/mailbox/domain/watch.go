package domain

import "time"

// CursorBackupLimit bounds the backup ring kept on each subscription.
const CursorBackupLimit = 10

// CursorBackupEntry records a superseded history cursor. The ring lets us
// recover when pushes arrive duplicated or out of order.
type CursorBackupEntry struct {
	Cursor         uint64    `json:"cursor"`
	NotificationID string    `json:"notification_id"`
	ReceivedAt     time.Time `json:"received_at"`
}

// WatchSubscription is the push-notification registration for one mailbox.
// HistoryCursor is monotonically non-decreasing; it only moves through
// conditional writes in the repository.
type WatchSubscription struct {
	ID               string              `json:"id" gorm:"primaryKey"`
	MailboxEmail     string              `json:"mailbox_email" gorm:"uniqueIndex;not null"`
	HistoryCursor    uint64              `json:"history_cursor"`
	ExpirationMs     int64               `json:"expiration_ms"` // epoch milliseconds
	CursorBackup     []CursorBackupEntry `json:"cursor_backup" gorm:"serializer:json"`
	LinkedAccountIDs []string            `json:"linked_account_ids" gorm:"serializer:json"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// PushBackup inserts an entry newest-first and evicts beyond the limit.
func (w *WatchSubscription) PushBackup(entry CursorBackupEntry) {
	w.CursorBackup = append([]CursorBackupEntry{entry}, w.CursorBackup...)
	if len(w.CursorBackup) > CursorBackupLimit {
		w.CursorBackup = w.CursorBackup[:CursorBackupLimit]
	}
}

// ExpiresBefore reports whether the subscription expires before t.
func (w *WatchSubscription) ExpiresBefore(t time.Time) bool {
	return w.ExpirationMs <= t.UnixMilli()
}
