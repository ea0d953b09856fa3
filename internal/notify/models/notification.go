// Package models defines expiry reminder records. A record is the
// idempotency guard for one (document, horizon) pair; the rendered message
// itself is not persisted.
package models

import (
	"time"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// Horizons is the fixed reminder schedule, in days before expiry. Horizon 0
// is expiry day itself.
var Horizons = []int{30, 14, 7, 3, 1, 0}

// MaxAttempts is the retry ceiling for failed sends. A record that fails
// this many times is abandoned.
const MaxAttempts = 3

// NotificationStatus is the delivery state of one reminder.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

// ParseNotificationStatus validates a raw status string.
func ParseNotificationStatus(s string) (NotificationStatus, error) {
	switch NotificationStatus(s) {
	case StatusPending, StatusSent, StatusFailed:
		return NotificationStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown notification status %q", s)
	}
}

func (s NotificationStatus) String() string { return string(s) }

// Template identifiers, selected by horizon band.
const (
	TemplateLongNotice = "expiry_long_notice"
	TemplateMidNotice  = "expiry_mid_notice"
	TemplateUrgent     = "expiry_urgent"
)

// TemplateFor maps a horizon to its message template.
func TemplateFor(horizonDays int) string {
	switch {
	case horizonDays >= 30:
		return TemplateLongNotice
	case horizonDays >= 7:
		return TemplateMidNotice
	default:
		return TemplateUrgent
	}
}

// Notification is one reminder attempt for a (document, horizon) pair.
type Notification struct {
	ID           domain.NotificationID
	ContractorID domain.ContractorID
	DocumentID   domain.DocumentID
	HorizonDays  int
	Channel      string
	Recipient    string
	TemplateID   string
	Status       NotificationStatus
	Attempts     int
	LastError    string
	SentAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNotification constructs a pending reminder record.
func NewNotification(contractorID domain.ContractorID, documentID domain.DocumentID, horizonDays int, channel, recipient string, now time.Time) *Notification {
	return &Notification{
		ID:           domain.NewNotificationID(),
		ContractorID: contractorID,
		DocumentID:   documentID,
		HorizonDays:  horizonDays,
		Channel:      channel,
		Recipient:    recipient,
		TemplateID:   TemplateFor(horizonDays),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Retryable reports whether a later sweep may attempt this record again.
// Sent records never retry; failed records retry below the ceiling.
func (n *Notification) Retryable() bool {
	return n.Status == StatusFailed && n.Attempts < MaxAttempts
}

// MarkSent records a successful dispatch.
func (n *Notification) MarkSent(now time.Time) {
	n.Status = StatusSent
	n.Attempts++
	n.LastError = ""
	t := now
	n.SentAt = &t
	n.UpdatedAt = now
}

// MarkFailed records a dispatch failure.
func (n *Notification) MarkFailed(reason string, now time.Time) {
	n.Status = StatusFailed
	n.Attempts++
	n.LastError = reason
	n.UpdatedAt = now
}
