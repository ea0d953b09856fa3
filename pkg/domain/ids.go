// Package domain defines strongly typed identifiers shared across modules.
//
// Each identifier wraps uuid.UUID as a distinct named type so that a
// ContractorID can never be passed where a DocumentID is expected. The
// compiler enforces what string-typed IDs leave to code review.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ContractorID identifies a sub-contractor company.
type ContractorID uuid.UUID

// DocumentID identifies a compliance document version.
type DocumentID uuid.UUID

// InvoiceID identifies a payable invoice.
type InvoiceID uuid.UUID

// NotificationID identifies a reminder send attempt.
type NotificationID uuid.UUID

// NewContractorID returns a fresh random contractor ID.
func NewContractorID() ContractorID { return ContractorID(uuid.New()) }

// NewDocumentID returns a fresh random document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewInvoiceID returns a fresh random invoice ID.
func NewInvoiceID() InvoiceID { return InvoiceID(uuid.New()) }

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id ContractorID) String() string   { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id InvoiceID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id ContractorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id InvoiceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseContractorID parses a contractor ID from its string form.
func ParseContractorID(s string) (ContractorID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ContractorID{}, fmt.Errorf("invalid contractor id: %w", err)
	}
	return ContractorID(u), nil
}

// ParseDocumentID parses a document ID from its string form.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document id: %w", err)
	}
	return DocumentID(u), nil
}

// ParseInvoiceID parses an invoice ID from its string form.
func ParseInvoiceID(s string) (InvoiceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return InvoiceID{}, fmt.Errorf("invalid invoice id: %w", err)
	}
	return InvoiceID(u), nil
}

// ParseNotificationID parses a notification ID from its string form.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification id: %w", err)
	}
	return NotificationID(u), nil
}

// MarshalText implements encoding.TextMarshaler so IDs render as canonical
// UUID strings in JSON payloads.
func (id ContractorID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id InvoiceID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ContractorID) UnmarshalText(b []byte) error {
	parsed, err := ParseContractorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *InvoiceID) UnmarshalText(b []byte) error {
	parsed, err := ParseInvoiceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
