package backend

import (
	"rendiconto/internal/bookkeeping"
	"rendiconto/internal/delivery"
	"rendiconto/internal/services"
)

// BookkeepingType names where expenses and income documents come from.
type BookkeepingType string

const (
	MorningBookkeeping BookkeepingType = "morning"
	MemoryBookkeeping  BookkeepingType = "memory"
)

func (t BookkeepingType) IsValid() bool {
	return t == MorningBookkeeping || t == MemoryBookkeeping
}

func (t BookkeepingType) String() string { return string(t) }

// DeliveryType names how the finished report leaves the process.
type DeliveryType string

const (
	GmailDelivery  DeliveryType = "gmail"
	SMTPDelivery   DeliveryType = "smtp"
	OutboxDelivery DeliveryType = "outbox"
)

func (t DeliveryType) IsValid() bool {
	switch t {
	case GmailDelivery, SMTPDelivery, OutboxDelivery:
		return true
	}
	return false
}

func (t DeliveryType) String() string { return string(t) }

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result holds the collaborators of a report service. Events is nil when
// disabled.
type Result struct {
	Books   bookkeeping.Client
	Sender  delivery.Sender
	Events  services.EventPublisher
	Cleanup CleanupFunc
}
