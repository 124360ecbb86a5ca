package domain

import "time"

// DeliveryTask is one rendered document waiting to be mailed.
type DeliveryTask struct {
	BatchID     string
	Recipient   string
	DisplayName string
	Filename    string
	Document    []byte
}

// Attachment is a single file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is what a sender submits: one recipient, one attachment.
type Message struct {
	From       string
	To         string
	Subject    string
	Body       string
	Attachment Attachment
	Date       time.Time
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

// Delivery outcomes. There are no retries, so each task ends in exactly one.
const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// String returns the string representation.
func (s DeliveryStatus) String() string {
	return string(s)
}

// DeliveryResult is the ledger record of one delivery attempt.
type DeliveryResult struct {
	ID        string
	BatchID   string
	Recipient string
	Filename  string
	Status    DeliveryStatus
	MessageID string
	Error     string
	At        time.Time
}

// DeliveryStats summarises a queue's lifetime counters.
type DeliveryStats struct {
	Queued  int
	Sent    int
	Failed  int
	Pending int
}
