package amqp

import (
	"encoding/json"
	"time"

	"rendiconto/internal/core"
)

// ReportDeliveredMessage announces that a period report reached the
// accountant.
type ReportDeliveredMessage struct {
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	DeliveryID  string    `json:"delivery_id"`
	Missing     []string  `json:"missing"`
	Short       []string  `json:"short"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewReportDeliveredMessage(period core.ReportingPeriod, deliveryID string, rec core.ReconciliationResult) *ReportDeliveredMessage {
	return &ReportDeliveredMessage{
		PeriodStart: period.FromDate(),
		PeriodEnd:   period.ToDate(),
		DeliveryID:  deliveryID,
		Missing:     nonNil(rec.Missing),
		Short:       nonNil(rec.Short),
		Timestamp:   time.Now().UTC(),
	}
}

func (m *ReportDeliveredMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportDeliveredMessageFromJSON(data []byte) (*ReportDeliveredMessage, error) {
	var msg ReportDeliveredMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
