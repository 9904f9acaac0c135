package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LoanRecomputeMessage asks a worker to recompute the derived fields of one
// loan. It carries only the ID and a version counter, the worker fetches the
// full loan from the database.
type LoanRecomputeMessage struct {
	LoanID    uuid.UUID `json:"loan_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLoanRecomputeMessage(loanID uuid.UUID, version int64) *LoanRecomputeMessage {
	return &LoanRecomputeMessage{
		LoanID:    loanID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LoanRecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LoanRecomputeMessageFromJSON(data []byte) (*LoanRecomputeMessage, error) {
	var msg LoanRecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportRequestMessage asks the report worker to build a period report for an
// inclusive date window.
type ReportRequestMessage struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportRequestMessage(start, end time.Time) *ReportRequestMessage {
	return &ReportRequestMessage{
		Start:     start,
		End:       end,
		Timestamp: time.Now(),
	}
}

func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
