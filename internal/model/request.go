package model

import "time"

type RequestState string

const (
	RequestStatePending  RequestState = "pending"
	RequestStateApproved RequestState = "approved"
	RequestStateDeclined RequestState = "declined"
	RequestStateArchived RequestState = "archived"
)

// requestTransitions is the closed transition table for acquisition requests.
// Approved and Declined are reachable from Pending only; Archived from the
// two terminal decisions only; Restore moves Archived back to its prior state.
var requestTransitions = map[RequestState][]RequestState{
	RequestStatePending:  {RequestStateApproved, RequestStateDeclined},
	RequestStateApproved: {RequestStateArchived},
	RequestStateDeclined: {RequestStateArchived},
	RequestStateArchived: {RequestStateApproved, RequestStateDeclined},
}

func (s RequestState) CanTransitionTo(to RequestState) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AcquisitionRequest asks for new stock of an asset. It never touches the
// ledger; approval is a manual follow-on that may later create stock.
type AcquisitionRequest struct {
	ID           string       `db:"id"`
	AssetName    string       `db:"asset_name"`
	Quantity     int          `db:"quantity"`
	RequestedBy  string       `db:"requested_by"`
	State        RequestState `db:"state"`
	AutoDeclined bool         `db:"auto_declined"`
	// PriorState remembers the terminal decision across Archive/Restore.
	PriorState *RequestState `db:"prior_state"`
	CreatedAt  time.Time     `db:"created_at"`
	Deadline   time.Time     `db:"deadline"`
	ResolvedAt *time.Time    `db:"resolved_at"`
}

func (r *AcquisitionRequest) Resolved() bool {
	return r.State != RequestStatePending
}
