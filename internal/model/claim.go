package model

import "time"

type ClaimKind string

const (
	ClaimKindRepair          ClaimKind = "repair"
	ClaimKindMaintenance     ClaimKind = "maintenance"
	ClaimKindEventAllocation ClaimKind = "event_allocation"
	ClaimKindBorrow          ClaimKind = "borrow"
	ClaimKindConsumption     ClaimKind = "consumption"
)

func (k ClaimKind) Valid() bool {
	switch k {
	case ClaimKindRepair, ClaimKindMaintenance, ClaimKindEventAllocation,
		ClaimKindBorrow, ClaimKindConsumption:
		return true
	}
	return false
}

// Exclusive kinds allow at most one open claim per asset; a second attempt
// while one is open is rejected as conflicting.
func (k ClaimKind) Exclusive() bool {
	return k == ClaimKindRepair || k == ClaimKindMaintenance
}

// Consumption removes units permanently: the claim is born Completed and
// TotalQuantity is decremented instead of Available being restored later.
func (k ClaimKind) Destructive() bool {
	return k == ClaimKindConsumption
}

type ClaimState string

const (
	ClaimStateOpen      ClaimState = "open"
	ClaimStateCompleted ClaimState = "completed"
	ClaimStateCancelled ClaimState = "cancelled"
)

// Claim is a reservation of asset quantity by one consumer workflow.
type Claim struct {
	ID        string     `db:"id"`
	AssetID   string     `db:"asset_id"`
	Kind      ClaimKind  `db:"kind"`
	Quantity  int        `db:"quantity"`
	State     ClaimState `db:"state"`
	Reference *string    `db:"reference"` // issue id, event id, borrower id
	OpenedAt  time.Time  `db:"opened_at"`
	ClosedAt  *time.Time `db:"closed_at"`
}

func (c *Claim) Closed() bool {
	return c.State == ClaimStateCompleted || c.State == ClaimStateCancelled
}
