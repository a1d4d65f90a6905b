// internal/service/inventory/domain/reservation.go
package domain

import "time"

// ReservationState 表示一笔预占记录的状态。
type ReservationState string

const (
	ReservationReserved  ReservationState = "RESERVED"
	ReservationConfirmed ReservationState = "CONFIRMED"
	ReservationReleased  ReservationState = "RELEASED"
)

// Reservation 是一笔以订单号为幂等键的预占记录。
type Reservation struct {
	ReferenceID string
	Quantity    int64
	State       ReservationState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newReservation(referenceID string, qty int64) *Reservation {
	now := time.Now()
	return &Reservation{
		ReferenceID: referenceID,
		Quantity:    qty,
		State:       ReservationReserved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *Reservation) markReleased() {
	r.State = ReservationReleased
	r.UpdatedAt = time.Now()
}

func (r *Reservation) markConfirmed() {
	r.State = ReservationConfirmed
	r.UpdatedAt = time.Now()
}

// Clone 返回预占记录的副本，供仓储层做快照用。
func (r *Reservation) Clone() *Reservation {
	c := *r
	return &c
}
