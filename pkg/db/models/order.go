package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// Order is the aggregate tracking one pickup-to-dropoff delivery.
//
// DriverID is non-nil exactly when Status requires a driver (ACCEPTED,
// PICKED_UP, DELIVERED); the repository's conditional updates preserve that
// invariant under concurrent accept attempts.
type Order struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID  uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	DriverID *uuid.UUID `gorm:"column:driver_id;type:uuid;index"`

	RecipientName  string  `gorm:"column:recipient_name;not null"`
	RecipientPhone string  `gorm:"column:recipient_phone;not null"`
	TagNumber      *string `gorm:"column:tag_number"`

	PickupAddress  string  `gorm:"column:pickup_address;not null"`
	PickupLat      float64 `gorm:"column:pickup_lat;not null"`
	PickupLng      float64 `gorm:"column:pickup_lng;not null"`
	DropoffAddress string  `gorm:"column:dropoff_address;not null"`
	DropoffLat     float64 `gorm:"column:dropoff_lat;not null"`
	DropoffLng     float64 `gorm:"column:dropoff_lng;not null"`

	DistanceKm float64 `gorm:"column:distance_km;not null"`
	ETAMinutes int     `gorm:"column:eta_minutes;not null"`

	DeliverAfter  *time.Time `gorm:"column:deliver_after"`
	DeliverBefore *time.Time `gorm:"column:deliver_before"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'CREATED'"`

	DriverPrice    decimal.Decimal `gorm:"column:driver_price;type:numeric(10,2);not null"`
	PlatformProfit decimal.Decimal `gorm:"column:platform_profit;type:numeric(10,2);not null"`
	ProfitRaw      decimal.Decimal `gorm:"column:profit_raw;type:numeric(10,2);not null"`
	StorePrice     decimal.Decimal `gorm:"column:store_price;type:numeric(10,2);not null"`
	RushFee        decimal.Decimal `gorm:"column:rush_fee;type:numeric(10,2);not null"`
	RushApplied    bool            `gorm:"column:rush_applied;not null;default:false"`

	Driver       *Driver               `gorm:"foreignKey:DriverID"`
	Store        *Store                `gorm:"foreignKey:StoreID"`
	Proofs       []ProofRecord         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Instructions *DeliveryInstructions `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
