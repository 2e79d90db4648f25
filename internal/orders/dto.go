package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/internal/pricing"
	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// PreviewInput quotes a trip without creating an order.
type PreviewInput struct {
	StoreID        uuid.UUID
	DropoffAddress string
	DeliverBefore  *time.Time
	DeliverAfter   *time.Time
}

// CreateInput carries everything needed to persist a new order in CREATED.
type CreateInput struct {
	StoreID        uuid.UUID
	RecipientName  string
	RecipientPhone string
	TagNumber      *string
	DropoffAddress string
	DeliverBefore  *time.Time
	DeliverAfter   *time.Time
	BuzzCode       *string
	Unit           *string
	Note           *string
}

// StoreStatusInput is a store-side transition request.
type StoreStatusInput struct {
	OrderID uuid.UUID
	StoreID uuid.UUID
	Target  enums.OrderStatus
}

// DriverStatusInput is a driver-side transition request.
type DriverStatusInput struct {
	OrderID  uuid.UUID
	DriverID uuid.UUID
	Target   enums.OrderStatus
}

// UploadProofInput is one proof-of-delivery photo submission.
type UploadProofInput struct {
	OrderID  uuid.UUID
	DriverID uuid.UUID
	ImageURL string
}

// ListInput pages through a principal's orders.
type ListInput struct {
	ActorID uuid.UUID
	Limit   int
	Cursor  string
}

// PricingView is the money breakdown exposed on every order payload.
type PricingView struct {
	DriverPrice    float64 `json:"driver_price"`
	PlatformProfit float64 `json:"platform_profit"`
	ProfitRaw      float64 `json:"profit_raw"`
	StorePrice     float64 `json:"store_price"`
	RushFee        float64 `json:"rush_fee"`
	RushApplied    bool    `json:"rush_applied"`
}

// PreviewResult mirrors the quote surface: total_price is the store total
// including any rush fee, base_price the pre-surcharge subtotal.
type PreviewResult struct {
	DistanceKm float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
	PricingView
	TotalPrice    float64 `json:"total_price"`
	BasePrice     float64 `json:"base_price"`
	PickupAddress string  `json:"pickup_address"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropoffLat    float64 `json:"dropoff_lat"`
	DropoffLng    float64 `json:"dropoff_lng"`
}

// CreateResult confirms the persisted order and echoes its stored quote.
type CreateResult struct {
	Success    bool      `json:"success"`
	ID         uuid.UUID `json:"id"`
	DistanceKm float64   `json:"distance_km"`
	ETAMinutes int       `json:"eta_minutes"`
	PricingView
	TotalPrice float64 `json:"total_price"`
	BasePrice  float64 `json:"base_price"`
}

// PartySummary is the compact store/driver identity attached to order views.
type PartySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

// InstructionsView is the optional delivery-instructions attachment.
type InstructionsView struct {
	BuzzCode *string `json:"buzz_code"`
	Unit     *string `json:"unit"`
	Note     *string `json:"note"`
}

// OrderView is one order as returned by the list endpoints.
type OrderView struct {
	ID             uuid.UUID         `json:"id"`
	Status         enums.OrderStatus `json:"status"`
	RecipientName  string            `json:"recipient_name"`
	RecipientPhone string            `json:"recipient_phone"`
	TagNumber      *string           `json:"tag_number"`
	PickupAddress  string            `json:"pickup_address"`
	PickupLat      float64           `json:"pickup_lat"`
	PickupLng      float64           `json:"pickup_lng"`
	DropoffAddress string            `json:"dropoff_address"`
	DropoffLat     float64           `json:"dropoff_lat"`
	DropoffLng     float64           `json:"dropoff_lng"`
	DistanceKm     float64           `json:"distance_km"`
	ETAMinutes     int               `json:"eta_minutes"`
	DeliverAfter   *time.Time        `json:"deliver_after"`
	DeliverBefore  *time.Time        `json:"deliver_before"`
	PricingView
	TotalPrice   float64           `json:"total_price"`
	ProofImages  []string          `json:"proof_images"`
	Instructions *InstructionsView `json:"instructions"`
	Driver       *PartySummary     `json:"driver"`
	Store        *PartySummary     `json:"store,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps a page of order views.
type OrderList struct {
	Items  []OrderView `json:"items"`
	Cursor string      `json:"cursor"`
}

func pricingViewFromBreakdown(b pricing.Breakdown) PricingView {
	return PricingView{
		DriverPrice:    b.DriverPrice.InexactFloat64(),
		PlatformProfit: b.PlatformProfit.InexactFloat64(),
		ProfitRaw:      b.ProfitRaw.InexactFloat64(),
		StorePrice:     b.StorePrice.InexactFloat64(),
		RushFee:        b.RushFee.InexactFloat64(),
		RushApplied:    b.RushApplied,
	}
}

func pricingViewFromOrder(order *models.Order) PricingView {
	return PricingView{
		DriverPrice:    order.DriverPrice.InexactFloat64(),
		PlatformProfit: order.PlatformProfit.InexactFloat64(),
		ProfitRaw:      order.ProfitRaw.InexactFloat64(),
		StorePrice:     order.StorePrice.InexactFloat64(),
		RushFee:        order.RushFee.InexactFloat64(),
		RushApplied:    order.RushApplied,
	}
}

func orderView(order *models.Order) OrderView {
	view := OrderView{
		ID:             order.ID,
		Status:         order.Status,
		RecipientName:  order.RecipientName,
		RecipientPhone: order.RecipientPhone,
		TagNumber:      order.TagNumber,
		PickupAddress:  order.PickupAddress,
		PickupLat:      order.PickupLat,
		PickupLng:      order.PickupLng,
		DropoffAddress: order.DropoffAddress,
		DropoffLat:     order.DropoffLat,
		DropoffLng:     order.DropoffLng,
		DistanceKm:     order.DistanceKm,
		ETAMinutes:     order.ETAMinutes,
		DeliverAfter:   order.DeliverAfter,
		DeliverBefore:  order.DeliverBefore,
		PricingView:    pricingViewFromOrder(order),
		TotalPrice:     order.StorePrice.InexactFloat64(),
		ProofImages:    []string{},
		CreatedAt:      order.CreatedAt,
	}

	for _, proof := range order.Proofs {
		view.ProofImages = append(view.ProofImages, proof.ImageURL)
	}
	if order.Instructions != nil {
		view.Instructions = &InstructionsView{
			BuzzCode: order.Instructions.BuzzCode,
			Unit:     order.Instructions.Unit,
			Note:     order.Instructions.Note,
		}
	}
	if order.Driver != nil {
		view.Driver = &PartySummary{
			ID:    order.Driver.ID,
			Name:  order.Driver.Name,
			Phone: order.Driver.Phone,
		}
	}
	if order.Store != nil {
		view.Store = &PartySummary{
			ID:    order.Store.ID,
			Name:  order.Store.Name,
			Phone: order.Store.Phone,
		}
	}
	return view
}
