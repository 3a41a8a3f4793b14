package http

import (
	"time"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/service/lifecycle"
)

type addressDTO struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
}

type itemRequest struct {
	ProductID  string `json:"productId" binding:"required"`
	VariantID  string `json:"variantId"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	Qty        int32  `json:"qty" binding:"required"`
	PriceMinor int64  `json:"priceMinor"`
}

type createOrderRequest struct {
	CustomerID      string        `json:"customerId"`
	CustomerName    string        `json:"customerName"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	ShippingAddress addressDTO    `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod" binding:"required"`
	ShippingMinor   int64         `json:"shippingMinor"`
	FeeMinor        int64         `json:"feeMinor"`
	Items           []itemRequest `json:"items" binding:"required"`
}

type editItemsRequest struct {
	Items []itemRequest `json:"items" binding:"required"`
}

type transitionRequest struct {
	Status  string `json:"status" binding:"required"`
	Courier string `json:"courier"`
	Reason  string `json:"reason"`
}

type resolveReturnRequest struct {
	Action string `json:"action" binding:"required"`
}

type paymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type adjustStockRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
	Change    int64  `json:"change" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Note      string `json:"note"`
}

type receivePORequest struct {
	PONumber string `json:"poNumber" binding:"required"`
	Lines    []struct {
		ProductID string `json:"productId" binding:"required"`
		VariantID string `json:"variantId"`
		Qty       int64  `json:"qty" binding:"required"`
	} `json:"lines" binding:"required"`
}

type verificationRequest struct {
	Action  string `json:"action" binding:"required"`
	Outcome string `json:"outcome" binding:"required"`
	Note    string `json:"note"`
}

type itemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	Name       string `json:"name,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"priceMinor"`
}

type orderResponse struct {
	ID                 string         `json:"id"`
	CustomerID         string         `json:"customerId,omitempty"`
	CustomerName       string         `json:"customerName,omitempty"`
	Email              string         `json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	ShippingAddress    addressDTO     `json:"shippingAddress"`
	Status             string         `json:"status"`
	PaymentStatus      string         `json:"paymentStatus"`
	PaymentMethod      string         `json:"paymentMethod"`
	ReturnStatus       string         `json:"returnStatus"`
	VerificationStatus string         `json:"verificationStatus"`
	LossMinor          int64          `json:"lossMinor"`
	CourierName        string         `json:"courierName,omitempty"`
	TrackingNumber     string         `json:"trackingNumber,omitempty"`
	SubtotalMinor      int64          `json:"subtotalMinor"`
	ShippingMinor      int64          `json:"shippingMinor"`
	FeeMinor           int64          `json:"feeMinor"`
	TotalMinor         int64          `json:"totalMinor"`
	Items              []itemResponse `json:"items"`
	Version            int64          `json:"version"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type orderDetailsResponse struct {
	orderResponse
	Timeline []timelineEventResponse `json:"timeline"`
}

type ledgerEntryResponse struct {
	ID       string    `json:"id"`
	SKU      string    `json:"sku"`
	Change   int64     `json:"change"`
	Reason   string    `json:"reason"`
	Note     string    `json:"note,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Seq      int64     `json:"seq"`
	Occurred time.Time `json:"occurred"`
}

type verificationEntryResponse struct {
	ID       string    `json:"id"`
	OrderID  string    `json:"orderId"`
	Action   string    `json:"action"`
	Outcome  string    `json:"outcome"`
	Note     string    `json:"note,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toItemParams(items []itemRequest) []lifecycle.ItemParams {
	params := make([]lifecycle.ItemParams, 0, len(items))
	for _, item := range items {
		params = append(params, lifecycle.ItemParams{
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Name:       item.Name,
			ImageURL:   item.ImageURL,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	return params
}

func toAddress(dto addressDTO) domain.Address {
	return domain.Address{
		Name:       dto.Name,
		Phone:      dto.Phone,
		Street:     dto.Street,
		City:       dto.City,
		Region:     dto.Region,
		PostalCode: dto.PostalCode,
	}
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]itemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Name:       item.Name,
			ImageURL:   item.ImageURL,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}

	return orderResponse{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		CustomerName: order.CustomerName,
		Email:        order.Email,
		Phone:        order.Phone,
		ShippingAddress: addressDTO{
			Name:       order.ShippingAddress.Name,
			Phone:      order.ShippingAddress.Phone,
			Street:     order.ShippingAddress.Street,
			City:       order.ShippingAddress.City,
			Region:     order.ShippingAddress.Region,
			PostalCode: order.ShippingAddress.PostalCode,
		},
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		PaymentMethod:      order.PaymentMethod,
		ReturnStatus:       string(order.ReturnStatus),
		VerificationStatus: string(order.VerificationStatus),
		LossMinor:          order.LossAmountMinor,
		CourierName:        order.CourierName,
		TrackingNumber:     order.TrackingNumber,
		SubtotalMinor:      order.SubtotalMinor,
		ShippingMinor:      order.ShippingMinor,
		FeeMinor:           order.FeeMinor,
		TotalMinor:         order.TotalMinor,
		Items:              items,
		Version:            order.Version,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

func toLedgerEntries(entries []domain.StockLedgerEntry) []ledgerEntryResponse {
	result := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, ledgerEntryResponse{
			ID:       entry.ID,
			SKU:      entry.SKU.Key(),
			Change:   entry.ChangeAmount,
			Reason:   string(entry.Reason),
			Note:     entry.Note,
			Actor:    entry.Actor,
			Seq:      entry.Seq,
			Occurred: entry.Occurred,
		})
	}
	return result
}
