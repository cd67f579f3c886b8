package portone

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation names used in errors, logs and metrics
const (
	OpGetPayment         = "get_payment"
	OpCreateSchedule     = "create_schedule"
	OpListSchedules      = "list_schedules"
	OpCancelSchedules    = "cancel_schedules"
	OpChargeBillingKey   = "charge_billing_key"
	OpCancelPayment      = "cancel_payment"
	authorizationScheme  = "PortOne"
	defaultCurrency      = "KRW"
	listSchedulesPageLen = 100
)

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// amountBody decodes numbers or numeric strings
type amountBody struct {
	Total decimal.Decimal `json:"total"`
}

type requestAmount struct {
	Total int64 `json:"total"`
}

type customerName struct {
	Full string `json:"full,omitempty"`
}

type customerBody struct {
	Name  *customerName `json:"name,omitempty"`
	ID    string        `json:"id,omitempty"`
	Email string        `json:"email,omitempty"`
}

type paymentResponse struct {
	PaidAt     *time.Time    `json:"paidAt,omitempty"`
	Customer   *customerBody `json:"customer,omitempty"`
	Amount     *amountBody   `json:"amount"`
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	BillingKey string        `json:"billingKey,omitempty"`
	OrderName  string        `json:"orderName"`
	Currency   string        `json:"currency"`
}

type schedulePayment struct {
	Customer   *customerBody `json:"customer,omitempty"`
	Amount     requestAmount `json:"amount"`
	StoreID    string        `json:"storeId,omitempty"`
	BillingKey string        `json:"billingKey"`
	OrderName  string        `json:"orderName"`
	Currency   string        `json:"currency"`
}

type createScheduleRequest struct {
	TimeToPay time.Time       `json:"timeToPay"`
	Payment   schedulePayment `json:"payment"`
}

type createScheduleResponse struct {
	Schedule struct {
		ID string `json:"id"`
	} `json:"schedule"`
}

type scheduleFilter struct {
	From       time.Time `json:"from"`
	Until      time.Time `json:"until"`
	StoreID    string    `json:"storeId,omitempty"`
	BillingKey string    `json:"billingKey"`
}

type pageInput struct {
	Number int `json:"number"`
	Size   int `json:"size"`
}

type listSchedulesRequest struct {
	Page   pageInput      `json:"page"`
	Filter scheduleFilter `json:"filter"`
}

type scheduleResponseItem struct {
	TimeToPay time.Time `json:"timeToPay"`
	ID        string    `json:"id"`
	PaymentID string    `json:"paymentId"`
	Status    string    `json:"status"`
}

type listSchedulesResponse struct {
	Items []scheduleResponseItem `json:"items"`
}

type cancelSchedulesRequest struct {
	StoreID     string   `json:"storeId,omitempty"`
	ScheduleIDs []string `json:"scheduleIds"`
}

type cancelSchedulesResponse struct {
	RevokedScheduleIDs []string `json:"revokedScheduleIds"`
}

type billingKeyPaymentRequest struct {
	Customer   *customerBody `json:"customer,omitempty"`
	Amount     requestAmount `json:"amount"`
	StoreID    string        `json:"storeId,omitempty"`
	BillingKey string        `json:"billingKey"`
	OrderName  string        `json:"orderName"`
	Currency   string        `json:"currency"`
}

type billingKeyPaymentResponse struct {
	Payment map[string]interface{} `json:"payment"`
}

type cancelPaymentRequest struct {
	StoreID string `json:"storeId,omitempty"`
	Reason  string `json:"reason"`
}
