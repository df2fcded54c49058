package dto

type CreateSMMOrderRequest struct {
	UserID    uint   `json:"-"`
	ServiceID int    `json:"service_id" validate:"required,min=1"`
	Link      string `json:"link" validate:"required,url,max=2048"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type SMMOrderDTO struct {
	ID              uint   `json:"id"`
	UUID            string `json:"uuid"`
	ProviderOrderID string `json:"provider_order_id"`
	ServiceID       int    `json:"service_id"`
	Link            string `json:"link"`
	Quantity        int    `json:"quantity"`
	Charge          string `json:"charge"`
	StartCount      int    `json:"start_count"`
	Remains         int    `json:"remains"`
	Status          string `json:"status"`
	RefundAmount    string `json:"refund_amount"`
	CreatedAt       string `json:"created_at"`
}

type CreateSMSOrderRequest struct {
	UserID  uint   `json:"-"`
	Service string `json:"service" validate:"required,max=100"`
	Country string `json:"country" validate:"required,max=100"`
}

type SMSOrderDTO struct {
	ID          uint   `json:"id"`
	UUID        string `json:"uuid"`
	OrderCode   string `json:"order_code"`
	Service     string `json:"service"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
	Code        string `json:"code,omitempty"`
	Status      string `json:"status"`
	Remaining   int    `json:"remaining"`
	CreatedAt   string `json:"created_at"`
}

type PurchaseProductRequest struct {
	UserID    uint `json:"-"`
	ProductID uint `json:"-"`
}

type ProductDTO struct {
	ID          uint     `json:"id"`
	Platform    string   `json:"platform"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Features    []string `json:"features"`
	Status      string   `json:"status"`
}

type ProductPurchaseResponse struct {
	PurchaseID  uint   `json:"purchase_id"`
	ProductID   uint   `json:"product_id"`
	Price       string `json:"price"`
	Credentials string `json:"credentials"`
	Balance     string `json:"balance"`
}

type ListOrdersRequest struct {
	UserID   uint `json:"-"`
	Page     int  `query:"page" validate:"omitempty,min=1"`
	PageSize int  `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type ListSMMOrdersResponse struct {
	Items    []SMMOrderDTO `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type ListSMSOrdersResponse struct {
	Items    []SMSOrderDTO `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type ListProductsRequest struct {
	Platform string `query:"platform" validate:"omitempty,max=50"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type ListProductsResponse struct {
	Items    []ProductDTO `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type SMMServiceDTO struct {
	ID       int    `json:"service"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Rate     string `json:"rate"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}
