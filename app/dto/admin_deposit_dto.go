package dto

// ReviewDepositRequest is the admin decision on one pending deposit
type ReviewDepositRequest struct {
	AdminID   uint    `json:"-"`
	DepositID uint    `json:"-"`
	Note      *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type ReviewDepositResponse struct {
	ID        uint   `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	UserID    uint   `json:"user_id"`
}

type AdminListDepositsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	UserID   *uint  `query:"user_id"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type PendingDepositDTO struct {
	ID            uint    `json:"id"`
	UserID        uint    `json:"user_id"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	Reference     string  `json:"reference"`
	UserReference string  `json:"user_reference"`
	HasProof      bool    `json:"has_proof"`
	Status        string  `json:"status"`
	ReviewedBy    *uint   `json:"reviewed_by,omitempty"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	ReviewNote    *string `json:"review_note,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type AdminListDepositsResponse struct {
	Items    []PendingDepositDTO `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// ProofImage is a stored bank-transfer proof
type ProofImage struct {
	Data     []byte
	MimeType string
}

// ExportFile is a generated spreadsheet download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
