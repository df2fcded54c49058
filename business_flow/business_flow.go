package businessflow

import (
	"encoding/json"
	"time"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// newAuditLog fills the request-scoped columns of an audit row
func newAuditLog(action, entityType, entityID, description string, metadata *ClientMetadata, extra map[string]any) *models.AuditLog {
	success := true
	entry := &models.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: &description,
		Success:     &success,
	}
	if metadata != nil {
		entry.IPAddress = optionalString(metadata.IPAddress)
		entry.UserAgent = optionalString(metadata.UserAgent)
		entry.RequestID = optionalString(metadata.RequestID)
	}
	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Metadata = b
		}
	}
	return entry
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizePage applies defaults and returns limit and offset
func normalizePage(page, pageSize int) (int, int, int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, pageSize, (page - 1) * pageSize
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ToTransactionDTO(tx *models.Transaction) dto.TransactionDTO {
	return dto.TransactionDTO{
		ID:          tx.ID,
		UUID:        tx.UUID.String(),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		Amount:      tx.Amount.StringFixed(2),
		Currency:    tx.Currency,
		Provider:    string(tx.Provider),
		Reference:   tx.Reference,
		Description: tx.Description,
		CreatedAt:   formatTime(tx.CreatedAt),
	}
}

func ToPendingDepositDTO(d *models.PendingDeposit) dto.PendingDepositDTO {
	return dto.PendingDepositDTO{
		ID:            d.ID,
		UserID:        d.UserID,
		Amount:        d.Amount.StringFixed(2),
		Currency:      d.Currency,
		Reference:     d.Reference,
		UserReference: d.UserReference,
		HasProof:      len(d.ProofImage) > 0,
		Status:        string(d.Status),
		ReviewedBy:    d.ReviewedBy,
		ReviewedAt:    utils.FormatRFC3339Ptr(d.ReviewedAt),
		ReviewNote:    d.ReviewNote,
		CreatedAt:     formatTime(d.CreatedAt),
	}
}

func ToWithdrawalDTO(w *models.Withdrawal) dto.WithdrawalDTO {
	return dto.WithdrawalDTO{
		ID:            w.ID,
		UserID:        w.UserID,
		BankAccountID: w.BankAccountID,
		Amount:        w.Amount.StringFixed(2),
		Reference:     w.Reference,
		Status:        string(w.Status),
		ReviewedAt:    utils.FormatRFC3339Ptr(w.ReviewedAt),
		CreatedAt:     formatTime(w.CreatedAt),
	}
}

func ToSMMOrderDTO(o *models.SMMOrder) dto.SMMOrderDTO {
	return dto.SMMOrderDTO{
		ID:              o.ID,
		UUID:            o.UUID.String(),
		ProviderOrderID: o.ProviderOrderID,
		ServiceID:       o.ServiceID,
		Link:            o.Link,
		Quantity:        o.Quantity,
		Charge:          o.Charge.StringFixed(2),
		StartCount:      o.StartCount,
		Remains:         o.Remains,
		Status:          string(o.Status),
		RefundAmount:    o.RefundAmount.StringFixed(2),
		CreatedAt:       formatTime(o.CreatedAt),
	}
}

func ToSMSOrderDTO(o *models.SMSOrder) dto.SMSOrderDTO {
	return dto.SMSOrderDTO{
		ID:          o.ID,
		UUID:        o.UUID.String(),
		OrderCode:   o.OrderCode,
		Service:     o.Service,
		Country:     o.Country,
		PhoneNumber: o.PhoneNumber,
		Amount:      o.Amount.StringFixed(2),
		Code:        o.Code,
		Status:      string(o.Status),
		Remaining:   o.Remaining,
		CreatedAt:   formatTime(o.CreatedAt),
	}
}

func ToProductDTO(p *models.Product) dto.ProductDTO {
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}
	return dto.ProductDTO{
		ID:          p.ID,
		Platform:    p.Platform,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Features:    features,
		Status:      string(p.Status),
	}
}
