package testing

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/amirphl/smm-panel/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext behind every seeded password hash
const TestPassword = "TestPass123!"

// TestFixtures seeds ledger rows into a MemStore
type TestFixtures struct {
	Store *MemStore
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(store *MemStore) *TestFixtures {
	return &TestFixtures{Store: store}
}

func hashPassword() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

// CreateUser seeds an active user holding balance in currency
func (tf *TestFixtures) CreateUser(currency string, balance string) *models.User {
	n := rand.Intn(1_000_000_000)
	user := &models.User{
		Email:        fmt.Sprintf("user.%d@example.com", n),
		Username:     fmt.Sprintf("user%d", n),
		PasswordHash: hashPassword(),
		Balance:      decimal.RequireFromString(balance),
		Currency:     currency,
	}
	if err := tf.Store.Users().Save(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

// CreateAdmin seeds an active admin
func (tf *TestFixtures) CreateAdmin(username string) *models.Admin {
	admin := &models.Admin{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashPassword(),
	}
	if err := tf.Store.Admins().Save(context.Background(), admin); err != nil {
		panic(err)
	}
	return admin
}

// LinkReferral records that referrer brought in referred
func (tf *TestFixtures) LinkReferral(referrer, referred *models.User) *models.Referral {
	ref := &models.Referral{ReferrerID: referrer.ID, ReferredID: referred.ID}
	if err := tf.Store.Referrals().Save(context.Background(), ref); err != nil {
		panic(err)
	}
	return ref
}

// CreateBankAccount seeds a payout destination for user
func (tf *TestFixtures) CreateBankAccount(user *models.User) *models.BankAccount {
	account := &models.BankAccount{
		UserID:        user.ID,
		BankName:      "First Bank",
		AccountNumber: fmt.Sprintf("%010d", rand.Intn(1_000_000_000)),
		AccountName:   user.Username,
	}
	if err := tf.Store.BankAccounts().Save(context.Background(), account); err != nil {
		panic(err)
	}
	return account
}

// CreateProduct seeds an available product at price
func (tf *TestFixtures) CreateProduct(platform, price string) *models.Product {
	product := &models.Product{
		Platform:    platform,
		Title:       platform + " account",
		Price:       decimal.RequireFromString(price),
		Credentials: "login:secret",
	}
	if err := tf.Store.Products().Save(context.Background(), product); err != nil {
		panic(err)
	}
	return product
}

// CreatePendingDeposit seeds a bank deposit awaiting review along with its
// pending transaction
func (tf *TestFixtures) CreatePendingDeposit(user *models.User, amount, reference string) *models.PendingDeposit {
	ctx := context.Background()
	deposit := &models.PendingDeposit{
		UserID:        user.ID,
		Amount:        decimal.RequireFromString(amount),
		Currency:      user.Currency,
		Reference:     reference,
		UserReference: "bank-ref-" + reference,
		ProofImage:    []byte{0x89, 'P', 'N', 'G'},
		ProofMimeType: "image/png",
	}
	if err := tf.Store.PendingDeposits().Save(ctx, deposit); err != nil {
		panic(err)
	}
	tx := &models.Transaction{
		UserID:    user.ID,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusPending,
		Amount:    deposit.Amount,
		Currency:  user.Currency,
		Provider:  models.TransactionProviderBank,
		Reference: reference,
	}
	if err := tf.Store.Transactions().Save(ctx, tx); err != nil {
		panic(err)
	}
	return deposit
}

// CreateSMMOrder seeds an open SMM order
func (tf *TestFixtures) CreateSMMOrder(user *models.User, providerOrderID string, quantity int, charge string) *models.SMMOrder {
	order := &models.SMMOrder{
		UserID:          user.ID,
		ProviderOrderID: providerOrderID,
		ServiceID:       1,
		Link:            "https://instagram.com/p/abc",
		Quantity:        quantity,
		Charge:          decimal.RequireFromString(charge),
		Status:          models.OrderStatusPending,
	}
	if err := tf.Store.SMMOrders().Save(context.Background(), order); err != nil {
		panic(err)
	}
	return order
}

// CreateSMSOrder seeds an open SMS order
func (tf *TestFixtures) CreateSMSOrder(user *models.User, orderCode string, amount string) *models.SMSOrder {
	order := &models.SMSOrder{
		UserID:      user.ID,
		OrderCode:   orderCode,
		Service:     "whatsapp",
		Country:     "NG",
		PhoneNumber: "+2348000000000",
		Amount:      decimal.RequireFromString(amount),
		Status:      models.OrderStatusPending,
	}
	if err := tf.Store.SMSOrders().Save(context.Background(), order); err != nil {
		panic(err)
	}
	return order
}
