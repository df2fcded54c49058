package testing

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memTxKey struct{}

type table[T any] map[uint]T

func (t table[T]) clone() table[T] {
	c := make(table[T], len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

func (t table[T]) sortedIDs() []uint {
	ids := make([]uint, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type memTables struct {
	users           table[models.User]
	admins          table[models.Admin]
	transactions    table[models.Transaction]
	pendingDeposits table[models.PendingDeposit]
	countedDeposits table[models.CountedDeposit]
	referrals       table[models.Referral]
	commissions     table[models.Commission]
	refWithdrawals  table[models.ReferralWithdrawal]
	bankAccounts    table[models.BankAccount]
	withdrawals     table[models.Withdrawal]
	notifications   table[models.Notification]
	smmOrders       table[models.SMMOrder]
	smsOrders       table[models.SMSOrder]
	products        table[models.Product]
	purchases       table[models.ProductPurchase]
	auditLogs       table[models.AuditLog]
}

func (m memTables) clone() memTables {
	return memTables{
		users:           m.users.clone(),
		admins:          m.admins.clone(),
		transactions:    m.transactions.clone(),
		pendingDeposits: m.pendingDeposits.clone(),
		countedDeposits: m.countedDeposits.clone(),
		referrals:       m.referrals.clone(),
		commissions:     m.commissions.clone(),
		refWithdrawals:  m.refWithdrawals.clone(),
		bankAccounts:    m.bankAccounts.clone(),
		withdrawals:     m.withdrawals.clone(),
		notifications:   m.notifications.clone(),
		smmOrders:       m.smmOrders.clone(),
		smsOrders:       m.smsOrders.clone(),
		products:        m.products.clone(),
		purchases:       m.purchases.clone(),
		auditLogs:       m.auditLogs.clone(),
	}
}

// MemStore is an in-memory implementation of every repository interface.
// Transactions are serialised by one mutex and rolled back from a snapshot
// when the unit of work fails.
type MemStore struct {
	mu     sync.Mutex
	nextID uint
	t      memTables

	// FailSave, when set, is consulted before every insert with the table
	// name; a non-nil result is returned as the insert error.
	FailSave func(table string) error
}

func NewMemStore() *MemStore {
	return &MemStore{
		t: memTables{
			users:           table[models.User]{},
			admins:          table[models.Admin]{},
			transactions:    table[models.Transaction]{},
			pendingDeposits: table[models.PendingDeposit]{},
			countedDeposits: table[models.CountedDeposit]{},
			referrals:       table[models.Referral]{},
			commissions:     table[models.Commission]{},
			refWithdrawals:  table[models.ReferralWithdrawal]{},
			bankAccounts:    table[models.BankAccount]{},
			withdrawals:     table[models.Withdrawal]{},
			notifications:   table[models.Notification]{},
			smmOrders:       table[models.SMMOrder]{},
			smsOrders:       table[models.SMSOrder]{},
			products:        table[models.Product]{},
			purchases:       table[models.ProductPurchase]{},
			auditLogs:       table[models.AuditLog]{},
		},
	}
}

// Do implements repository.Transactor
func (s *MemStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, nextID := s.t.clone(), s.nextID
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.t, s.nextID = snapshot, nextID
		return err
	}
	return nil
}

// enter locks the store unless ctx is inside Do
func (s *MemStore) enter(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemStore) checkSave(name string) error {
	if s.FailSave != nil {
		return s.FailSave(name)
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = now()
	}
}

func ptr[T any](v T) *T { return &v }

func (s *MemStore) Users() repository.UserRepository { return memUsers{s} }
func (s *MemStore) Admins() repository.AdminRepository { return memAdmins{s} }
func (s *MemStore) Transactions() repository.TransactionRepository { return memTransactions{s} }
func (s *MemStore) PendingDeposits() repository.PendingDepositRepository { return memPendingDeposits{s} }
func (s *MemStore) CountedDeposits() repository.CountedDepositRepository { return memCountedDeposits{s} }
func (s *MemStore) Referrals() repository.ReferralRepository { return memReferrals{s} }
func (s *MemStore) Commissions() repository.CommissionRepository { return memCommissions{s} }
func (s *MemStore) ReferralWithdrawals() repository.ReferralWithdrawalRepository { return memRefWithdrawals{s} }
func (s *MemStore) BankAccounts() repository.BankAccountRepository { return memBankAccounts{s} }
func (s *MemStore) Withdrawals() repository.WithdrawalRepository { return memWithdrawals{s} }
func (s *MemStore) Notifications() repository.NotificationRepository { return memNotifications{s} }
func (s *MemStore) SMMOrders() repository.SMMOrderRepository { return memSMMOrders{s} }
func (s *MemStore) SMSOrders() repository.SMSOrderRepository { return memSMSOrders{s} }
func (s *MemStore) Products() repository.ProductRepository { return memProducts{s} }
func (s *MemStore) AuditLogs() repository.AuditLogRepository { return memAuditLogs{s} }

// Inspection helpers for assertions

func (s *MemStore) User(id uint) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.users[id]
}

func (s *MemStore) AllTransactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.transactions)
}

func (s *MemStore) AllNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.notifications)
}

func (s *MemStore) AllCommissions() []models.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.commissions)
}

func (s *MemStore) AllCountedDeposits() []models.CountedDeposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.countedDeposits)
}

func (s *MemStore) AllAuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.auditLogs)
}

func (s *MemStore) AllWithdrawals() []models.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.withdrawals)
}

func (s *MemStore) AllSMMOrders() []models.SMMOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.smmOrders)
}

func (s *MemStore) AllSMSOrders() []models.SMSOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.t.smsOrders)
}

// SetSMSOrderState overwrites an order's status and last-write time
func (s *MemStore) SetSMSOrderState(id uint, status models.OrderStatus, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.t.smsOrders[id]
	o.Status = status
	o.UpdatedAt = updatedAt
	s.t.smsOrders[id] = o
}

func (s *MemStore) PendingDeposit(id uint) models.PendingDeposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.pendingDeposits[id]
}

func (s *MemStore) Referral(referredID uint) *models.Referral {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.t.referrals {
		if r.ReferredID == referredID {
			return &r
		}
	}
	return nil
}

func values[T any](t table[T]) []T {
	out := make([]T, 0, len(t))
	for _, id := range t.sortedIDs() {
		out = append(out, t[id])
	}
	return out
}

func page[T any](rows []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// newestFirst returns rows sorted by descending id
func newestFirst[T any](t table[T], keep func(T) bool) []*T {
	ids := t.sortedIDs()
	out := make([]*T, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		v := t[ids[i]]
		if keep(v) {
			out = append(out, &v)
		}
	}
	return out
}

func openStatus(s models.OrderStatus) bool {
	for _, st := range models.NonTerminalOrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// users

type memUsers struct{ s *MemStore }

func (r memUsers) ByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.s.enter(ctx)()
	u, ok := r.s.t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.enter(ctx)()
	for _, u := range r.s.t.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) Save(ctx context.Context, user *models.User) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("users"); err != nil {
		return err
	}
	for _, u := range r.s.t.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.id()
	if user.UUID == uuid.Nil {
		user.UUID = uuid.New()
	}
	if user.Currency == "" {
		user.Currency = "NGN"
	}
	stamp(&user.CreatedAt)
	stamp(&user.UpdatedAt)
	r.s.t.users[user.ID] = *user
	return nil
}

func (r memUsers) apply(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField, sign int) (decimal.Decimal, error) {
	if !field.Valid() {
		return decimal.Zero, repository.ErrInvalidBalanceField
	}
	if !amount.IsPositive() {
		return decimal.Zero, repository.ErrNonPositiveAmount
	}
	defer r.s.enter(ctx)()
	u, ok := r.s.t.users[userID]
	if !ok {
		return decimal.Zero, repository.ErrUserNotFound
	}
	current := u.BalanceOf(field)
	if sign < 0 {
		if current.LessThan(amount) {
			return decimal.Zero, repository.ErrInsufficientFunds
		}
		current = current.Sub(amount)
	} else {
		current = current.Add(amount)
	}
	if field == models.BalanceFieldBusiness {
		u.BusinessBalance = current
	} else {
		u.Balance = current
	}
	u.UpdatedAt = now()
	r.s.t.users[userID] = u
	return current, nil
}

func (r memUsers) Credit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error) {
	return r.apply(ctx, userID, amount, field, 1)
}

func (r memUsers) Debit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error) {
	return r.apply(ctx, userID, amount, field, -1)
}

func (r memUsers) LockByID(ctx context.Context, id uint) (*models.User, error) {
	return r.ByID(ctx, id)
}

func (r memUsers) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	defer r.s.enter(ctx)()
	if u, ok := r.s.t.users[id]; ok {
		u.LastLoginAt = &at
		r.s.t.users[id] = u
	}
	return nil
}

// admins

type memAdmins struct{ s *MemStore }

func (r memAdmins) ByID(ctx context.Context, id uint) (*models.Admin, error) {
	defer r.s.enter(ctx)()
	a, ok := r.s.t.admins[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memAdmins) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	defer r.s.enter(ctx)()
	for _, a := range r.s.t.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAdmins) Save(ctx context.Context, admin *models.Admin) error {
	defer r.s.enter(ctx)()
	admin.ID = r.s.id()
	if admin.UUID == uuid.Nil {
		admin.UUID = uuid.New()
	}
	if admin.IsActive == nil {
		admin.IsActive = ptr(true)
	}
	stamp(&admin.CreatedAt)
	r.s.t.admins[admin.ID] = *admin
	return nil
}

func (r memAdmins) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	defer r.s.enter(ctx)()
	if a, ok := r.s.t.admins[id]; ok {
		a.LastLoginAt = &at
		r.s.t.admins[id] = a
	}
	return nil
}

// transactions

type memTransactions struct{ s *MemStore }

func (r memTransactions) ByID(ctx context.Context, id uint) (*models.Transaction, error) {
	defer r.s.enter(ctx)()
	t, ok := r.s.t.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTransactions) ByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	defer r.s.enter(ctx)()
	for _, t := range r.s.t.transactions {
		if t.Reference == reference {
			return &t, nil
		}
	}
	return nil, nil
}

func (r memTransactions) LockByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.ByReference(ctx, reference)
}

func (r memTransactions) ByFilter(ctx context.Context, f models.TransactionFilter, limit, offset int) ([]*models.Transaction, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.transactions, func(t models.Transaction) bool {
		return (f.ID == nil || t.ID == *f.ID) &&
			(f.UserID == nil || t.UserID == *f.UserID) &&
			(f.Type == nil || t.Type == *f.Type) &&
			(f.Status == nil || t.Status == *f.Status) &&
			(f.Provider == nil || t.Provider == *f.Provider) &&
			(f.Reference == nil || t.Reference == *f.Reference)
	})
	return page(rows, limit, offset), nil
}

func (r memTransactions) Save(ctx context.Context, tx *models.Transaction) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("transactions"); err != nil {
		return err
	}
	for _, t := range r.s.t.transactions {
		if t.Reference == tx.Reference {
			return repository.ErrDuplicate
		}
	}
	tx.ID = r.s.id()
	if tx.UUID == uuid.Nil {
		tx.UUID = uuid.New()
	}
	if tx.Status == "" {
		tx.Status = models.TransactionStatusPending
	}
	if len(tx.Metadata) == 0 {
		tx.Metadata = json.RawMessage(`{}`)
	}
	stamp(&tx.CreatedAt)
	stamp(&tx.UpdatedAt)
	r.s.t.transactions[tx.ID] = *tx
	return nil
}

func (r memTransactions) UpdateStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, metadata json.RawMessage) (bool, error) {
	defer r.s.enter(ctx)()
	t, ok := r.s.t.transactions[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = status
	if len(metadata) > 0 {
		t.Metadata = metadata
	}
	t.UpdatedAt = now()
	r.s.t.transactions[id] = t
	return true, nil
}

// pending deposits

type memPendingDeposits struct{ s *MemStore }

func (r memPendingDeposits) ByID(ctx context.Context, id uint) (*models.PendingDeposit, error) {
	defer r.s.enter(ctx)()
	d, ok := r.s.t.pendingDeposits[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r memPendingDeposits) LockByID(ctx context.Context, id uint) (*models.PendingDeposit, error) {
	return r.ByID(ctx, id)
}

func (r memPendingDeposits) ByFilter(ctx context.Context, f models.PendingDepositFilter, limit, offset int) ([]*models.PendingDeposit, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.pendingDeposits, func(d models.PendingDeposit) bool {
		return (f.ID == nil || d.ID == *f.ID) &&
			(f.UserID == nil || d.UserID == *f.UserID) &&
			(f.Status == nil || d.Status == *f.Status) &&
			(f.Reference == nil || d.Reference == *f.Reference)
	})
	for _, d := range rows {
		d.ProofImage = nil
	}
	return page(rows, limit, offset), nil
}

func (r memPendingDeposits) Save(ctx context.Context, d *models.PendingDeposit) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("pending_deposits"); err != nil {
		return err
	}
	for _, existing := range r.s.t.pendingDeposits {
		if existing.Reference == d.Reference {
			return repository.ErrDuplicate
		}
	}
	d.ID = r.s.id()
	if d.Status == "" {
		d.Status = models.PendingDepositStatusPending
	}
	stamp(&d.CreatedAt)
	stamp(&d.UpdatedAt)
	r.s.t.pendingDeposits[d.ID] = *d
	return nil
}

func (r memPendingDeposits) MarkReviewed(ctx context.Context, id uint, status models.PendingDepositStatus, adminID uint, note *string, at time.Time) (bool, error) {
	defer r.s.enter(ctx)()
	d, ok := r.s.t.pendingDeposits[id]
	if !ok || d.Status != models.PendingDepositStatusPending {
		return false, nil
	}
	d.Status = status
	d.ReviewedBy = ptr(adminID)
	d.ReviewedAt = ptr(at)
	d.ReviewNote = note
	d.UpdatedAt = at
	r.s.t.pendingDeposits[id] = d
	return true, nil
}

// counted deposits

type memCountedDeposits struct{ s *MemStore }

func (r memCountedDeposits) CountByUser(ctx context.Context, userID uint) (int64, error) {
	defer r.s.enter(ctx)()
	var n int64
	for _, d := range r.s.t.countedDeposits {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r memCountedDeposits) Save(ctx context.Context, d *models.CountedDeposit) error {
	defer r.s.enter(ctx)()
	for _, existing := range r.s.t.countedDeposits {
		if existing.UserID == d.UserID && existing.DepositNumber == d.DepositNumber {
			return repository.ErrDuplicate
		}
	}
	d.ID = r.s.id()
	stamp(&d.CreatedAt)
	r.s.t.countedDeposits[d.ID] = *d
	return nil
}

// referrals

type memReferrals struct{ s *MemStore }

func (r memReferrals) Save(ctx context.Context, ref *models.Referral) error {
	defer r.s.enter(ctx)()
	for _, existing := range r.s.t.referrals {
		if existing.ReferredID == ref.ReferredID {
			return repository.ErrDuplicate
		}
	}
	ref.ID = r.s.id()
	stamp(&ref.CreatedAt)
	stamp(&ref.UpdatedAt)
	r.s.t.referrals[ref.ID] = *ref
	return nil
}

func (r memReferrals) LockByReferredID(ctx context.Context, referredID uint) (*models.Referral, error) {
	defer r.s.enter(ctx)()
	for _, ref := range r.s.t.referrals {
		if ref.ReferredID == referredID {
			return &ref, nil
		}
	}
	return nil, nil
}

func (r memReferrals) MarkCommissionEarned(ctx context.Context, id uint) error {
	defer r.s.enter(ctx)()
	if ref, ok := r.s.t.referrals[id]; ok {
		ref.CommissionEarned = true
		ref.UpdatedAt = now()
		r.s.t.referrals[id] = ref
	}
	return nil
}

func (r memReferrals) CountByReferrer(ctx context.Context, referrerID uint) (int64, error) {
	defer r.s.enter(ctx)()
	var n int64
	for _, ref := range r.s.t.referrals {
		if ref.ReferrerID == referrerID {
			n++
		}
	}
	return n, nil
}

// commissions

type memCommissions struct{ s *MemStore }

func (r memCommissions) Save(ctx context.Context, c *models.Commission) error {
	ok, err := r.SaveIfAbsent(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDuplicate
	}
	return nil
}

func (r memCommissions) SaveIfAbsent(ctx context.Context, c *models.Commission) (bool, error) {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("commissions"); err != nil {
		return false, err
	}
	for _, existing := range r.s.t.commissions {
		if existing.ReferrerID == c.ReferrerID && existing.ReferredID == c.ReferredID && existing.DepositNumber == c.DepositNumber {
			return false, nil
		}
	}
	c.ID = r.s.id()
	stamp(&c.CreatedAt)
	r.s.t.commissions[c.ID] = *c
	return true, nil
}

func (r memCommissions) ListByReferrer(ctx context.Context, referrerID uint) ([]*models.Commission, error) {
	defer r.s.enter(ctx)()
	var out []*models.Commission
	for _, id := range r.s.t.commissions.sortedIDs() {
		c := r.s.t.commissions[id]
		if c.ReferrerID == referrerID {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memCommissions) SumByReferrer(ctx context.Context, referrerID uint) (decimal.Decimal, error) {
	defer r.s.enter(ctx)()
	total := decimal.Zero
	for _, c := range r.s.t.commissions {
		if c.ReferrerID == referrerID {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

// referral withdrawals

type memRefWithdrawals struct{ s *MemStore }

func (r memRefWithdrawals) Save(ctx context.Context, w *models.ReferralWithdrawal) error {
	defer r.s.enter(ctx)()
	w.ID = r.s.id()
	if w.Status == "" {
		w.Status = models.PayoutStatusPending
	}
	stamp(&w.CreatedAt)
	stamp(&w.UpdatedAt)
	r.s.t.refWithdrawals[w.ID] = *w
	return nil
}

func (r memRefWithdrawals) SumActiveByUser(ctx context.Context, userID uint) (decimal.Decimal, error) {
	defer r.s.enter(ctx)()
	total := decimal.Zero
	for _, w := range r.s.t.refWithdrawals {
		if w.UserID == userID && w.Status != models.PayoutStatusRejected {
			total = total.Add(w.Amount)
		}
	}
	return total, nil
}

// bank accounts

type memBankAccounts struct{ s *MemStore }

func (r memBankAccounts) ByID(ctx context.Context, id uint) (*models.BankAccount, error) {
	defer r.s.enter(ctx)()
	a, ok := r.s.t.bankAccounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memBankAccounts) ListByUser(ctx context.Context, userID uint) ([]*models.BankAccount, error) {
	defer r.s.enter(ctx)()
	var out []*models.BankAccount
	for _, id := range r.s.t.bankAccounts.sortedIDs() {
		a := r.s.t.bankAccounts[id]
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memBankAccounts) Save(ctx context.Context, a *models.BankAccount) error {
	defer r.s.enter(ctx)()
	a.ID = r.s.id()
	stamp(&a.CreatedAt)
	r.s.t.bankAccounts[a.ID] = *a
	return nil
}

// withdrawals

type memWithdrawals struct{ s *MemStore }

func (r memWithdrawals) ByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	defer r.s.enter(ctx)()
	w, ok := r.s.t.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memWithdrawals) LockByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	return r.ByID(ctx, id)
}

func (r memWithdrawals) ByFilter(ctx context.Context, f models.WithdrawalFilter, limit, offset int) ([]*models.Withdrawal, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.withdrawals, func(w models.Withdrawal) bool {
		return (f.ID == nil || w.ID == *f.ID) &&
			(f.UserID == nil || w.UserID == *f.UserID) &&
			(f.Status == nil || w.Status == *f.Status)
	})
	return page(rows, limit, offset), nil
}

func (r memWithdrawals) Save(ctx context.Context, w *models.Withdrawal) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("withdrawals"); err != nil {
		return err
	}
	w.ID = r.s.id()
	if w.Status == "" {
		w.Status = models.PayoutStatusPending
	}
	stamp(&w.CreatedAt)
	stamp(&w.UpdatedAt)
	r.s.t.withdrawals[w.ID] = *w
	return nil
}

func (r memWithdrawals) MarkReviewed(ctx context.Context, id uint, status models.PayoutStatus, adminID uint, at time.Time) (bool, error) {
	defer r.s.enter(ctx)()
	w, ok := r.s.t.withdrawals[id]
	if !ok || w.Status != models.PayoutStatusPending {
		return false, nil
	}
	w.Status = status
	w.ReviewedBy = ptr(adminID)
	w.ReviewedAt = ptr(at)
	w.UpdatedAt = at
	r.s.t.withdrawals[id] = w
	return true, nil
}

// notifications

type memNotifications struct{ s *MemStore }

func (r memNotifications) Save(ctx context.Context, n *models.Notification) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("notifications"); err != nil {
		return err
	}
	n.ID = r.s.id()
	stamp(&n.CreatedAt)
	r.s.t.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.notifications, func(n models.Notification) bool { return n.UserID == userID })
	return page(rows, limit, offset), nil
}

// smm orders

type memSMMOrders struct{ s *MemStore }

func (r memSMMOrders) ByID(ctx context.Context, id uint) (*models.SMMOrder, error) {
	defer r.s.enter(ctx)()
	o, ok := r.s.t.smmOrders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r memSMMOrders) Save(ctx context.Context, o *models.SMMOrder) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("smm_orders"); err != nil {
		return err
	}
	o.ID = r.s.id()
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	stamp(&o.CreatedAt)
	stamp(&o.UpdatedAt)
	r.s.t.smmOrders[o.ID] = *o
	return nil
}

func (r memSMMOrders) Update(ctx context.Context, o *models.SMMOrder) error {
	defer r.s.enter(ctx)()
	o.UpdatedAt = now()
	r.s.t.smmOrders[o.ID] = *o
	return nil
}

func (r memSMMOrders) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMMOrder, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.smmOrders, func(o models.SMMOrder) bool { return o.UserID == userID })
	return page(rows, limit, offset), nil
}

func (r memSMMOrders) ListOpen(ctx context.Context, afterID uint, limit int) ([]*models.SMMOrder, error) {
	defer r.s.enter(ctx)()
	var out []*models.SMMOrder
	for _, id := range r.s.t.smmOrders.sortedIDs() {
		o := r.s.t.smmOrders[id]
		if id > afterID && openStatus(o.Status) {
			out = append(out, &o)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r memSMMOrders) ClaimByID(ctx context.Context, id uint) (*models.SMMOrder, error) {
	return r.ByID(ctx, id)
}

// sms orders

type memSMSOrders struct{ s *MemStore }

func (r memSMSOrders) ByID(ctx context.Context, id uint) (*models.SMSOrder, error) {
	defer r.s.enter(ctx)()
	o, ok := r.s.t.smsOrders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r memSMSOrders) Save(ctx context.Context, o *models.SMSOrder) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("sms_orders"); err != nil {
		return err
	}
	o.ID = r.s.id()
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	stamp(&o.CreatedAt)
	stamp(&o.UpdatedAt)
	r.s.t.smsOrders[o.ID] = *o
	return nil
}

func (r memSMSOrders) Update(ctx context.Context, o *models.SMSOrder) error {
	defer r.s.enter(ctx)()
	o.UpdatedAt = now()
	r.s.t.smsOrders[o.ID] = *o
	return nil
}

func (r memSMSOrders) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMSOrder, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.smsOrders, func(o models.SMSOrder) bool { return o.UserID == userID })
	return page(rows, limit, offset), nil
}

func (r memSMSOrders) ListUsersWithOpenOrders(ctx context.Context) ([]uint, error) {
	defer r.s.enter(ctx)()
	seen := map[uint]bool{}
	var out []uint
	for _, id := range r.s.t.smsOrders.sortedIDs() {
		o := r.s.t.smsOrders[id]
		if o.Status.SMSWatched(o.UpdatedAt, now()) && !seen[o.UserID] {
			seen[o.UserID] = true
			out = append(out, o.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r memSMSOrders) ListOpenByUser(ctx context.Context, userID uint) ([]*models.SMSOrder, error) {
	defer r.s.enter(ctx)()
	var out []*models.SMSOrder
	for _, id := range r.s.t.smsOrders.sortedIDs() {
		o := r.s.t.smsOrders[id]
		if o.UserID == userID && o.Status.SMSWatched(o.UpdatedAt, now()) {
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r memSMSOrders) ClaimByID(ctx context.Context, id uint) (*models.SMSOrder, error) {
	return r.ByID(ctx, id)
}

// products

type memProducts struct{ s *MemStore }

func (r memProducts) ByID(ctx context.Context, id uint) (*models.Product, error) {
	defer r.s.enter(ctx)()
	p, ok := r.s.t.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memProducts) LockByID(ctx context.Context, id uint) (*models.Product, error) {
	return r.ByID(ctx, id)
}

func (r memProducts) ByFilter(ctx context.Context, f models.ProductFilter, limit, offset int) ([]*models.Product, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.products, func(p models.Product) bool {
		return (f.Platform == nil || p.Platform == *f.Platform) &&
			(f.Status == nil || p.Status == *f.Status)
	})
	return page(rows, limit, offset), nil
}

func (r memProducts) Save(ctx context.Context, p *models.Product) error {
	defer r.s.enter(ctx)()
	p.ID = r.s.id()
	if p.Status == "" {
		p.Status = models.ProductStatusAvailable
	}
	stamp(&p.CreatedAt)
	stamp(&p.UpdatedAt)
	r.s.t.products[p.ID] = *p
	return nil
}

func (r memProducts) MarkSold(ctx context.Context, id uint) (bool, error) {
	defer r.s.enter(ctx)()
	p, ok := r.s.t.products[id]
	if !ok || p.Status != models.ProductStatusAvailable {
		return false, nil
	}
	p.Status = models.ProductStatusSold
	p.UpdatedAt = now()
	r.s.t.products[id] = p
	return true, nil
}

func (r memProducts) SavePurchase(ctx context.Context, purchase *models.ProductPurchase) error {
	defer r.s.enter(ctx)()
	for _, existing := range r.s.t.purchases {
		if existing.ProductID == purchase.ProductID {
			return repository.ErrDuplicate
		}
	}
	purchase.ID = r.s.id()
	stamp(&purchase.CreatedAt)
	r.s.t.purchases[purchase.ID] = *purchase
	return nil
}

// audit logs

type memAuditLogs struct{ s *MemStore }

func (r memAuditLogs) Save(ctx context.Context, log *models.AuditLog) error {
	defer r.s.enter(ctx)()
	if err := r.s.checkSave("audit_log"); err != nil {
		return err
	}
	log.ID = r.s.id()
	stamp(&log.CreatedAt)
	r.s.t.auditLogs[log.ID] = *log
	return nil
}

func (r memAuditLogs) ByFilter(ctx context.Context, f models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error) {
	defer r.s.enter(ctx)()
	rows := newestFirst(r.s.t.auditLogs, func(a models.AuditLog) bool {
		return (f.Action == nil || a.Action == *f.Action) &&
			(f.EntityType == nil || a.EntityType == *f.EntityType) &&
			(f.EntityID == nil || a.EntityID == *f.EntityID)
	})
	return page(rows, limit, offset), nil
}
