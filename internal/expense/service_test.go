package expense_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/audit"
	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/cashledger"
	"github.com/harborops/fleetledger/internal/expense"
)

func TestExpense(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Service Suite")
}

// mockRepository keeps expenses and cash transactions in memory. InTransaction
// serializes on a mutex the way row locks serialize concurrent approvals
// against the database.
type mockRepository struct {
	mu        sync.Mutex
	expenses  map[int64]*expense.Expense
	cashTxs   []*cashledger.Transaction
	nextID    int64
	nextTxID  int64
	createErr error
	cashErr   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		expenses: make(map[int64]*expense.Expense),
		nextID:   1,
		nextTxID: 1,
	}
}

func (m *mockRepository) GetByID(vesselID, id int64) (*expense.Expense, error) {
	e, ok := m.expenses[id]
	if !ok || e.VesselID != vesselID || e.IsDeleted() {
		return nil, errors.ErrExpenseNotFound
	}
	return e, nil
}

func (m *mockRepository) GetByIDForUpdate(vesselID, id int64) (*expense.Expense, error) {
	return m.GetByID(vesselID, id)
}

func (m *mockRepository) List(vesselID int64, limit, offset int) ([]*expense.Expense, error) {
	var out []*expense.Expense
	for _, e := range m.expenses {
		if e.VesselID == vesselID && !e.IsDeleted() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepository) ListByCreator(vesselID, userID int64, limit, offset int) ([]*expense.Expense, error) {
	var out []*expense.Expense
	for _, e := range m.expenses {
		if e.VesselID == vesselID && e.CreatedByID == userID && !e.IsDeleted() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(e *expense.Expense) error {
	if m.createErr != nil {
		return m.createErr
	}
	e.ID = m.nextID
	m.nextID++
	m.expenses[e.ID] = e
	return nil
}

func (m *mockRepository) Update(id int64, updates map[string]interface{}) error {
	e, ok := m.expenses[id]
	if !ok {
		return errors.ErrExpenseNotFound
	}
	for col, val := range updates {
		switch col {
		case "status":
			e.Status = val.(expense.Status)
		case "approved_by_id":
			if val == nil {
				e.ApprovedByID = nil
			} else {
				id := val.(int64)
				e.ApprovedByID = &id
			}
		case "notes":
			e.Notes = val.(string)
		case "is_reimbursed":
			e.Reimbursed = val.(bool)
		case "reimbursed_at":
			if val == nil {
				e.ReimbursedAt = nil
			} else {
				at := val.(time.Time)
				e.ReimbursedAt = &at
			}
		case "amount":
			e.Amount = val.(decimal.Decimal)
		case "description":
			e.Description = val.(string)
		case "updated_at":
			e.UpdatedAt = val.(time.Time)
		}
	}
	return nil
}

func (m *mockRepository) SoftDelete(id, deletedBy int64, at time.Time) error {
	e, ok := m.expenses[id]
	if !ok {
		return errors.ErrExpenseNotFound
	}
	e.DeletedAt = &at
	e.DeletedByID = &deletedBy
	return nil
}

func (m *mockRepository) ActiveCashTransaction(vesselID, expenseID int64) (*cashledger.Transaction, error) {
	for _, tx := range m.cashTxs {
		if tx.VesselID == vesselID && tx.ExpenseID != nil && *tx.ExpenseID == expenseID && !tx.IsDeleted() {
			return tx, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) CreateCashTransaction(tx *cashledger.Transaction) error {
	if m.cashErr != nil {
		return m.cashErr
	}
	tx.ID = m.nextTxID
	m.nextTxID++
	m.cashTxs = append(m.cashTxs, tx)
	return nil
}

func (m *mockRepository) CashBalance(vesselID int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, tx := range m.cashTxs {
		if tx.VesselID != vesselID || tx.IsDeleted() {
			continue
		}
		if tx.Type == cashledger.TypeDeposit {
			balance = balance.Add(tx.Amount)
		} else {
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance, nil
}

func (m *mockRepository) InTransaction(fn func(expense.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

// activeWithdrawals counts non-deleted withdrawals linked to an expense.
func (m *mockRepository) activeWithdrawals(expenseID int64) int {
	n := 0
	for _, tx := range m.cashTxs {
		if tx.ExpenseID != nil && *tx.ExpenseID == expenseID &&
			tx.Type == cashledger.TypeWithdrawal && !tx.IsDeleted() {
			n++
		}
	}
	return n
}

// linkedNet sums the non-deleted transactions linked to an expense, deposits
// positive and withdrawals negative.
func (m *mockRepository) linkedNet(expenseID int64) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range m.cashTxs {
		if tx.ExpenseID == nil || *tx.ExpenseID != expenseID || tx.IsDeleted() {
			continue
		}
		if tx.Type == cashledger.TypeDeposit {
			net = net.Add(tx.Amount)
		} else {
			net = net.Sub(tx.Amount)
		}
	}
	return net
}

// linkedDeposit returns the first non-deleted deposit linked to an expense.
func (m *mockRepository) linkedDeposit(expenseID int64) *cashledger.Transaction {
	for _, tx := range m.cashTxs {
		if tx.ExpenseID != nil && *tx.ExpenseID == expenseID &&
			tx.Type == cashledger.TypeDeposit && !tx.IsDeleted() {
			return tx
		}
	}
	return nil
}

type mockRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockRecorder) Record(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRecorder) actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

func (m *mockRecorder) entryFor(action audit.Action) *audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].Action == action {
			return &m.entries[i]
		}
	}
	return nil
}

type mockInvalidator struct {
	mu      sync.Mutex
	changes []string
}

func (m *mockInvalidator) ExpenseChanged(vesselID, expenseID int64, change string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
}

var _ = Describe("ExpenseService", func() {
	var (
		svc         *expense.Service
		repo        *mockRepository
		recorder    *mockRecorder
		invalidator *mockInvalidator

		captain  auth.Actor
		deckhand auth.Actor
		officer  auth.Actor
		approver auth.Actor
	)

	const vesselID = int64(1)

	BeforeEach(func() {
		repo = newMockRepository()
		recorder = &mockRecorder{}
		invalidator = &mockInvalidator{}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = expense.NewService(repo, auth.NewPermissionChecker(), recorder, invalidator, lg)

		captain = auth.Actor{UserID: 10, Role: auth.RoleCaptain, VesselID: vesselID}
		deckhand = auth.Actor{UserID: 20, Role: auth.RoleCrew, VesselID: vesselID}
		officer = auth.Actor{UserID: 30, Role: auth.RoleOfficer, VesselID: vesselID}
		approver = auth.Actor{
			UserID:   40,
			Role:     auth.RoleCrew,
			Grants:   []auth.Capability{auth.CapApproveExpenses},
			VesselID: vesselID,
		}
	})

	deposit := func(amount string) {
		err := repo.CreateCashTransaction(&cashledger.Transaction{
			VesselID:    vesselID,
			Type:        cashledger.TypeDeposit,
			Amount:      decimal.RequireFromString(amount),
			Currency:    "EUR",
			Description: "Opening float",
			CreatedByID: captain.UserID,
			CreatedAt:   time.Now(),
		})
		Expect(err).ToNot(HaveOccurred())
	}

	seedExpense := func(status expense.Status, paidBy expense.PaidBy, amount string) *expense.Expense {
		e := &expense.Expense{
			VesselID:      vesselID,
			Description:   "Fuel at Porto Cervo",
			Amount:        decimal.RequireFromString(amount),
			Currency:      "EUR",
			PaymentMethod: expense.MethodCash,
			PaidBy:        paidBy,
			Status:        status,
			ExpenseDate:   time.Now().AddDate(0, 0, -1),
			CreatedByID:   deckhand.UserID,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		Expect(repo.Create(e)).To(Succeed())
		return e
	}

	statusPatch := func(status expense.Status) expense.UpdateExpenseDTO {
		return expense.UpdateExpenseDTO{Status: &status}
	}

	Describe("CreateExpense", func() {
		It("creates a draft by default", func() {
			result, err := svc.CreateExpense(deckhand, expense.CreateExpenseDTO{
				Description:   "Dock lines",
				Amount:        decimal.RequireFromString("120.50"),
				Currency:      "EUR",
				PaymentMethod: expense.MethodCash,
				PaidBy:        expense.PaidByVessel,
				ExpenseDate:   time.Now().AddDate(0, 0, -2),
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusDraft))
			Expect(result.CreatedByID).To(Equal(deckhand.UserID))
			Expect(result.VesselID).To(Equal(vesselID))
			Expect(recorder.actions()).To(ContainElement(audit.ActionCreate))
		})

		It("creates directly as submitted when asked", func() {
			result, err := svc.CreateExpense(deckhand, expense.CreateExpenseDTO{
				Description:   "Provisioning",
				Amount:        decimal.RequireFromString("300"),
				Currency:      "EUR",
				PaymentMethod: expense.MethodCard,
				PaidBy:        expense.PaidByCrewPersonal,
				ExpenseDate:   time.Now(),
				Submit:        true,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusSubmitted))
		})

		It("rejects invalid payloads", func() {
			_, err := svc.CreateExpense(deckhand, expense.CreateExpenseDTO{
				Description:   "",
				Amount:        decimal.RequireFromString("-5"),
				Currency:      "EURO",
				PaymentMethod: "WIRE",
				PaidBy:        expense.PaidByVessel,
				ExpenseDate:   time.Now().AddDate(0, 0, 3),
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})
	})

	Describe("SubmitExpense", func() {
		It("moves a draft to submitted", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			result, err := svc.SubmitExpense(deckhand, e.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusSubmitted))
		})

		It("refuses to submit anything but a draft", func() {
			e := seedExpense(expense.StatusApproved, expense.PaidByVessel, "100")

			_, err := svc.SubmitExpense(deckhand, e.ID)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeConflict))
		})
	})

	Describe("approving a vessel-paid expense", func() {
		It("creates exactly one withdrawal and debits the balance", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")

			result, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusApproved))
			Expect(result.ApprovedByID).ToNot(BeNil())
			Expect(*result.ApprovedByID).To(Equal(captain.UserID))
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("750"))).To(BeTrue())

			Expect(recorder.actions()).To(ContainElement(audit.ActionApprove))
		})

		It("links the withdrawal to the expense with a descriptive label", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")

			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))
			Expect(err).ToNot(HaveOccurred())

			tx, err := repo.ActiveCashTransaction(vesselID, e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(tx).ToNot(BeNil())
			Expect(tx.Type).To(Equal(cashledger.TypeWithdrawal))
			Expect(tx.Amount.Equal(e.Amount)).To(BeTrue())
			Expect(tx.Description).To(Equal("Expense: Fuel at Porto Cervo"))
		})

		It("blocks approval when the balance cannot cover the amount", func() {
			deposit("100")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")

			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInsufficientCash))
			details := appErr.Details.(errors.InsufficientFundsDetails)
			Expect(details.Balance.Equal(decimal.RequireFromString("100"))).To(BeTrue())
			Expect(details.Required.Equal(decimal.RequireFromString("250"))).To(BeTrue())

			stored, _ := repo.GetByID(vesselID, e.ID)
			Expect(stored.Status).To(Equal(expense.StatusSubmitted))
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(0))
		})

		It("allows approval when the balance exactly covers the amount", func() {
			deposit("250")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")

			result, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusApproved))

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.IsZero()).To(BeTrue())
		})

		It("skips the cash ledger entirely for non-vessel payers", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByCrewPersonal, "250")

			result, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusApproved))
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(0))
		})

		It("does not create a second withdrawal when one is already linked", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")
			Expect(repo.CreateCashTransaction(&cashledger.Transaction{
				VesselID:    vesselID,
				Type:        cashledger.TypeWithdrawal,
				Amount:      e.Amount,
				Currency:    e.Currency,
				Description: "Expense: Fuel at Porto Cervo",
				ExpenseID:   &e.ID,
				CreatedByID: captain.UserID,
				CreatedAt:   time.Now(),
			})).To(Succeed())

			result, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusApproved))
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))
		})

		It("rejects approving a draft", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeConflict))
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidStatus))
		})

		It("rejects approving an already approved expense", func() {
			e := seedExpense(expense.StatusApproved, expense.PaidByVessel, "100")

			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeConflict))
		})

		It("lets exactly one of two concurrent approvals win", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")

			results := make(chan error, 2)
			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			var succeeded, conflicted int
			for err := range results {
				if err == nil {
					succeeded++
					continue
				}
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(errors.ErrorTypeConflict))
				conflicted++
			}

			Expect(succeeded).To(Equal(1))
			Expect(conflicted).To(Equal(1))
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("750"))).To(BeTrue())
		})
	})

	Describe("rejecting an expense", func() {
		It("requires a reason", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")

			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusRejected))

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeReasonRequired))
		})

		It("treats a whitespace-only reason as missing", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			reason := "   "

			_, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Status:          &[]expense.Status{expense.StatusRejected}[0],
				RejectionReason: &reason,
			})

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeReasonRequired))

			stored, _ := repo.GetByID(vesselID, e.ID)
			Expect(stored.Status).To(Equal(expense.StatusSubmitted))
		})

		It("trims surrounding whitespace off the reason", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			reason := "  missing invoice  "

			result, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Status:          &[]expense.Status{expense.StatusRejected}[0],
				RejectionReason: &reason,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Notes).To(Equal("Rejection reason: missing invoice"))
		})

		It("records the reason in the notes and clears the approver", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			e.Notes = "bought at the fuel dock"
			reason := "missing invoice"

			result, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Status:          &[]expense.Status{expense.StatusRejected}[0],
				RejectionReason: &reason,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusRejected))
			Expect(result.ApprovedByID).To(BeNil())
			Expect(result.Notes).To(Equal("bought at the fuel dock\n\nRejection reason: missing invoice"))
			Expect(recorder.actions()).To(ContainElement(audit.ActionReject))
		})

		It("never touches the cash ledger", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			reason := "duplicate entry"

			_, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Status:          &[]expense.Status{expense.StatusRejected}[0],
				RejectionReason: &reason,
			})

			Expect(err).ToNot(HaveOccurred())
			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("1000"))).To(BeTrue())
		})

		It("rejects rejecting a draft", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")
			reason := "not submitted"

			_, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Status:          &[]expense.Status{expense.StatusRejected}[0],
				RejectionReason: &reason,
			})

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeConflict))
		})
	})

	Describe("reimbursement", func() {
		markReimbursed := func(actor auth.Actor, id int64) (*expense.Expense, error) {
			t := true
			return svc.UpdateExpense(actor, id, expense.UpdateExpenseDTO{Reimbursed: &t})
		}

		It("pays out a withdrawal without checking the balance", func() {
			// Balance is zero; a reimbursement must still go through.
			e := seedExpense(expense.StatusApproved, expense.PaidByCrewPersonal, "180")

			result, err := markReimbursed(captain, e.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Reimbursed).To(BeTrue())
			Expect(result.ReimbursedAt).ToNot(BeNil())
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))

			tx, _ := repo.ActiveCashTransaction(vesselID, e.ID)
			Expect(tx.Description).To(Equal("Reimbursement: Fuel at Porto Cervo"))

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("-180"))).To(BeTrue())
		})

		It("does not pay out twice when a cash transaction is already linked", func() {
			e := seedExpense(expense.StatusApproved, expense.PaidByCrewPersonal, "180")

			_, err := markReimbursed(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			// Unmark, then mark again: the original payout must be reused.
			f := false
			_, err = svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{Reimbursed: &f})
			Expect(err).ToNot(HaveOccurred())

			_, err = markReimbursed(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))
		})

		It("clears the flags on unmark but keeps the payout on the ledger", func() {
			e := seedExpense(expense.StatusApproved, expense.PaidByCrewPersonal, "180")

			_, err := markReimbursed(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			f := false
			result, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{Reimbursed: &f})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Reimbursed).To(BeFalse())
			Expect(result.ReimbursedAt).To(BeNil())
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("-180"))).To(BeTrue())
		})

		It("honors an explicit reimbursed_at timestamp", func() {
			e := seedExpense(expense.StatusApproved, expense.PaidByCrewPersonal, "50")
			t := true
			at := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)

			result, err := svc.UpdateExpense(captain, e.ID, expense.UpdateExpenseDTO{
				Reimbursed:   &t,
				ReimbursedAt: &at,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ReimbursedAt).ToNot(BeNil())
			Expect(result.ReimbursedAt.Equal(at)).To(BeTrue())
		})
	})

	Describe("DeleteExpense", func() {
		It("restores the balance for an approved vessel-paid expense with an offsetting deposit", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "250")
			_, err := svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))
			Expect(err).ToNot(HaveOccurred())

			result, err := svc.DeleteExpense(captain, e.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.Refunded).To(BeTrue())

			// the withdrawal stays on the ledger; the refund deposit cancels
			// it out, so the expense's transactions net to zero
			Expect(repo.activeWithdrawals(e.ID)).To(Equal(1))
			Expect(repo.linkedNet(e.ID).IsZero()).To(BeTrue())

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("1000"))).To(BeTrue())

			refund := repo.linkedDeposit(e.ID)
			Expect(refund).ToNot(BeNil())
			Expect(refund.Amount.Equal(decimal.RequireFromString("250"))).To(BeTrue())
			Expect(refund.Description).To(Equal("Refund: Expense removed - Fuel at Porto Cervo"))

			Expect(recorder.actions()).To(ContainElement(audit.ActionDelete))
		})

		It("deletes a draft without touching the ledger", func() {
			deposit("500")
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "250")

			result, err := svc.DeleteExpense(captain, e.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Refunded).To(BeFalse())

			balance, _ := repo.CashBalance(vesselID)
			Expect(balance.Equal(decimal.RequireFromString("500"))).To(BeTrue())
		})

		It("makes the expense unreadable afterwards", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			_, err := svc.DeleteExpense(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.GetExpense(captain, e.ID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeNotFound))
		})

		It("reports not found for a second delete", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			_, err := svc.DeleteExpense(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.DeleteExpense(captain, e.ID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeNotFound))
		})
	})

	Describe("permissions", func() {
		It("denies status changes to actors without the approve capability", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")

			_, err := svc.UpdateExpense(deckhand, e.ID, statusPatch(expense.StatusApproved))

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeForbidden))
		})

		It("lets a granted approver change status alone", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")

			result, err := svc.UpdateExpense(approver, e.ID, statusPatch(expense.StatusApproved))

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusApproved))
		})

		It("denies a granted approver who also edits fields", func() {
			deposit("1000")
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			status := expense.StatusApproved
			amount := decimal.RequireFromString("999")

			_, err := svc.UpdateExpense(approver, e.ID, expense.UpdateExpenseDTO{
				Status: &status,
				Amount: &amount,
			})

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeForbidden))

			stored, _ := repo.GetByID(vesselID, e.ID)
			Expect(stored.Status).To(Equal(expense.StatusSubmitted))
			Expect(stored.Amount.Equal(decimal.RequireFromString("100"))).To(BeTrue())
		})

		It("lets the creator edit their own draft fields", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")
			desc := "Fuel and oil"

			result, err := svc.UpdateExpense(deckhand, e.ID, expense.UpdateExpenseDTO{
				Description: &desc,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Description).To(Equal("Fuel and oil"))
		})

		It("denies field edits by unrelated read-only users", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")
			desc := "tampered"

			_, err := svc.UpdateExpense(officer, e.ID, expense.UpdateExpenseDTO{
				Description: &desc,
			})

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeForbidden))
		})

		It("denies deletes without the delete capability", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			_, err := svc.DeleteExpense(deckhand, e.ID)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeForbidden))
		})
	})

	Describe("tenant scoping", func() {
		It("hides expenses from other vessels behind not found", func() {
			e := seedExpense(expense.StatusSubmitted, expense.PaidByVessel, "100")
			otherCaptain := auth.Actor{UserID: 99, Role: auth.RoleCaptain, VesselID: 2}

			_, err := svc.GetExpense(otherCaptain, e.ID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeNotFound))

			_, err = svc.UpdateExpense(otherCaptain, e.ID, statusPatch(expense.StatusApproved))
			appErr, ok = errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeNotFound))
		})
	})

	Describe("audit trail", func() {
		It("records every lifecycle transition", func() {
			deposit("1000")
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")

			_, err := svc.SubmitExpense(deckhand, e.ID)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.UpdateExpense(captain, e.ID, statusPatch(expense.StatusApproved))
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.DeleteExpense(captain, e.ID)
			Expect(err).ToNot(HaveOccurred())

			actions := recorder.actions()
			Expect(actions).To(ContainElement(audit.ActionUpdate))
			Expect(actions).To(ContainElement(audit.ActionApprove))
			Expect(actions).To(ContainElement(audit.ActionDelete))
		})

		It("describes field updates with the committed description", func() {
			e := seedExpense(expense.StatusDraft, expense.PaidByVessel, "100")
			desc := "Fuel and oil"

			_, err := svc.UpdateExpense(deckhand, e.ID, expense.UpdateExpenseDTO{
				Description: &desc,
			})
			Expect(err).ToNot(HaveOccurred())

			entry := recorder.entryFor(audit.ActionUpdate)
			Expect(entry).ToNot(BeNil())
			Expect(entry.Description).To(Equal("Expense updated: Fuel and oil"))
		})
	})
})
