package services

import (
	"sync"

	"github.com/agrilink/agrilink-backend/internal/models"
)

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []models.LoanStatus
	payments []int
	welcomed []string
}

func (n *recordingNotifier) SendLoanStatusEmail(loan *models.Loan) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, loan.Status)
	return nil
}

func (n *recordingNotifier) SendPaymentReceivedEmail(loan *models.Loan, payment *models.LoanPayment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, payment.Sequence)
	return nil
}

func (n *recordingNotifier) sentStatuses() []models.LoanStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.LoanStatus(nil), n.statuses...)
}

func (n *recordingNotifier) sentPayments() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.payments...)
}

func (n *recordingNotifier) SendWelcomeEmail(user *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, user.Email)
	return nil
}

func (n *recordingNotifier) sentWelcomes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.welcomed...)
}
