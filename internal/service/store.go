package service

import (
	"context"
	"errors"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAssigned = errors.New("ticket already routed")
	ErrRunInProgress   = errors.New("processing run already in progress")
)

// Store is the persistence boundary. Listing methods return rows in a
// deterministic order (by id) since the engine breaks ties by input order.
type Store interface {
	Ping(ctx context.Context) error

	ListOffices(ctx context.Context) ([]models.Office, error)
	ListManagers(ctx context.Context) ([]*models.Manager, error)
	ListPendingTickets(ctx context.Context) ([]models.Ticket, error)
	GetTicket(ctx context.Context, id string) (models.Ticket, error)

	InsertTickets(ctx context.Context, tickets []models.Ticket) (int64, error)
	UpsertOffices(ctx context.Context, offices []models.Office) error
	UpsertManagers(ctx context.Context, managers []*models.Manager) error
	UpdateOfficeCoordinates(ctx context.Context, officeID string, c models.Coordinates) error

	GetAssignment(ctx context.Context, ticketID string) (models.AssignmentRecord, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]models.AssignmentRecord, error)

	CounterValue(ctx context.Context) (int64, error)
	ResetCounter(ctx context.Context) error
	RestoreBaselineWorkloads(ctx context.Context) (int64, error)
	// ResetRouting deletes every assignment, restores baseline workloads and
	// zeroes the counter in one transaction.
	ResetRouting(ctx context.Context) error

	CreateRun(ctx context.Context) (string, error)
	FinishRun(ctx context.Context, runID, status string, summary []byte) error

	// InAssignmentTx runs fn in one transaction that holds the counter row.
	// It commits when fn returns nil and rolls back otherwise, including on
	// panic.
	InAssignmentTx(ctx context.Context, fn func(tx AssignmentTx) error) error
}

// AssignmentTx is the write side of a single ticket assignment.
type AssignmentTx interface {
	// Counter returns a counter bound to this transaction. Advances are
	// written back before commit.
	Counter(ctx context.Context) (routing.Counter, error)
	// Managers reads the manager directory with current workloads inside
	// the transaction, after the counter lock is held.
	Managers(ctx context.Context) ([]*models.Manager, error)
	IncrementWorkload(ctx context.Context, managerID string) error
	SaveAssignment(ctx context.Context, rec models.AssignmentRecord) error
}

type AssignmentFilter struct {
	Outcome   string
	OfficeID  string
	ManagerID string
	Limit     int
	Offset    int
}

// TxCounter is the transaction-scoped counter the stores hand out: it is
// loaded under a row lock and flushed by the store when dirty.
type TxCounter struct {
	value int64
	dirty bool
}

func NewTxCounter(value int64) *TxCounter {
	return &TxCounter{value: value}
}

func (c *TxCounter) Peek() int64 { return c.value }

func (c *TxCounter) Advance() {
	c.value++
	c.dirty = true
}

func (c *TxCounter) Reset() {
	c.value = 0
	c.dirty = true
}

// Pending reports the value to write back, if any.
func (c *TxCounter) Pending() (int64, bool) {
	return c.value, c.dirty
}
