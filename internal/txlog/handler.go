package txlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/concord/internal/payload"
)

// Handler drives one sync transaction through its lifecycle against a
// Store.
//
// A Handler is exclusively owned by one synchronization session: step
// ordering and duration measurement assume a single writer, so it must
// not be shared across goroutines. Independent handlers may use the same
// Store concurrently.
type Handler struct {
	store *Store
	id    string
	event Event

	status    Status
	startTime time.Time
	steps     []Step

	now func() time.Time
	gen IDGenerator
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithIDGenerator replaces the transaction id generator. Only consulted
// when the event does not pin an id.
func WithIDGenerator(gen IDGenerator) HandlerOption {
	return func(h *Handler) {
		h.gen = gen
	}
}

// WithTimeSource replaces the clock, for deterministic tests. The
// default is time.Now, whose readings carry a monotonic component so
// durations are immune to wall-clock adjustment.
func WithTimeSource(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler binds a transaction id and captures the event and start
// instant. The transaction starts Pending; nothing is persisted until
// Begin.
func NewHandler(store *Store, event Event, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		event:  event,
		status: StatusPending,
		now:    time.Now,
		gen:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.id = event.TransactionID
	if h.id == "" {
		h.id = h.gen.Generate()
	}
	h.startTime = h.now()

	return h
}

// ID returns the bound transaction id.
func (h *Handler) ID() string { return h.id }

// Status returns the handler's current lifecycle state.
func (h *Handler) Status() Status { return h.status }

// Steps returns the steps recorded through this handler, in order. For
// steps recorded by other sessions, read back through the Store.
func (h *Handler) Steps() []Step { return h.steps }

// Begin transitions Pending -> InProgress and persists the initial row.
// A storage failure is fatal to the call and leaves the handler Pending.
func (h *Handler) Begin(ctx context.Context) error {
	if h.status != StatusPending {
		return newInvalidStateError(h.id, "begin", h.status)
	}

	slog.Info("sync transaction started",
		"transaction_id", h.id,
		"entity_type", h.event.EntityType,
		"operation", h.event.Operation)

	if err := h.store.insertTransaction(ctx, h.id, h.event, h.startTime, StatusInProgress); err != nil {
		return err
	}
	h.status = StatusInProgress
	return nil
}

// RecordStep appends a step to the transaction and persists it. Only
// legal while InProgress.
func (h *Handler) RecordStep(ctx context.Context, description string, data payload.Object) error {
	if h.status != StatusInProgress {
		return newInvalidStateError(h.id, "record a step on", h.status)
	}
	return h.appendStep(ctx, description, data)
}

// appendStep persists a step without a status check, so terminal
// transitions can attach their explanation after the status flips.
func (h *Handler) appendStep(ctx context.Context, description string, data payload.Object) error {
	step := Step{
		Description: description,
		Data:        data,
		At:          h.now().UTC(),
	}
	if err := h.store.insertStep(ctx, h.id, step); err != nil {
		return err
	}
	h.steps = append(h.steps, step)
	return nil
}

// Commit transitions InProgress -> Completed, stamping the end time and
// duration. Terminal.
func (h *Handler) Commit(ctx context.Context) error {
	if h.status != StatusInProgress {
		return newInvalidStateError(h.id, "commit", h.status)
	}

	slog.Info("sync transaction committed", "transaction_id", h.id)
	return h.finalize(ctx, StatusCompleted, "")
}

// Rollback transitions InProgress -> RolledBack, storing the reason and
// appending an explanatory step. Terminal.
func (h *Handler) Rollback(ctx context.Context, reason string) error {
	if h.status != StatusInProgress {
		return newInvalidStateError(h.id, "roll back", h.status)
	}

	slog.Error("sync transaction rolled back",
		"transaction_id", h.id,
		"reason", reason)

	if err := h.finalize(ctx, StatusRolledBack, reason); err != nil {
		return err
	}
	return h.appendStep(ctx, "Transaction rolled back", payload.Object{
		"error": payload.String(reason),
	})
}

// Fail transitions InProgress -> Failed, storing the cause and appending
// an explanatory step. Terminal.
func (h *Handler) Fail(ctx context.Context, cause error) error {
	if h.status != StatusInProgress {
		return newInvalidStateError(h.id, "fail", h.status)
	}

	msg := cause.Error()
	slog.Error("sync transaction failed",
		"transaction_id", h.id,
		"error", msg)

	if err := h.finalize(ctx, StatusFailed, msg); err != nil {
		return err
	}
	return h.appendStep(ctx, "Transaction failed", payload.Object{
		"error": payload.String(msg),
	})
}

// finalize stamps a terminal status on the stored row and flips the
// handler state. The duration comes from the monotonic reading captured
// at construction.
func (h *Handler) finalize(ctx context.Context, status Status, errMsg string) error {
	endTime := h.now()
	durationMS := endTime.Sub(h.startTime).Milliseconds()

	if err := h.store.finalizeTransaction(ctx, h.id, status, endTime, durationMS, errMsg); err != nil {
		return err
	}
	h.status = status
	return nil
}
