// Package records implements the list/add/edit/delete state machine shared by the
// product, category and order pages.
package records

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDraft wraps validation failures raised by Save.
var ErrInvalidDraft = errors.New("records: draft invalid")

// State is the serialisable page state owned by a Manager.
type State[R any, D any] struct {
	List      []R     `json:"list"`
	Draft     *D      `json:"draft,omitempty"`
	Current   *string `json:"current,omitempty"`
	Selection *string `json:"selection,omitempty"`
	Mode      Mode    `json:"mode"`
	LastError string  `json:"lastError,omitempty"`
}

// Editing reports whether the add-or-edit modal is open.
func (s State[R, D]) Editing() bool { return s.Mode == ModeEditing }

// ConfirmingDelete reports whether the delete-confirmation modal is open.
func (s State[R, D]) ConfirmingDelete() bool { return s.Mode == ModeConfirmingDelete }

// EditingExisting reports whether the open draft targets a stored record.
func (s State[R, D]) EditingExisting() bool { return s.Mode == ModeEditing && s.Current != nil }

type options struct {
	reporter Reporter
	hooks    []MutationHook
	validate *validator.Validate
}

// Option customises a Manager.
type Option func(*options)

// WithReporter sets the failure sink. Defaults to LogReporter with slog.Default.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithMutationHooks registers hooks notified after each create, update or delete.
func WithMutationHooks(hooks ...MutationHook) Option {
	return func(o *options) {
		for _, h := range hooks {
			if h != nil {
				o.hooks = append(o.hooks, h)
			}
		}
	}
}

// WithValidator overrides the validator applied to drafts on Save.
func WithValidator(v *validator.Validate) Option {
	return func(o *options) {
		o.validate = v
	}
}

// Manager owns the list, draft, selection and modal mode of one record page.
type Manager[R any, D any] struct {
	api      API
	entity   Entity[R, D]
	reporter Reporter
	hooks    []MutationHook
	validate *validator.Validate

	mu       sync.Mutex
	state    State[R, D]
	mutating bool
	loadSeq  uint64
}

// NewManager constructs an idle Manager with an empty list.
func NewManager[R any, D any](api API, entity Entity[R, D], opts ...Option) *Manager[R, D] {
	o := options{reporter: LogReporter{}, validate: validator.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[R, D]{
		api:      api,
		entity:   entity,
		reporter: o.reporter,
		hooks:    o.hooks,
		validate: o.validate,
		state:    State[R, D]{List: []R{}, Mode: ModeIdle},
	}
}

// Resource returns the collection path managed by m.
func (m *Manager[R, D]) Resource() string {
	return m.entity.Resource()
}

// Load replaces the list with the collection returned by the API.
// On failure the list is left untouched.
func (m *Manager[R, D]) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loadSeq++
	seq := m.loadSeq
	m.mu.Unlock()

	var list []R
	err := m.api.Get(ctx, m.entity.Resource(), &list)

	m.mu.Lock()
	if err != nil {
		m.state.LastError = describe(OpLoad, err)
		m.mu.Unlock()
		m.reporter.Report(ctx, OpLoad, m.entity.Resource(), err)
		return err
	}
	if seq == m.loadSeq {
		if list == nil {
			list = []R{}
		}
		m.state.List = list
	}
	m.mu.Unlock()
	return nil
}

// StartAdd opens the modal with a default draft.
func (m *Manager[R, D]) StartAdd() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ModeIdle, "start add"); err != nil {
		return err
	}
	draft := m.entity.NewDraft()
	m.state.Draft = &draft
	m.state.Current = nil
	m.state.Selection = nil
	m.state.Mode = ModeEditing
	return nil
}

// StartEdit opens the modal with a draft copied from record.
func (m *Manager[R, D]) StartEdit(record R) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startEditLocked(record)
}

// StartEditByID opens the modal for the listed record with the given id.
func (m *Manager[R, D]) StartEditByID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return m.startEditLocked(record)
}

func (m *Manager[R, D]) startEditLocked(record R) error {
	if err := m.guard(ModeIdle, "start edit"); err != nil {
		return err
	}
	id := m.entity.RecordID(record)
	draft := m.entity.DraftFrom(record)
	m.state.Draft = &draft
	m.state.Current = &id
	m.state.Selection = nil
	m.state.Mode = ModeEditing
	return nil
}

// UpdateDraftField overwrites exactly one draft field. No validation happens here.
func (m *Manager[R, D]) UpdateDraftField(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ModeEditing, "update draft"); err != nil {
		return err
	}
	next := *m.state.Draft
	if err := m.entity.SetField(&next, name, value); err != nil {
		return err
	}
	m.state.Draft = &next
	return nil
}

// CancelEdit discards the draft and closes the modal.
func (m *Manager[R, D]) CancelEdit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ModeEditing, "cancel edit"); err != nil {
		return err
	}
	m.state.Draft = nil
	m.state.Current = nil
	m.state.Mode = ModeIdle
	return nil
}

// Save creates or updates the record described by the draft, then reloads the list.
// A failed save leaves the manager editing with the same draft.
func (m *Manager[R, D]) Save(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guard(ModeEditing, "save"); err != nil {
		m.mu.Unlock()
		return err
	}
	draft := *m.state.Draft
	current := ""
	if m.state.Current != nil {
		current = *m.state.Current
	}
	m.mutating = true
	m.mu.Unlock()

	op := OpCreate
	if current != "" {
		op = OpUpdate
	}

	if err := m.validateDraft(draft); err != nil {
		m.fail(ctx, op, err)
		return err
	}

	body := m.entity.Payload(draft)
	var err error
	if op == OpUpdate {
		err = m.api.Put(ctx, m.recordPath(current), body, nil)
	} else {
		err = m.api.Post(ctx, m.entity.Resource(), body, nil)
	}
	m.notify(ctx, Mutation{Resource: m.entity.Resource(), Op: op, RecordID: current, Err: err})
	if err != nil {
		m.fail(ctx, op, err)
		return err
	}

	m.mu.Lock()
	m.state.LastError = ""
	m.mu.Unlock()
	_ = m.Load(ctx)

	m.mu.Lock()
	m.state.Draft = nil
	m.state.Current = nil
	m.state.Mode = ModeIdle
	m.mutating = false
	m.mu.Unlock()
	return nil
}

// RequestDelete opens the delete confirmation for id.
func (m *Manager[R, D]) RequestDelete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ModeIdle, "request delete"); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrRecordNotFound)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrRecordNotFound, id)
	}
	m.state.Selection = &id
	m.state.Draft = nil
	m.state.Current = nil
	m.state.Mode = ModeConfirmingDelete
	return nil
}

// CancelDelete clears the selection and closes the confirmation.
func (m *Manager[R, D]) CancelDelete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ModeConfirmingDelete, "cancel delete"); err != nil {
		return err
	}
	m.state.Selection = nil
	m.state.Mode = ModeIdle
	return nil
}

// ConfirmDelete deletes the selected record, then reloads the list.
// A failed delete keeps the confirmation open.
func (m *Manager[R, D]) ConfirmDelete(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guard(ModeConfirmingDelete, "confirm delete"); err != nil {
		m.mu.Unlock()
		return err
	}
	id := *m.state.Selection
	m.mutating = true
	m.mu.Unlock()

	err := m.api.Delete(ctx, m.recordPath(id))
	m.notify(ctx, Mutation{Resource: m.entity.Resource(), Op: OpDelete, RecordID: id, Err: err})
	if err != nil {
		m.fail(ctx, OpDelete, err)
		return err
	}

	m.mu.Lock()
	m.state.LastError = ""
	m.mu.Unlock()
	_ = m.Load(ctx)

	m.mu.Lock()
	m.state.Selection = nil
	m.state.Mode = ModeIdle
	m.mutating = false
	m.mu.Unlock()
	return nil
}

// ClearError dismisses the visible error.
func (m *Manager[R, D]) ClearError() {
	m.mu.Lock()
	m.state.LastError = ""
	m.mu.Unlock()
}

// Mode returns the current modal mode.
func (m *Manager[R, D]) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Mode
}

// List returns a copy of the current list.
func (m *Manager[R, D]) List() []R {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]R(nil), m.state.List...)
}

// Draft returns the open draft, if any.
func (m *Manager[R, D]) Draft() (D, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Draft == nil {
		var zero D
		return zero, false
	}
	return *m.state.Draft, true
}

// Selection returns the delete target, if any.
func (m *Manager[R, D]) Selection() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Selection == nil {
		return "", false
	}
	return *m.state.Selection, true
}

// Snapshot returns a copy of the serialisable state.
func (m *Manager[R, D]) Snapshot() State[R, D] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state)
}

// Restore replaces the state, repairing any combination that breaks the modal invariants.
func (m *Manager[R, D]) Restore(s State[R, D]) {
	s = copyState(s)
	if s.List == nil {
		s.List = []R{}
	}
	switch s.Mode {
	case ModeEditing:
		if s.Draft == nil {
			s.Mode = ModeIdle
			s.Current = nil
		}
		s.Selection = nil
	case ModeConfirmingDelete:
		if s.Selection == nil {
			s.Mode = ModeIdle
		}
		s.Draft = nil
		s.Current = nil
	default:
		s.Mode = ModeIdle
	}
	if s.Mode == ModeIdle {
		s.Draft = nil
		s.Current = nil
		s.Selection = nil
	}
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager[R, D]) guard(want Mode, action string) error {
	if m.mutating {
		return ErrBusy
	}
	if m.state.Mode != want {
		return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, m.state.Mode)
	}
	return nil
}

func (m *Manager[R, D]) findLocked(id string) (R, bool) {
	for _, record := range m.state.List {
		if m.entity.RecordID(record) == id {
			return record, true
		}
	}
	var zero R
	return zero, false
}

func (m *Manager[R, D]) fail(ctx context.Context, op Operation, err error) {
	m.mu.Lock()
	m.state.LastError = describe(op, err)
	m.mutating = false
	m.mu.Unlock()
	m.reporter.Report(ctx, op, m.entity.Resource(), err)
}

func (m *Manager[R, D]) notify(ctx context.Context, mutation Mutation) {
	for _, h := range m.hooks {
		h.AfterMutation(ctx, mutation)
	}
}

func (m *Manager[R, D]) validateDraft(draft D) error {
	if m.validate == nil {
		return nil
	}
	if err := m.validate.Struct(draft); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	return nil
}

func (m *Manager[R, D]) recordPath(id string) string {
	return m.entity.Resource() + "/" + url.PathEscape(id)
}

func copyState[R any, D any](s State[R, D]) State[R, D] {
	out := s
	if s.List != nil {
		out.List = append([]R(nil), s.List...)
	}
	if s.Draft != nil {
		draft := *s.Draft
		out.Draft = &draft
	}
	if s.Current != nil {
		current := *s.Current
		out.Current = &current
	}
	if s.Selection != nil {
		selection := *s.Selection
		out.Selection = &selection
	}
	return out
}

func describe(op Operation, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return "Could not " + verb(op) + ": " + strings.Join(parts, ", ")
	}
	return "Could not " + verb(op) + ": " + err.Error()
}

func verb(op Operation) string {
	switch op {
	case OpLoad:
		return "load records"
	case OpCreate:
		return "create record"
	case OpUpdate:
		return "update record"
	case OpDelete:
		return "delete record"
	default:
		return string(op)
	}
}
