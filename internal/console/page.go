// Package console serves the record pages of the back-office console. Each page drives a
// records.Manager restored from, and saved back to, the visitor's session.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/records"
	"github.com/backoffice-console/backoffice/internal/shared"
	"github.com/backoffice-console/backoffice/internal/view"
)

// Actions guarded by the cross-request mutation lock.
const (
	ActionSave   = "save"
	ActionDelete = "delete"
)

// Locker hands out short-lived exclusive locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// StateReloader re-reads one session value from the backing store.
type StateReloader interface {
	Reload(ctx context.Context, sess *shared.Session, key string) error
}

// Mountable is a page that registers its own routes below /{Name}.
type Mountable interface {
	Name() string
	MountRoutes(r chi.Router)
}

// Config describes one record page.
type Config[R any, D any] struct {
	// Name is the URL segment and session key, for example "products".
	Name     string
	Title    string
	Singular string
	Template string
	// Fields lists the draft fields read from the edit form, in form order.
	Fields     []string
	NewManager func() *records.Manager[R, D]
	// Extras supplies additional template data such as select options.
	Extras func(ctx context.Context) map[string]any
	// Routes registers page specific endpoints.
	Routes func(r chi.Router)
}

// Deps groups the collaborators shared by every page.
type Deps struct {
	Logger    *slog.Logger
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Locker    Locker
	// Sessions, when set, refreshes page state once the mutation lock is held.
	Sessions StateReloader
}

// Page is the HTTP surface of one records.Manager.
type Page[R any, D any] struct {
	cfg       Config[R, D]
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	locker    Locker
	sessions  StateReloader
}

// View is rendered by the page template as TemplateData.Data.
type View[R any, D any] struct {
	Name     string
	Singular string
	Fields   []string
	State    records.State[R, D]
	Extras   map[string]any
}

// NewPage constructs a page handler.
func NewPage[R any, D any](cfg Config[R, D], deps Deps) *Page[R, D] {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Singular == "" {
		cfg.Singular = cfg.Title
	}
	return &Page[R, D]{
		cfg:       cfg,
		logger:    logger.With(slog.String("page", cfg.Name)),
		templates: deps.Templates,
		csrf:      deps.CSRF,
		locker:    deps.Locker,
		sessions:  deps.Sessions,
	}
}

// Name returns the URL segment of the page.
func (p *Page[R, D]) Name() string {
	return p.cfg.Name
}

// MountRoutes registers the page routes.
func (p *Page[R, D]) MountRoutes(r chi.Router) {
	r.Get("/", p.handleIndex)
	r.Post("/new", p.handleNew)
	r.Post("/draft", p.handleDraft)
	r.Post("/delete/confirm", p.handleConfirmDelete)
	r.Post("/delete/cancel", p.handleCancelDelete)
	r.Post("/error/dismiss", p.handleDismissError)
	r.Post("/{id}/edit", p.handleEdit)
	r.Post("/{id}/delete", p.handleRequestDelete)
	if p.cfg.Routes != nil {
		p.cfg.Routes(r)
	}
}

func (p *Page[R, D]) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	m := p.restore(ctx, sess)
	// A failed load keeps the previous list and surfaces through LastError.
	_ = m.Load(ctx)
	p.store(ctx, sess, m)

	var extras map[string]any
	if p.cfg.Extras != nil {
		extras = p.cfg.Extras(ctx)
	}
	p.render(w, r, View[R, D]{
		Name:     p.cfg.Name,
		Singular: p.cfg.Singular,
		Fields:   p.cfg.Fields,
		State:    m.Snapshot(),
		Extras:   extras,
	})
}

func (p *Page[R, D]) handleNew(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
		return "", m.StartAdd()
	})
}

func (p *Page[R, D]) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
		return "", m.StartEditByID(id)
	})
}

// handleDraft applies every submitted field, then saves or cancels depending on "action".
// Any other action only keeps the typed values in the draft.
func (p *Page[R, D]) handleDraft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	action := r.PostForm.Get("action")
	if action == "cancel" {
		p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
			return "", m.CancelEdit()
		})
		return
	}
	lockAction := ""
	if action == ActionSave {
		lockAction = ActionSave
	}
	p.transition(w, r, lockAction, func(ctx context.Context, m *records.Manager[R, D]) (string, error) {
		var fieldErr error
		for _, field := range p.cfg.Fields {
			if _, ok := r.PostForm[field]; !ok {
				continue
			}
			if err := m.UpdateDraftField(field, r.PostForm.Get(field)); err != nil && fieldErr == nil {
				fieldErr = err
			}
		}
		if fieldErr != nil || action != ActionSave {
			return "", fieldErr
		}
		if err := m.Save(ctx); err != nil {
			return "", err
		}
		return p.cfg.Singular + " saved.", nil
	})
}

func (p *Page[R, D]) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
		return "", m.RequestDelete(id)
	})
}

func (p *Page[R, D]) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, ActionDelete, func(ctx context.Context, m *records.Manager[R, D]) (string, error) {
		if err := m.ConfirmDelete(ctx); err != nil {
			return "", err
		}
		return p.cfg.Singular + " deleted.", nil
	})
}

func (p *Page[R, D]) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
		return "", m.CancelDelete()
	})
}

func (p *Page[R, D]) handleDismissError(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, "", func(_ context.Context, m *records.Manager[R, D]) (string, error) {
		m.ClearError()
		return "", nil
	})
}

// transition runs fn against the session's manager, persists the resulting state and
// redirects back to the page. A non-empty lockAction serialises fn per session.
// fn returns the success flash, if any.
func (p *Page[R, D]) transition(w http.ResponseWriter, r *http.Request, lockAction string, fn func(context.Context, *records.Manager[R, D]) (string, error)) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if lockAction != "" && p.locker != nil {
		release, err := p.locker.Acquire(ctx, shared.MutationLockKey(sess.ID, p.cfg.Name, lockAction))
		if err != nil {
			if errors.Is(err, shared.ErrLocked) {
				sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "That request is already being processed."})
			} else {
				p.logger.ErrorContext(ctx, "acquire mutation lock", slog.Any("error", err))
				sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: "The console is temporarily unavailable."})
			}
			p.redirect(w, r)
			return
		}
		defer release()

		if p.sessions != nil {
			if err := p.sessions.Reload(ctx, sess, p.sessionKey()); err != nil {
				p.logger.ErrorContext(ctx, "reload page state", slog.Any("error", err))
				sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: "The console is temporarily unavailable."})
				p.redirect(w, r)
				return
			}
		}
	}

	m := p.restore(ctx, sess)
	msg, err := fn(ctx, m)
	p.store(ctx, sess, m)
	switch {
	case err != nil:
		p.flashError(ctx, sess, err)
	case msg != "":
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: msg})
	}
	p.redirect(w, r)
}

func (p *Page[R, D]) flashError(ctx context.Context, sess *shared.Session, err error) {
	var fieldErr *records.InvalidFieldError
	switch {
	case errors.As(err, &fieldErr):
		sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: fmt.Sprintf("%q is not a valid %s.", fieldErr.Value, fieldErr.Field)})
	case errors.Is(err, records.ErrUnknownField):
		p.logger.WarnContext(ctx, "unknown draft field", slog.Any("error", err))
	case errors.Is(err, records.ErrRecordNotFound):
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: p.cfg.Singular + " is no longer in the list."})
	case errors.Is(err, records.ErrInvalidTransition):
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "That action is not available right now."})
	case errors.Is(err, records.ErrBusy):
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "That request is already being processed."})
	case errors.Is(err, records.ErrInvalidDraft), errors.Is(err, apiclient.ErrOperationFailed):
		// Shown by the error banner through State.LastError.
	default:
		p.logger.ErrorContext(ctx, "page transition failed", slog.Any("error", err))
	}
}

func (p *Page[R, D]) sessionKey() string {
	return "page:" + p.cfg.Name
}

func (p *Page[R, D]) restore(ctx context.Context, sess *shared.Session) *records.Manager[R, D] {
	m := p.cfg.NewManager()
	var st records.State[R, D]
	found, err := sess.GetJSON(p.sessionKey(), &st)
	if err != nil {
		p.logger.WarnContext(ctx, "discarding unreadable page state", slog.Any("error", err))
		return m
	}
	if found {
		m.Restore(st)
	}
	return m
}

func (p *Page[R, D]) store(ctx context.Context, sess *shared.Session, m *records.Manager[R, D]) {
	if err := sess.SetJSON(p.sessionKey(), m.Snapshot()); err != nil {
		p.logger.ErrorContext(ctx, "persist page state", slog.Any("error", err))
	}
}

func (p *Page[R, D]) redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+p.cfg.Name, http.StatusSeeOther)
}

func (p *Page[R, D]) render(w http.ResponseWriter, r *http.Request, data View[R, D]) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := p.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       p.cfg.Title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := p.templates.Render(w, p.cfg.Template, viewData); err != nil {
		p.logger.Error("render page", slog.Any("error", err))
	}
}
