package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-certupload/pkg/api"
	"github.com/goliatone/go-certupload/pkg/notify"
	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/session"
	"github.com/goliatone/go-certupload/pkg/users"
)

// maxErrorBody bounds how much of a rejection body is read.
const maxErrorBody = 64 << 10

// UserLister fetches the selectable users for a token.
type UserLister interface {
	Load(ctx context.Context, token string) ([]users.SelectableUser, error)
}

// Controller owns the form state. It is safe for concurrent use; network
// calls run outside the lock so View and Submitting can be read mid-flight.
type Controller struct {
	client   *api.Client
	lister   UserLister
	tokens   session.TokenSource
	notifier notify.Notifier
	previews *preview.Registry
	logger   *slog.Logger

	mu         sync.Mutex
	token      string
	mounted    bool
	tornDown   bool
	users      []users.SelectableUser
	userStatus UserListStatus
	state      FormState
}

// Option configures a Controller.
type Option func(*Controller)

// WithTokenSource injects where the bearer token comes from.
func WithTokenSource(src session.TokenSource) Option {
	return func(c *Controller) {
		if src != nil {
			c.tokens = src
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithPreviewRegistry shares a preview registry, e.g. one mounted on an HTTP
// server. The controller only releases references it created.
func WithPreviewRegistry(r *preview.Registry) Option {
	return func(c *Controller) {
		if r != nil {
			c.previews = r
		}
	}
}

// WithUserLister overrides how the user list is fetched.
func WithUserLister(l UserLister) Option {
	return func(c *Controller) {
		if l != nil {
			c.lister = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController returns an unmounted controller talking through client.
func NewController(client *api.Client, options ...Option) (*Controller, error) {
	if client == nil {
		return nil, errors.New("upload: api client is required")
	}
	c := &Controller{
		client:   client,
		tokens:   session.Static(""),
		notifier: notify.Discard,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.lister == nil {
		c.lister = users.NewLoader(client)
	}
	if c.previews == nil {
		c.previews = preview.NewRegistry()
	}
	return c, nil
}

// Mount reads the token once and, when one is present, fetches the user list.
// Fetch failures are reported as a notification and never returned. Calling
// Mount again is a no-op.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted || c.tornDown {
		c.mu.Unlock()
		return
	}
	c.mounted = true

	token, err := c.tokens.Token()
	if err != nil && !errors.Is(err, session.ErrNoToken) {
		c.logger.Warn("token source failed", "error", err)
	}
	c.token = strings.TrimSpace(token)
	if c.token == "" {
		c.userStatus = StatusUnavailable
		c.mu.Unlock()
		c.logger.Debug("no auth token, skipping user list fetch")
		return
	}
	c.userStatus = StatusLoading
	token = c.token
	c.mu.Unlock()

	list, err := c.lister.Load(ctx, token)

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		c.logger.Debug("user list resolved after teardown, dropping result")
		return
	}
	if err != nil {
		c.userStatus = StatusFailed
		c.mu.Unlock()
		c.logger.Warn("user list fetch failed", "error", err)
		c.notify(ctx, notify.Notification{
			Title:       titleUsersFailed,
			Description: describe(err, descUsersFailed),
			Variant:     notify.VariantDestructive,
		})
		return
	}
	c.users = list
	c.userStatus = StatusLoaded
	c.mu.Unlock()
	c.logger.Debug("user list loaded", "count", len(list))
}

// SetTemplateName records the template name as typed.
func (c *Controller) SetTemplateName(name string) {
	c.mutate(func(s *FormState) { s.TemplateName = name })
}

// SetImageType records the image type code as typed.
func (c *Controller) SetImageType(code string) {
	c.mutate(func(s *FormState) { s.ImageType = code })
}

// SelectUser selects the user with the given id; "" clears the selection.
// An id not in the list clears the selection and returns ErrUnknownUser.
func (c *Controller) SelectUser(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return ErrTornDown
	}
	c.state.SelectedUser = nil
	if id == "" {
		return nil
	}
	for _, u := range c.users {
		if u.ID.String() == id {
			selected := u
			c.state.SelectedUser = &selected
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownUser, id)
}

// SelectJRXML replaces the layout file selection.
func (c *Controller) SelectJRXML(files []File) {
	c.mutate(func(s *FormState) {
		s.JRXMLFiles = append([]File(nil), files...)
	})
}

// SelectImages replaces the image selection, releasing the previews of the
// previous selection and creating one preview per new file.
func (c *Controller) SelectImages(files []File) {
	c.mutate(func(s *FormState) {
		c.previews.Release(s.ImagePreviews...)
		s.Images = append([]File(nil), files...)
		s.ImagePreviews = make([]preview.Ref, 0, len(files))
		for _, f := range files {
			s.ImagePreviews = append(s.ImagePreviews, c.previews.Create(f.Name, f.ContentType, f.Open))
		}
	})
}

// Submit validates the form and posts it. Every outcome is notified after
// Submitting has cleared. On success the form resets; on failure the state
// is kept for a retry.
func (c *Controller) Submit(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.state.Submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	if verr := validate(c.state); verr != nil {
		c.mu.Unlock()
		c.notify(ctx, notify.Notification{Title: verr.Message, Variant: notify.VariantDestructive})
		return verr
	}
	snapshot := c.state.clone()
	token := c.token
	c.state.Submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Submitting = false
		c.mu.Unlock()
	}()

	err = c.send(ctx, snapshot, token)

	// Notifiers observe the settled state.
	c.mu.Lock()
	c.state.Submitting = false
	if err == nil && !c.tornDown {
		c.resetLocked()
	}
	c.mu.Unlock()

	var rejected *RejectedError
	switch {
	case err == nil:
		c.logger.Info("template uploaded", "template", snapshot.TemplateName, "created_by", snapshot.SelectedUser.ID.String())
		c.notify(ctx, notify.Notification{
			Title:       titleUploadSucceeded,
			Description: descUploadSucceeded,
		})
	case errors.As(err, &rejected):
		c.logger.Warn("template rejected", "status", rejected.StatusCode, "message", rejected.Message)
		description := rejected.Message
		if strings.TrimSpace(description) == "" {
			description = descUploadFailed
		}
		c.notify(ctx, notify.Notification{
			Title:       titleUploadFailed,
			Description: description,
			Variant:     notify.VariantDestructive,
		})
	default:
		c.logger.Warn("template upload failed", "error", err)
		c.notify(ctx, notify.Notification{
			Title:       titleNetworkError,
			Description: describe(err, descNetworkError),
			Variant:     notify.VariantDestructive,
		})
	}
	return err
}

func (c *Controller) send(ctx context.Context, state FormState, token string) error {
	body, contentType, err := encodeSubmission(state)
	if err != nil {
		return &TransportError{Err: err}
	}
	req, err := c.client.NewRequest(ctx, api.OperationCreateTemplate, token, body)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	text, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		c.logger.Debug("read rejection body", "error", err)
	}
	return &RejectedError{StatusCode: resp.StatusCode, Message: string(text)}
}

// Reset clears every field and releases the previews.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.previews.Release(c.state.ImagePreviews...)
	submitting := c.state.Submitting
	c.state = FormState{Submitting: submitting}
}

// Teardown releases the previews and detaches the controller; results that
// arrive afterwards are dropped.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.tornDown = true
	c.previews.Release(c.state.ImagePreviews...)
	c.state.Images = nil
	c.state.ImagePreviews = nil
}

// State returns a copy of the form state.
func (c *Controller) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Submitting
}

// Users returns the current selectable users.
func (c *Controller) Users() []users.SelectableUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]users.SelectableUser(nil), c.users...)
}

// UserStatus reports the state of the user list.
func (c *Controller) UserStatus() UserListStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userStatus
}

// Previews exposes the preview registry, e.g. to serve thumbnails.
func (c *Controller) Previews() *preview.Registry {
	return c.previews
}

// View derives the selection display.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state.clone()
	v := View{
		TemplateName: s.TemplateName,
		ImageType:    s.ImageType,
		SelectedUser: s.SelectedUser,
		Users:        append([]users.SelectableUser(nil), c.users...),
		UserStatus:   c.userStatus,
		Previews:     s.ImagePreviews,
		Submitting:   s.Submitting,
	}
	for _, f := range s.JRXMLFiles {
		v.JRXMLNames = append(v.JRXMLNames, f.Name)
	}
	for _, f := range s.Images {
		v.ImageNames = append(v.ImageNames, f.Name)
	}
	return v
}

func (c *Controller) mutate(fn func(*FormState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	fn(&c.state)
}

func (c *Controller) notify(ctx context.Context, n notify.Notification) {
	c.notifier.Notify(ctx, n)
}

func validate(s FormState) *ValidationError {
	switch {
	case strings.TrimSpace(s.TemplateName) == "":
		return &ValidationError{Field: FieldTemplateName, Message: titleNameRequired}
	case strings.TrimSpace(s.ImageType) == "":
		return &ValidationError{Field: FieldImageType, Message: titleImageRequired}
	case s.SelectedUser == nil:
		return &ValidationError{Field: FieldUser, Message: titleUserRequired}
	case len(s.JRXMLFiles) == 0:
		return &ValidationError{Field: FieldJRXML, Message: titleJRXMLRequired}
	}
	return nil
}

func describe(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallback
	}
	return msg
}
