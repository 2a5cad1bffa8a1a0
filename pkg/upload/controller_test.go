package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-certupload/pkg/api"
	"github.com/goliatone/go-certupload/pkg/notify"
	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/session"
	"github.com/goliatone/go-certupload/pkg/users"
)

type received struct {
	auth     string
	fields   map[string][]string
	files    map[string][]string
	contents map[string][]string
}

type fakeBackend struct {
	t          *testing.T
	usersBody  string
	usersCode  int
	submitCode int
	submitBody string
	hold       chan struct{}
	entered    chan struct{}

	userCalls   atomic.Int32
	submitCalls atomic.Int32
	last        atomic.Pointer[received]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/profile/all":
		b.userCalls.Add(1)
		code := b.usersCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = io.WriteString(w, b.usersBody)
	case "/templates":
		b.submitCalls.Add(1)
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			b.t.Errorf("parse multipart: %v", err)
		}
		rec := &received{
			auth:     r.Header.Get("Authorization"),
			fields:   map[string][]string{},
			files:    map[string][]string{},
			contents: map[string][]string{},
		}
		for key, values := range r.MultipartForm.Value {
			rec.fields[key] = values
		}
		for key, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				rec.files[key] = append(rec.files[key], fh.Filename)
				f, err := fh.Open()
				if err != nil {
					b.t.Errorf("open part: %v", err)
					continue
				}
				data, _ := io.ReadAll(f)
				_ = f.Close()
				rec.contents[key] = append(rec.contents[key], string(data))
			}
		}
		b.last.Store(rec)
		if b.entered != nil {
			b.entered <- struct{}{}
		}
		if b.hold != nil {
			<-b.hold
		}
		code := b.submitCode
		if code == 0 {
			code = http.StatusCreated
		}
		w.WriteHeader(code)
		_, _ = io.WriteString(w, b.submitBody)
	default:
		http.NotFound(w, r)
	}
}

func newHarness(t *testing.T, backend *fakeBackend, token string) (*Controller, *notify.Recorder, *httptest.Server) {
	t.Helper()
	backend.t = t
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL, api.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	rec := &notify.Recorder{}
	ctrl, err := NewController(client,
		WithTokenSource(session.Static(token)),
		WithNotifier(rec),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl, rec, srv
}

func fillValid(t *testing.T, ctrl *Controller) {
	t.Helper()
	ctrl.SetTemplateName("Cert A")
	ctrl.SetImageType("2")
	if err := ctrl.SelectUser("1"); err != nil {
		t.Fatalf("select user: %v", err)
	}
	ctrl.SelectJRXML([]File{MemFile("cert.jrxml", []byte("<jasperReport/>"))})
}

const twoUsers = `[{"id":1,"userName":"al"},{"id":2,"name":"bo"}]`

func TestMount_NormalisesUserList(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, _ := newHarness(t, backend, "tok")

	ctrl.Mount(context.Background())
	ctrl.Mount(context.Background())

	got := ctrl.Users()
	want := []users.SelectableUser{
		{ID: users.NumericID(1), Username: "al"},
		{ID: users.NumericID(2), Username: "bo"},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b users.UserID) bool { return a.String() == b.String() })); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}
	if backend.userCalls.Load() != 1 {
		t.Fatalf("expected exactly one fetch, got %d", backend.userCalls.Load())
	}
	if ctrl.UserStatus() != StatusLoaded {
		t.Fatalf("expected loaded status, got %s", ctrl.UserStatus())
	}
	if len(rec.All()) != 0 {
		t.Fatalf("expected no notifications, got %+v", rec.All())
	}
}

func TestMount_EnvelopePayload(t *testing.T) {
	backend := &fakeBackend{usersBody: `{"users":[{"id":3,"username":"cy"}]}`}
	ctrl, _, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())

	list := ctrl.Users()
	if len(list) != 1 || list[0].ID.String() != "3" || list[0].Username != "cy" {
		t.Fatalf("unexpected users %+v", list)
	}
}

func TestMount_FetchFailureNotifiesOnce(t *testing.T) {
	backend := &fakeBackend{usersCode: http.StatusInternalServerError, usersBody: "boom"}
	ctrl, rec, _ := newHarness(t, backend, "tok")

	ctrl.Mount(context.Background())

	if len(ctrl.Users()) != 0 {
		t.Fatalf("expected empty user list, got %+v", ctrl.Users())
	}
	all := rec.All()
	if len(all) != 1 {
		t.Fatalf("expected exactly one notification, got %+v", all)
	}
	if all[0].Title != "Error loading users" || !all[0].IsError() {
		t.Fatalf("unexpected notification %+v", all[0])
	}
	if ctrl.UserStatus() != StatusFailed {
		t.Fatalf("expected failed status, got %s", ctrl.UserStatus())
	}
	if ctrl.View().UserPlaceholder() != "Usernames unavailable" {
		t.Fatalf("unexpected placeholder %q", ctrl.View().UserPlaceholder())
	}
}

func TestMount_MalformedPayloadNotifies(t *testing.T) {
	backend := &fakeBackend{usersBody: `{"items":[]}`}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())

	last, ok := rec.Last()
	if !ok || !strings.Contains(last.Description, "malformed payload") {
		t.Fatalf("expected malformed payload notification, got %+v", last)
	}
}

func TestMount_WithoutTokenSkipsFetch(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, _ := newHarness(t, backend, "")

	ctrl.Mount(context.Background())

	if backend.userCalls.Load() != 0 {
		t.Fatalf("expected no fetch without token")
	}
	if ctrl.UserStatus() != StatusUnavailable {
		t.Fatalf("expected unavailable status, got %s", ctrl.UserStatus())
	}
	if got := ctrl.View().UserPlaceholder(); got != "Sign in to load usernames" {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if len(rec.All()) != 0 {
		t.Fatalf("expected no notifications")
	}
}

type blockingLister struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingLister) Load(ctx context.Context, _ string) ([]users.SelectableUser, error) {
	close(b.started)
	<-b.release
	return nil, errors.New("late failure")
}

func TestMount_ResultAfterTeardownIsDropped(t *testing.T) {
	client, err := api.NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	lister := &blockingLister{release: make(chan struct{}), started: make(chan struct{})}
	rec := &notify.Recorder{}
	ctrl, err := NewController(client,
		WithTokenSource(session.Static("tok")),
		WithNotifier(rec),
		WithUserLister(lister),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Mount(context.Background())
	}()
	<-lister.started
	if ctrl.View().UserPlaceholder() != "Loading usernames..." {
		t.Fatalf("expected loading placeholder while fetching")
	}
	ctrl.Teardown()
	close(lister.release)
	<-done

	if len(rec.All()) != 0 {
		t.Fatalf("expected late result to be dropped, got %+v", rec.All())
	}
}

func TestSelectJRXML_Replaces(t *testing.T) {
	ctrl, _, _ := newHarness(t, &fakeBackend{}, "")

	ctrl.SelectJRXML([]File{MemFile("a.jrxml", nil), MemFile("b.jrxml", nil)})
	ctrl.SelectJRXML([]File{MemFile("c.jrxml", nil)})

	state := ctrl.State()
	if len(state.JRXMLFiles) != 1 || state.JRXMLFiles[0].Name != "c.jrxml" {
		t.Fatalf("expected selection replaced by c.jrxml, got %+v", state.JRXMLFiles)
	}
	if got := ctrl.View().JRXMLSummary(); got != "1 file(s) selected" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSelectImages_PreviewsDistinctAndReleased(t *testing.T) {
	ctrl, _, _ := newHarness(t, &fakeBackend{}, "")
	reg := ctrl.Previews()

	ctrl.SelectImages([]File{
		MemFile("a.png", []byte("a")),
		MemFile("b.png", []byte("b")),
		MemFile("c.png", []byte("c")),
	})
	first := ctrl.State().ImagePreviews
	if len(first) != 3 {
		t.Fatalf("expected 3 previews, got %d", len(first))
	}
	seen := map[preview.Ref]struct{}{}
	for _, ref := range first {
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate preview %q", ref)
		}
		seen[ref] = struct{}{}
	}

	ctrl.SelectImages([]File{MemFile("d.png", []byte("d"))})
	for _, ref := range first {
		if _, err := reg.Lookup(ref); !errors.Is(err, preview.ErrReleased) {
			t.Fatalf("expected %q released, got %v", ref, err)
		}
	}
	state := ctrl.State()
	if len(state.Images) != 1 || len(state.ImagePreviews) != 1 {
		t.Fatalf("expected previews to track images, got %d/%d", len(state.Images), len(state.ImagePreviews))
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one live preview, got %d", reg.Len())
	}

	ctrl.Teardown()
	if reg.Len() != 0 {
		t.Fatalf("expected previews released on teardown, got %d", reg.Len())
	}
}

func TestSelectUser(t *testing.T) {
	ctrl, _, _ := newHarness(t, &fakeBackend{usersBody: twoUsers}, "tok")
	ctrl.Mount(context.Background())

	if err := ctrl.SelectUser("2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := ctrl.View().SelectedLabel(); got != "Selected: bo (ID: 2)" {
		t.Fatalf("unexpected label %q", got)
	}
	if err := ctrl.SelectUser("9"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if ctrl.State().SelectedUser != nil {
		t.Fatalf("expected selection cleared")
	}
}

func TestSubmit_ValidationOrder(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())

	steps := []struct {
		apply func()
		field Field
		title string
	}{
		{func() {}, FieldTemplateName, "Template name required"},
		{func() { ctrl.SetTemplateName("  Cert A ") }, FieldImageType, "Image type required"},
		{func() { ctrl.SetImageType("2") }, FieldUser, "Select a user"},
		{func() { _ = ctrl.SelectUser("1") }, FieldJRXML, "No JRXML file selected"},
	}
	for _, step := range steps {
		step.apply()
		rec.Reset()
		err := ctrl.Submit(context.Background())

		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != step.field {
			t.Fatalf("expected validation error on %s, got %v", step.field, err)
		}
		all := rec.All()
		if len(all) != 1 || all[0].Title != step.title {
			t.Fatalf("expected %q notification, got %+v", step.title, all)
		}
	}
	if backend.submitCalls.Load() != 0 {
		t.Fatalf("validation failures must not reach the network")
	}
}

func TestSubmit_WhitespaceNameRejected(t *testing.T) {
	ctrl, _, _ := newHarness(t, &fakeBackend{}, "tok")
	ctrl.SetTemplateName("   ")
	var verr *ValidationError
	if err := ctrl.Submit(context.Background()); !errors.As(err, &verr) || verr.Field != FieldTemplateName {
		t.Fatalf("expected template name error, got %v", err)
	}
}

func TestSubmit_SuccessResets(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)
	ctrl.SelectImages([]File{MemFile("seal.png", []byte("png"))})
	reg := ctrl.Previews()

	if err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got := backend.last.Load()
	if got == nil {
		t.Fatalf("expected a submission")
	}
	if got.auth != "Bearer tok" {
		t.Fatalf("unexpected authorization %q", got.auth)
	}
	wantFields := map[string][]string{
		"templateName": {"Cert A"},
		"imageType":    {"2"},
		"createdBy":    {"1"},
	}
	if diff := cmp.Diff(wantFields, got.fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	wantFiles := map[string][]string{
		"jrxml":  {"cert.jrxml"},
		"images": {"seal.png"},
	}
	if diff := cmp.Diff(wantFiles, got.files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if got.contents["jrxml"][0] != "<jasperReport/>" {
		t.Fatalf("unexpected jrxml content %q", got.contents["jrxml"][0])
	}

	state := ctrl.State()
	if state.TemplateName != "" || state.ImageType != "" || state.SelectedUser != nil {
		t.Fatalf("expected fields reset, got %+v", state)
	}
	if len(state.JRXMLFiles) != 0 || len(state.Images) != 0 || len(state.ImagePreviews) != 0 {
		t.Fatalf("expected file arrays reset, got %+v", state)
	}
	if state.Submitting {
		t.Fatalf("expected submitting false after success")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected previews released on reset, got %d", reg.Len())
	}
	last, _ := rec.Last()
	if last.Title != "Upload Successful" || last.IsError() {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestSubmit_RejectionKeepsState(t *testing.T) {
	backend := &fakeBackend{
		usersBody:  twoUsers,
		submitCode: http.StatusConflict,
		submitBody: "duplicate name",
	}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)

	err := ctrl.Submit(context.Background())
	var rejected *RejectedError
	if !errors.As(err, &rejected) || rejected.StatusCode != http.StatusConflict {
		t.Fatalf("expected RejectedError 409, got %v", err)
	}

	last, _ := rec.Last()
	if last.Title != "Upload Failed" || !strings.Contains(last.Description, "duplicate name") {
		t.Fatalf("unexpected notification %+v", last)
	}
	state := ctrl.State()
	if state.TemplateName != "Cert A" {
		t.Fatalf("expected template name kept, got %q", state.TemplateName)
	}
	if state.SelectedUser == nil || len(state.JRXMLFiles) != 1 {
		t.Fatalf("expected selection kept, got %+v", state)
	}
	if state.Submitting {
		t.Fatalf("expected submitting false after rejection")
	}
}

func TestSubmit_RejectionWithoutBodyUsesGenericMessage(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers, submitCode: http.StatusBadRequest}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)

	_ = ctrl.Submit(context.Background())
	last, _ := rec.Last()
	if last.Description != "Server error occurred." {
		t.Fatalf("unexpected description %q", last.Description)
	}
}

func TestSubmit_NetworkError(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, srv := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)
	srv.Close()

	err := ctrl.Submit(context.Background())
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	last, _ := rec.Last()
	if last.Title != "Network Error" || last.Description == "" {
		t.Fatalf("unexpected notification %+v", last)
	}
	if ctrl.State().TemplateName != "Cert A" {
		t.Fatalf("expected state kept after network error")
	}
	if ctrl.Submitting() {
		t.Fatalf("expected submitting false after network error")
	}
}

func TestSubmit_SubmittingOnlyWhileInFlight(t *testing.T) {
	for _, code := range []int{http.StatusCreated, http.StatusBadRequest} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			backend := &fakeBackend{
				usersBody:  twoUsers,
				submitCode: code,
				submitBody: "nope",
				hold:       make(chan struct{}),
				entered:    make(chan struct{}, 1),
			}
			ctrl, _, _ := newHarness(t, backend, "tok")
			ctrl.Mount(context.Background())
			fillValid(t, ctrl)

			if ctrl.Submitting() {
				t.Fatalf("submitting before submit")
			}
			done := make(chan error, 1)
			go func() { done <- ctrl.Submit(context.Background()) }()

			select {
			case <-backend.entered:
			case <-time.After(5 * time.Second):
				t.Fatalf("request never reached the server")
			}
			if !ctrl.Submitting() {
				t.Fatalf("expected submitting while in flight")
			}
			if !errors.Is(ctrl.Submit(context.Background()), ErrSubmitInFlight) {
				t.Fatalf("expected ErrSubmitInFlight for a concurrent submit")
			}
			if ctrl.View().CanSubmit() {
				t.Fatalf("expected submit disabled while in flight")
			}

			close(backend.hold)
			<-done
			if ctrl.Submitting() {
				t.Fatalf("expected submitting false after resolution")
			}
			if backend.submitCalls.Load() != 1 {
				t.Fatalf("expected one request, got %d", backend.submitCalls.Load())
			}
		})
	}
}

func TestSubmit_NotifiesAfterSubmittingClears(t *testing.T) {
	cases := map[string]struct {
		code      int
		closeSrv  bool
		wantTitle string
	}{
		"success":  {code: http.StatusCreated, wantTitle: "Upload Successful"},
		"rejected": {code: http.StatusConflict, wantTitle: "Upload Failed"},
		"network":  {closeSrv: true, wantTitle: "Network Error"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			backend := &fakeBackend{usersBody: twoUsers, submitCode: tc.code, submitBody: "duplicate name"}
			backend.t = t
			srv := httptest.NewServer(backend)
			t.Cleanup(srv.Close)
			client, err := api.NewClient(srv.URL, api.WithHTTPClient(srv.Client()))
			if err != nil {
				t.Fatalf("new client: %v", err)
			}

			var ctrl *Controller
			var titles []string
			var sawSubmitting bool
			ctrl, err = NewController(client,
				WithTokenSource(session.Static("tok")),
				WithNotifier(notify.NotifierFunc(func(_ context.Context, n notify.Notification) {
					titles = append(titles, n.Title)
					if ctrl.Submitting() || ctrl.View().Submitting {
						sawSubmitting = true
					}
				})),
			)
			if err != nil {
				t.Fatalf("new controller: %v", err)
			}
			ctrl.Mount(context.Background())
			fillValid(t, ctrl)
			if tc.closeSrv {
				srv.Close()
			}

			_ = ctrl.Submit(context.Background())
			if diff := cmp.Diff([]string{tc.wantTitle}, titles); diff != "" {
				t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
			}
			if sawSubmitting {
				t.Fatalf("notifier observed submitting=true")
			}
		})
	}
}

func TestSubmit_PanicStillClearsSubmitting(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, _, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)
	ctrl.SelectJRXML([]File{NewFile("bad.jrxml", "", func() (io.ReadCloser, error) {
		panic("disk vanished")
	})})

	func() {
		defer func() { _ = recover() }()
		_ = ctrl.Submit(context.Background())
	}()

	if ctrl.Submitting() {
		t.Fatalf("expected submitting cleared after panic")
	}
}

func TestSubmit_OpenFailureIsTransportError(t *testing.T) {
	backend := &fakeBackend{usersBody: twoUsers}
	ctrl, rec, _ := newHarness(t, backend, "tok")
	ctrl.Mount(context.Background())
	fillValid(t, ctrl)
	ctrl.SelectJRXML([]File{NewFile("gone.jrxml", "", func() (io.ReadCloser, error) {
		return nil, errors.New("file vanished")
	})})

	var transport *TransportError
	if err := ctrl.Submit(context.Background()); !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if backend.submitCalls.Load() != 0 {
		t.Fatalf("expected no request when a file cannot be read")
	}
	last, _ := rec.Last()
	if !strings.Contains(last.Description, "file vanished") {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestTeardown_StopsMutations(t *testing.T) {
	ctrl, _, _ := newHarness(t, &fakeBackend{}, "")
	ctrl.Teardown()
	ctrl.SetTemplateName("ignored")
	if ctrl.State().TemplateName != "" {
		t.Fatalf("expected mutations ignored after teardown")
	}
	if !errors.Is(ctrl.Submit(context.Background()), ErrTornDown) {
		t.Fatalf("expected ErrTornDown")
	}
}
