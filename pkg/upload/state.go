package upload

import (
	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/users"
)

// FormState is the transient input of the form.
// len(ImagePreviews) always equals len(Images).
type FormState struct {
	TemplateName  string
	ImageType     string
	SelectedUser  *users.SelectableUser
	JRXMLFiles    []File
	Images        []File
	ImagePreviews []preview.Ref
	Submitting    bool
}

func (s FormState) clone() FormState {
	out := s
	if s.SelectedUser != nil {
		u := *s.SelectedUser
		out.SelectedUser = &u
	}
	out.JRXMLFiles = append([]File(nil), s.JRXMLFiles...)
	out.Images = append([]File(nil), s.Images...)
	out.ImagePreviews = append([]preview.Ref(nil), s.ImagePreviews...)
	return out
}

// UserListStatus tells apart the reasons an empty user list can have.
type UserListStatus int

const (
	// StatusUnavailable means no token was present, so nothing was fetched.
	StatusUnavailable UserListStatus = iota
	// StatusLoading means the fetch is in flight.
	StatusLoading
	// StatusLoaded means the list reflects the last successful fetch.
	StatusLoaded
	// StatusFailed means the fetch failed; the list is left as it was.
	StatusFailed
)

func (s UserListStatus) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
