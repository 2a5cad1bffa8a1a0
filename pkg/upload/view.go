package upload

import (
	"fmt"

	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/users"
)

// View is the read-only selection display derived from the controller.
type View struct {
	TemplateName string
	ImageType    string
	SelectedUser *users.SelectableUser
	Users        []users.SelectableUser
	UserStatus   UserListStatus
	JRXMLNames   []string
	ImageNames   []string
	Previews     []preview.Ref
	Submitting   bool
}

// JRXMLCount reports how many layout files are selected.
func (v View) JRXMLCount() int {
	return len(v.JRXMLNames)
}

// CanSubmit reports whether the submit action should be enabled.
func (v View) CanSubmit() bool {
	return !v.Submitting
}

// JRXMLSummary is "N file(s) selected", or empty when nothing is selected.
func (v View) JRXMLSummary() string {
	if len(v.JRXMLNames) == 0 {
		return ""
	}
	return fmt.Sprintf("%d file(s) selected", len(v.JRXMLNames))
}

// SelectedLabel is "Selected: name (ID: id)", or empty without a selection.
func (v View) SelectedLabel() string {
	if v.SelectedUser == nil {
		return ""
	}
	return fmt.Sprintf("Selected: %s (ID: %s)", v.SelectedUser.Username, v.SelectedUser.ID)
}

// UserPlaceholder is the text of the empty option of the user picker. It
// tells "not signed in", "loading" and "failed" apart from "loaded but empty".
func (v View) UserPlaceholder() string {
	switch v.UserStatus {
	case StatusUnavailable:
		return placeholderNoToken
	case StatusLoading:
		return placeholderLoading
	case StatusFailed:
		return placeholderFailed
	}
	if len(v.Users) == 0 {
		return placeholderEmpty
	}
	return placeholderSelectUser
}
