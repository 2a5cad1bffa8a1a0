package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-certupload/pkg/upload"
)

// Controller is the part of upload.Controller a session drives.
type Controller interface {
	Mount(ctx context.Context)
	SetTemplateName(name string)
	SetImageType(code string)
	SelectUser(id string) error
	SelectJRXML(files []upload.File)
	SelectImages(files []upload.File)
	Submit(ctx context.Context) error
	View() upload.View
}

var _ Controller = (*upload.Controller)(nil)

// Session plays the upload page in a terminal: it prompts for each field,
// shows the selection, confirms and submits. Failed submissions return to
// the form with every value kept.
type Session struct {
	controller  Controller
	driver      PromptDriver
	theme       Theme
	summaryHook SummaryHook
	glob        GlobFunc
	logger      *slog.Logger
}

// NewSession builds a session over controller. The survey driver is used
// unless WithPromptDriver is given.
func NewSession(controller Controller, options ...Option) (*Session, error) {
	if controller == nil {
		return nil, ErrNoController
	}
	s := &Session{
		controller: controller,
		theme:      DefaultTheme,
		glob:       defaultGlob,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s, nil
}

// Driver returns the prompt driver, e.g. to build a Notifier sharing it.
func (s *Session) Driver() PromptDriver {
	return s.driver
}

// Run mounts the controller and loops until the operator quits. ErrAborted
// is returned when input is interrupted.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	s.controller.Mount(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fillForm(ctx); err != nil {
			return err
		}

		view := s.controller.View()
		if err := s.driver.Info(ctx, FormatView(view)); err != nil {
			return err
		}
		if s.summaryHook != nil {
			if err := s.summaryHook(ctx, view); err != nil {
				s.logger.Warn("summary hook failed", "error", err)
			}
		}

		proceed, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Upload template?", Default: true})
		if err != nil {
			return err
		}
		if !proceed {
			quit, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Quit without uploading?"})
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		err = s.controller.Submit(ctx)
		switch {
		case err == nil:
			again, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Upload another template?"})
			if err != nil {
				return err
			}
			if !again {
				return nil
			}
		case errors.Is(err, upload.ErrTornDown):
			return err
		default:
			// The controller has already notified; go back to the form.
			s.logger.Debug("submission not accepted", "error", err)
		}
	}
}

func (s *Session) fillForm(ctx context.Context) error {
	view := s.controller.View()

	name, err := s.driver.Input(ctx, InputConfig{
		Message: "Template Name",
		Default: view.TemplateName,
	})
	if err != nil {
		return err
	}
	s.controller.SetTemplateName(name)

	code, err := s.driver.Input(ctx, InputConfig{
		Message: "Image Type",
		Default: view.ImageType,
		Help:    "Numeric image type code, e.g. 1, 2, 3",
	})
	if err != nil {
		return err
	}
	s.controller.SetImageType(code)

	if err := s.promptUser(ctx, view); err != nil {
		return err
	}

	jrxml, err := s.promptFiles(ctx, "JRXML Files", view.JRXMLNames, true)
	if err != nil {
		return err
	}
	if jrxml != nil {
		s.controller.SelectJRXML(jrxml)
	}

	images, err := s.promptFiles(ctx, "Images", view.ImageNames, false)
	if err != nil {
		return err
	}
	if images != nil {
		s.controller.SelectImages(images)
	}
	return nil
}

func (s *Session) promptUser(ctx context.Context, view upload.View) error {
	if len(view.Users) == 0 {
		return s.driver.Info(ctx, fmt.Sprintf("Created By: %s", view.UserPlaceholder()))
	}

	options := make([]string, 0, len(view.Users)+1)
	options = append(options, view.UserPlaceholder())
	defaultIdx := 0
	for i, u := range view.Users {
		options = append(options, fmt.Sprintf("%s (ID: %s)", u.Label(), u.ID))
		if view.SelectedUser != nil && view.SelectedUser.ID == u.ID {
			defaultIdx = i + 1
		}
	}

	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      "Created By",
		Options:      options,
		DefaultIndex: defaultIdx,
		PageSize:     10,
	})
	if err != nil {
		return err
	}
	if idx <= 0 || idx > len(view.Users) {
		return s.controller.SelectUser("")
	}
	return s.controller.SelectUser(view.Users[idx-1].ID.String())
}

// promptFiles asks for comma separated paths or glob patterns. It returns nil
// when the input is blank, which keeps the current selection.
func (s *Session) promptFiles(ctx context.Context, label string, current []string, required bool) ([]upload.File, error) {
	help := "Comma separated paths or glob patterns"
	if len(current) > 0 {
		help += "; leave blank to keep " + strings.Join(current, ", ")
	} else if !required {
		help += "; leave blank to skip"
	}

	for {
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Help: help})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}

		paths, err := expandPaths(raw, s.glob)
		if err == nil {
			var files []upload.File
			if files, err = upload.DiskFiles(paths...); err == nil {
				return files, nil
			}
		}
		if err := s.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %v", s.theme.ErrorPrefix, strings.ToLower(label), err)); err != nil {
			return nil, err
		}
	}
}

func expandPaths(raw string, glob GlobFunc) ([]string, error) {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.ContainsAny(item, "*?[") {
			out = append(out, item)
			continue
		}
		matches, err := glob(item)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", item, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", item)
		}
		out = append(out, matches...)
	}
	if len(out) == 0 {
		return nil, errors.New("no paths given")
	}
	return out, nil
}

// FormatView renders the selection display as plain text.
func FormatView(view upload.View) string {
	var b strings.Builder
	b.WriteString("Upload Certificate Template\n")
	fmt.Fprintf(&b, "  Template Name: %s\n", view.TemplateName)
	fmt.Fprintf(&b, "  Image Type:    %s\n", view.ImageType)
	if label := view.SelectedLabel(); label != "" {
		fmt.Fprintf(&b, "  %s\n", label)
	} else {
		fmt.Fprintf(&b, "  Created By:    %s\n", view.UserPlaceholder())
	}
	if summary := view.JRXMLSummary(); summary != "" {
		fmt.Fprintf(&b, "  JRXML:         %s (%s)\n", summary, strings.Join(view.JRXMLNames, ", "))
	} else {
		b.WriteString("  JRXML:         none\n")
	}
	if len(view.ImageNames) == 0 {
		b.WriteString("  Images:        none")
		return b.String()
	}
	b.WriteString("  Images:")
	for i, name := range view.ImageNames {
		ref := ""
		if i < len(view.Previews) {
			ref = " " + string(view.Previews[i])
		}
		fmt.Fprintf(&b, "\n    - %s%s", name, ref)
	}
	return b.String()
}
