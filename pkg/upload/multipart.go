package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart field names of the template endpoint.
const (
	PartTemplateName = "templateName"
	PartImageType    = "imageType"
	PartCreatedBy    = "createdBy"
	PartJRXML        = "jrxml"
	PartImages       = "images"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeSubmission writes the multipart body for state and returns it with
// its content type. state must already be validated.
func encodeSubmission(state FormState) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := [][2]string{
		{PartTemplateName, state.TemplateName},
		{PartImageType, state.ImageType},
		{PartCreatedBy, state.SelectedUser.ID.String()},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("upload: write field %s: %w", field[0], err)
		}
	}
	for _, f := range state.JRXMLFiles {
		if err := writeFilePart(w, PartJRXML, f); err != nil {
			return nil, "", err
		}
	}
	for _, f := range state.Images {
		if err := writeFilePart(w, PartImages, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("upload: close multipart writer: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f File) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("upload: create %s part: %w", field, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("upload: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("upload: copy %s: %w", f.Name, err)
	}
	return nil
}
