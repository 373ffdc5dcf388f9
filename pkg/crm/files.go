package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// File is a file stored in the CRM file manager.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// UploadFile stores content in the CRM file manager under folderPath with
// private access. This is the only call that is not JSON encoded.
func (c *Client) UploadFile(ctx context.Context, folderPath, name, contentType string, content io.Reader) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, &Error{Message: "build upload", Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &Error{Message: "build upload", Err: err}
	}

	opts, _ := json.Marshal(map[string]any{"access": "PRIVATE", "overwrite": false})
	_ = mw.WriteField("fileName", name)
	_ = mw.WriteField("folderPath", folderPath)
	_ = mw.WriteField("options", string(opts))
	if err := mw.Close(); err != nil {
		return nil, &Error{Message: "build upload", Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/files/v3/files", nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var f File
	if err := c.send(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// EnrollInWorkflow enrolls an object in an automation workflow.
func (c *Client) EnrollInWorkflow(ctx context.Context, workflowID, objectType, objectID string) error {
	body := map[string]string{"objectId": objectID, "objectTypeId": objectType}
	return c.Do(ctx, http.MethodPost, "/automation/v3/workflows/"+url.PathEscape(workflowID)+"/enrollments", nil, body, nil)
}
