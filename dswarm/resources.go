package dswarm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/buger/jsonparser"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// UploadResource creates a new engine resource from the file at filePath and
// returns its identifier.
func (c *Client) UploadResource(ctx context.Context, filePath, name, description string) (string, error) {
	body, contentType, err := multipartBody(filePath, name, description)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, request{
		operation:   "upload resource",
		method:      http.MethodPost,
		url:         c.endpoint("", "resources", ""),
		body:        body,
		contentType: contentType,
		want:        http.StatusCreated,
	})
	if err != nil {
		return "", err
	}

	id, err := resourceUUID(resp, "upload resource")
	if err != nil {
		return "", err
	}
	c.logger.Infow("Resource uploaded", logger.FieldResource, id, logger.FieldFile, filepath.Base(filePath))
	return id, nil
}

// UpdateResource replaces the content of the existing resource resourceID
// with the file at filePath and returns the identifier the engine reports.
func (c *Client) UpdateResource(ctx context.Context, resourceID, filePath, name, description string) (string, error) {
	if resourceID == "" {
		return "", errors.WithHint(
			errors.NewPreconditionError("ID of the resource to update was empty"),
			"the update target is resolved from the prototype data model's configuration")
	}

	body, contentType, err := multipartBody(filePath, name, description)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, request{
		operation:   "update resource",
		method:      http.MethodPut,
		url:         c.endpoint("", "resources", resourceID),
		body:        body,
		contentType: contentType,
		want:        http.StatusOK,
	})
	if err != nil {
		return "", err
	}

	id, err := resourceUUID(resp, "update resource")
	if err != nil {
		return "", err
	}
	c.logger.Infow("Resource updated", logger.FieldResource, id, logger.FieldFile, filepath.Base(filePath))
	return id, nil
}

// FetchResourceConfigurations returns the configurations stored for a resource
func (c *Client) FetchResourceConfigurations(ctx context.Context, resourceID string) (json.RawMessage, error) {
	if resourceID == "" {
		return nil, errors.NewPreconditionError("resource ID is empty")
	}
	return c.do(ctx, request{
		operation: "fetch resource configurations",
		method:    http.MethodGet,
		url:       c.endpoint("", "resources", resourceID, "configurations"),
		want:      http.StatusOK,
	})
}

// DeleteResource removes a resource from the engine
func (c *Client) DeleteResource(ctx context.Context, resourceID string) error {
	if resourceID == "" {
		return errors.NewPreconditionError("resource ID is empty")
	}
	_, err := c.do(ctx, request{
		operation: "delete resource",
		method:    http.MethodDelete,
		url:       c.endpoint("", "resources", resourceID),
		want:      http.StatusNoContent,
	})
	if err != nil {
		return err
	}
	c.logger.Infow("Resource deleted", logger.FieldResource, resourceID)
	return nil
}

// resourceUUID reads the "uuid" field of a resource response
func resourceUUID(body []byte, operation string) (string, error) {
	id, err := jsonparser.GetString(body, "uuid")
	if err != nil || id == "" {
		return "", errors.NewMalformedResponseError("%s: response has no resource uuid", operation)
	}
	return id, nil
}

// multipartBody encodes the upload form: file, name and description
func multipartBody(filePath, name, description string) ([]byte, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open resource file")
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create file part")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", errors.Wrap(err, "failed to read resource file")
	}
	if err := w.WriteField("name", name); err != nil {
		return nil, "", errors.Wrap(err, "failed to write name field")
	}
	if err := w.WriteField("description", description); err != nil {
		return nil, "", errors.Wrap(err, "failed to write description field")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to finish multipart body")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
