package dswarm

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/buger/jsonparser"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// FetchDataModel returns the stored data model as raw JSON
func (c *Client) FetchDataModel(ctx context.Context, dataModelID string) (json.RawMessage, error) {
	if dataModelID == "" {
		return nil, errors.NewPreconditionError("data model ID is empty")
	}
	return c.do(ctx, request{
		operation: "fetch data model",
		method:    http.MethodGet,
		url:       c.endpoint("", "datamodels", dataModelID),
		want:      http.StatusOK,
	})
}

// FetchProjectResourceRef returns the first resource listed in the data
// model's configuration. That resource is the update target for uploads.
func (c *Client) FetchProjectResourceRef(ctx context.Context, dataModelID string) (string, error) {
	model, err := c.FetchDataModel(ctx, dataModelID)
	if err != nil {
		return "", err
	}

	id, err := jsonparser.GetString(model, "configuration", "resources", "[0]", "uuid")
	switch {
	case err == jsonparser.KeyPathNotFoundError || (err == nil && id == ""):
		return "", errors.NewNotFoundError("data model %s has no configured resource", dataModelID)
	case err != nil:
		return "", errors.NewMalformedResponseError("data model %s: resource uuid is not a string", dataModelID)
	}

	c.logger.Debugw("Resolved update target", logger.FieldDataModel, dataModelID, logger.FieldResource, id)
	return id, nil
}

// TriggerDataModelRefresh asks the engine to re-read the data model's
// current resource. Success means the refresh was accepted.
func (c *Client) TriggerDataModelRefresh(ctx context.Context, dataModelID string) (string, error) {
	if dataModelID == "" {
		return "", errors.NewPreconditionError("data model ID is empty")
	}
	_, err := c.do(ctx, request{
		operation: "refresh data model",
		method:    http.MethodPost,
		url:       c.endpoint("", "datamodels", dataModelID, "data"),
		want:      http.StatusOK,
	})
	if err != nil {
		return "", err
	}
	c.logger.Infow("Data model refresh accepted", logger.FieldDataModel, dataModelID)
	return dataModelID, nil
}
