package dswarm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// TaskRequest is the body of a task submission
type TaskRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Job             Job             `json:"job"`
	InputDataModel  json.RawMessage `json:"input_data_model"`
	OutputDataModel json.RawMessage `json:"output_data_model"`
}

// Job carries the project's mappings under a fresh job UUID
type Job struct {
	Mappings json.RawMessage `json:"mappings"`
	UUID     string          `json:"uuid"`
}

func newUUID() string {
	return uuid.NewString()
}

// FetchProject returns the stored project as raw JSON
func (c *Client) FetchProject(ctx context.Context, projectID string) (json.RawMessage, error) {
	if projectID == "" {
		return nil, errors.NewPreconditionError("project ID is empty")
	}
	return c.do(ctx, request{
		operation: "fetch project",
		method:    http.MethodGet,
		url:       c.endpoint("", "projects", projectID),
		want:      http.StatusOK,
	})
}

// FetchProjectMappings returns the project's "mappings" array as raw JSON
func (c *Client) FetchProjectMappings(ctx context.Context, projectID string) (json.RawMessage, error) {
	project, err := c.FetchProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return projectMappings(project, projectID)
}

func projectMappings(project []byte, projectID string) (json.RawMessage, error) {
	value, dataType, _, err := jsonparser.Get(project, "mappings")
	if err != nil || dataType != jsonparser.Array {
		return nil, errors.NewMalformedResponseError("project %s has no mappings array", projectID)
	}
	return json.RawMessage(value), nil
}

// TaskName returns the task name submitted for this client's project
func (c *Client) TaskName() string {
	return fmt.Sprintf("Task Batch-Prozess '%s'", c.projectName)
}

// ExecuteTask runs the project's mappings from the input to the output data
// model and returns the engine's transformed record array. It fetches the
// project, the input model and the output model, then submits the task.
func (c *Client) ExecuteTask(ctx context.Context, inputDataModelID, projectID, outputDataModelID string) (json.RawMessage, error) {
	if inputDataModelID == "" || projectID == "" || outputDataModelID == "" {
		return nil, errors.NewPreconditionError("task needs input data model, project and output data model IDs")
	}

	project, err := c.FetchProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	mappings, err := projectMappings(project, projectID)
	if err != nil {
		return nil, err
	}

	inputModel, err := c.FetchDataModel(ctx, inputDataModelID)
	if err != nil {
		return nil, err
	}
	outputModel, err := c.FetchDataModel(ctx, outputDataModelID)
	if err != nil {
		return nil, err
	}

	mappings = substituteResourceID(mappings, project, inputModel)

	task := TaskRequest{
		Name:        c.TaskName(),
		Description: fmt.Sprintf("%s zum InputDataModel '%s'", c.TaskName(), inputDataModelID),
		Job: Job{
			Mappings: mappings,
			UUID:     c.newTaskID(),
		},
		InputDataModel:  inputModel,
		OutputDataModel: outputModel,
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	// Mappings carry XPath and filter expressions, keep them byte-for-byte
	enc.SetEscapeHTML(false)
	if err := enc.Encode(task); err != nil {
		return nil, errors.NewMalformedResponseError("task body for project %s is not valid JSON: %s", projectID, err)
	}

	c.logger.Debugw("Submitting task",
		logger.FieldProject, projectID,
		logger.FieldDataModel, inputDataModelID,
		logger.FieldOutputDM, outputDataModelID,
		"job_uuid", task.Job.UUID)

	resp, err := c.do(ctx, request{
		operation:   "execute task",
		method:      http.MethodPost,
		url:         c.endpoint(fmt.Sprintf("persist=%t", c.persistInDMP), "tasks"),
		body:        body.Bytes(),
		contentType: "application/json; charset=utf-8",
		want:        http.StatusOK,
		task:        true,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

// substituteResourceID points the mappings at the input model's resource.
// Project mappings reference the resource of the project's own input data
// model; every textual occurrence of that ID is replaced, nested or not.
func substituteResourceID(mappings json.RawMessage, project, inputModel []byte) json.RawMessage {
	oldID, err := jsonparser.GetString(project, "input_data_model", "data_resource", "uuid")
	if err != nil || oldID == "" {
		return mappings
	}
	newID, err := jsonparser.GetString(inputModel, "data_resource", "uuid")
	if err != nil || newID == "" || newID == oldID {
		return mappings
	}
	return json.RawMessage(strings.ReplaceAll(string(mappings), oldID, newID))
}
