package am

import (
	"net/url"

	"github.com/teranos/tpu/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Engine: threads must be usable, zero timeouts mean disabled
	if c.Engine.Threads < 1 {
		return errors.Newf("engine.threads must be >= 1, got %d", c.Engine.Threads)
	}
	if c.Engine.TimeoutSeconds < 0 {
		return errors.Newf("engine.timeout_seconds must be >= 0, got %d", c.Engine.TimeoutSeconds)
	}
	if c.Engine.DeadlineSeconds < 0 {
		return errors.Newf("engine.deadline_seconds must be >= 0, got %d", c.Engine.DeadlineSeconds)
	}
	if c.Engine.MaxRequestsPerMinute < 0 {
		return errors.Newf("engine.max_requests_per_minute must be >= 0, got %d", c.Engine.MaxRequestsPerMinute)
	}
	if c.Engine.API == "" {
		return errors.WithHint(errors.New("engine.api cannot be empty"), "e.g. api = \"http://localhost:8087/dmp/\"")
	}
	u, err := url.Parse(c.Engine.API)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Newf("engine.api must be an absolute http(s) URL, got %q", c.Engine.API)
	}

	if c.Resource.WatchFolder == "" {
		return errors.New("resource.watchfolder cannot be empty")
	}
	if c.Resource.Preprocessing && c.Preprocessing.XSLT == "" {
		return errors.New("preprocessing.xslt cannot be empty when resource.preprocessing is enabled")
	}

	if c.Prototype.DataModelID == "" {
		return errors.New("prototype.data_model_id cannot be empty")
	}
	if c.Workflow.Transform {
		if c.Prototype.ProjectID == "" {
			return errors.New("prototype.project_id cannot be empty when workflow.transform is enabled")
		}
		if c.Prototype.OutputDataModelID == "" {
			return errors.New("prototype.output_data_model_id cannot be empty when workflow.transform is enabled")
		}
	}

	if c.Results.PersistInFolder && c.Results.Folder == "" {
		return errors.New("results.folder cannot be empty when results are persisted in a folder")
	}

	return nil
}
