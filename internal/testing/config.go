package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/teranos/tpu/am"
)

// NewConfig returns a valid configuration pointing at engineURL with the
// given watch folder, the FakeEngine identifiers and an existing empty
// results folder.
func NewConfig(t *testing.T, engineURL, watchFolder string) *am.Config {
	t.Helper()

	results := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(results, 0755); err != nil {
		t.Fatalf("Failed to create results folder: %v", err)
	}

	return &am.Config{
		Service: am.ServiceConfig{Name: "tpu-test"},
		Engine: am.EngineConfig{
			API:            engineURL,
			Threads:        1,
			TimeoutSeconds: 5,
		},
		Resource:      am.ResourceConfig{WatchFolder: watchFolder},
		Preprocessing: am.PreprocessingConfig{Command: am.DefaultPreprocessingCommand},
		Prototype: am.PrototypeConfig{
			DataModelID:       FakeDataModelID,
			ProjectID:         FakeProjectID,
			OutputDataModelID: FakeOutputDataModelID,
		},
		Project:  am.ProjectConfig{Name: "CrossRef"},
		Workflow: am.WorkflowConfig{Transform: true},
		Results: am.ResultsConfig{
			Folder:          results,
			PersistInFolder: true,
			RDF: am.RDFConfig{
				Format: am.DefaultRDFFormat,
				Graph:  am.DefaultRDFGraph,
			},
		},
	}
}
