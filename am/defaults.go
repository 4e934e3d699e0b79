package am

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Default values referenced outside SetDefaults
const (
	DefaultServiceName          = "tpu"
	DefaultThreads              = 1
	DefaultTimeoutSeconds       = 60
	DefaultPreprocessingCommand = "xsltproc -o {output} {xslt} {input}"
	DefaultRDFFormat            = "xml"
	DefaultRDFGraph             = "http://data.slub-dresden.de/graph"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service.name", DefaultServiceName)

	// Engine defaults
	v.SetDefault("engine.api", "")
	v.SetDefault("engine.threads", DefaultThreads)
	v.SetDefault("engine.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("engine.deadline_seconds", 0)        // No overall deadline
	v.SetDefault("engine.max_requests_per_minute", 0) // Unlimited
	v.SetDefault("engine.block_private_ip", false)    // Engines usually run next to the batch host

	// Resource defaults
	v.SetDefault("resource.watchfolder", "")
	v.SetDefault("resource.preprocessing", false)

	// Preprocessing defaults
	v.SetDefault("preprocessing.folder", os.TempDir())
	v.SetDefault("preprocessing.xslt", "")
	v.SetDefault("preprocessing.command", DefaultPreprocessingCommand)

	v.SetDefault("prototype.data_model_id", "")
	v.SetDefault("prototype.project_id", "")
	v.SetDefault("prototype.output_data_model_id", "")

	v.SetDefault("project.name", DefaultServiceName)

	// Workflow defaults
	v.SetDefault("workflow.transform", true)
	v.SetDefault("workflow.resolve_failure_fatal", false)

	// Results defaults
	v.SetDefault("results.folder", "")
	v.SetDefault("results.persist_in_folder", true)
	v.SetDefault("results.write_dmp_json", false)
	v.SetDefault("results.persist_in_dmp", false)
	v.SetDefault("results.rdf.format", DefaultRDFFormat)
	v.SetDefault("results.rdf.graph", DefaultRDFGraph)

	v.SetDefault("ledger.path", "") // Disabled

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds the values operators most often override per host
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("engine.api", "TPU_ENGINE_API")
	v.BindEnv("resource.watchfolder", "TPU_RESOURCE_WATCHFOLDER")
	v.BindEnv("results.folder", "TPU_RESULTS_FOLDER")
	v.BindEnv("ledger.path", "TPU_LEDGER_PATH")
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Engine: {API: %s, Threads: %d}, Resource: {WatchFolder: %s, Preprocessing: %t}, Results: {Folder: %s, Format: %s}}",
		c.Engine.API, c.Engine.Threads, c.Resource.WatchFolder, c.Resource.Preprocessing, c.Results.Folder, c.Results.RDF.Format)
}
