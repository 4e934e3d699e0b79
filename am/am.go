package am

import "time"

// Config represents the tpu batch configuration
type Config struct {
	Service       ServiceConfig       `mapstructure:"service" toml:"service" json:"service"`
	Engine        EngineConfig        `mapstructure:"engine" toml:"engine" json:"engine"`
	Resource      ResourceConfig      `mapstructure:"resource" toml:"resource" json:"resource"`
	Preprocessing PreprocessingConfig `mapstructure:"preprocessing" toml:"preprocessing" json:"preprocessing"`
	Prototype     PrototypeConfig     `mapstructure:"prototype" toml:"prototype" json:"prototype"`
	Project       ProjectConfig       `mapstructure:"project" toml:"project" json:"project"`
	Workflow      WorkflowConfig      `mapstructure:"workflow" toml:"workflow" json:"workflow"`
	Results       ResultsConfig       `mapstructure:"results" toml:"results" json:"results"`
	Ledger        LedgerConfig        `mapstructure:"ledger" toml:"ledger" json:"ledger"`
	Log           LogConfig           `mapstructure:"log" toml:"log" json:"log"`
}

// ServiceConfig names this instance in logs and the run ledger
type ServiceConfig struct {
	Name string `mapstructure:"name" toml:"name" json:"name"`
}

// EngineConfig configures access to the d:swarm engine
type EngineConfig struct {
	// Base URL, e.g. http://localhost:8087/dmp/
	API string `mapstructure:"api" toml:"api" json:"api"`
	// Worker pool size (default: 1)
	Threads int `mapstructure:"threads" toml:"threads" json:"threads"`
	// Per-call timeout, 0 = no timeout (default: 60)
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
	// Per-workflow deadline, 0 = none
	DeadlineSeconds int `mapstructure:"deadline_seconds" toml:"deadline_seconds" json:"deadline_seconds"`
	// Request pacing across all workers, 0 = unlimited
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute" toml:"max_requests_per_minute" json:"max_requests_per_minute"`
	// Refuse loopback and private engine addresses
	BlockPrivateIP bool `mapstructure:"block_private_ip" toml:"block_private_ip" json:"block_private_ip"`
}

// ResourceConfig configures where input files come from and how they are prepared
type ResourceConfig struct {
	WatchFolder   string `mapstructure:"watchfolder" toml:"watchfolder" json:"watchfolder"`
	Preprocessing bool   `mapstructure:"preprocessing" toml:"preprocessing" json:"preprocessing"`
}

// PreprocessingConfig configures the external XSLT step applied before upload
type PreprocessingConfig struct {
	Folder  string `mapstructure:"folder" toml:"folder" json:"folder"`    // Temporary output folder (default: os temp dir)
	XSLT    string `mapstructure:"xslt" toml:"xslt" json:"xslt"`          // Stylesheet path
	Command string `mapstructure:"command" toml:"command" json:"command"` // Placeholders: {input} {output} {xslt}
}

// PrototypeConfig holds the engine identifiers every workflow of a run works against
type PrototypeConfig struct {
	DataModelID       string `mapstructure:"data_model_id" toml:"data_model_id" json:"data_model_id"`
	ProjectID         string `mapstructure:"project_id" toml:"project_id" json:"project_id"`
	OutputDataModelID string `mapstructure:"output_data_model_id" toml:"output_data_model_id" json:"output_data_model_id"`
}

// ProjectConfig names the project in resource and task descriptions
type ProjectConfig struct {
	Name string `mapstructure:"name" toml:"name" json:"name"`
}

// WorkflowConfig gates the optional workflow states
type WorkflowConfig struct {
	Transform           bool `mapstructure:"transform" toml:"transform" json:"transform"`                                     // false = ingest-only
	ResolveFailureFatal bool `mapstructure:"resolve_failure_fatal" toml:"resolve_failure_fatal" json:"resolve_failure_fatal"` // fail as soon as the update target cannot be resolved
}

// ResultsConfig configures where transformation output goes
type ResultsConfig struct {
	Folder          string    `mapstructure:"folder" toml:"folder" json:"folder"`
	PersistInFolder bool      `mapstructure:"persist_in_folder" toml:"persist_in_folder" json:"persist_in_folder"`
	WriteDMPJSON    bool      `mapstructure:"write_dmp_json" toml:"write_dmp_json" json:"write_dmp_json"`
	PersistInDMP    bool      `mapstructure:"persist_in_dmp" toml:"persist_in_dmp" json:"persist_in_dmp"`
	RDF             RDFConfig `mapstructure:"rdf" toml:"rdf" json:"rdf"`
}

// RDFConfig configures graph serialization
type RDFConfig struct {
	Format string `mapstructure:"format" toml:"format" json:"format"` // xml, nquads, jsonld, ttl (default: xml)
	Graph  string `mapstructure:"graph" toml:"graph" json:"graph"`    // Named graph for N-Quads and JSON-LD
}

// LedgerConfig configures the optional sqlite run ledger
type LedgerConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path"` // empty = disabled
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// CallTimeout returns the per-call timeout, 0 when disabled
func (e EngineConfig) CallTimeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Deadline returns the per-workflow deadline, 0 when disabled
func (e EngineConfig) Deadline() time.Duration {
	return time.Duration(e.DeadlineSeconds) * time.Second
}
