package testing

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Default identifiers served by FakeEngine
const (
	FakeDataModelID       = "dm-in"
	FakeOutputDataModelID = "dm-out"
	FakeProjectID         = "project-1"
	FakeResourceID        = "resource-proto"
	FakeProjectResourceID = "resource-old"
	FakeInputResourceID   = "resource-new"
)

// FakeRecords is the task output served by default: one record with
// a literal title and an rdf:type.
const FakeRecords = `[{"__record_id":"\"urn:1\"","__record_data":[{"http://example/title":"Hello"},{"http://www.w3.org/1999/02/22-rdf-syntax-ns#type":"\"http://example/Doc\""}]}]`

// RecordedRequest is one request received by FakeEngine
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
	// Form holds the multipart text fields of resource uploads
	Form map[string]string
	// FileName is the multipart file part's name
	FileName string
}

// FakeEngine is an httptest server speaking the subset of the d:swarm API
// the batch uses. Behavior is adjusted through its exported fields before
// the first request.
type FakeEngine struct {
	Server *httptest.Server

	// DataModel is served for FakeDataModelID and FakeOutputDataModelID
	DataModel string
	// Project is served for FakeProjectID
	Project string
	// TaskStatus decides the status of the n-th task submission (1-based); nil = 200
	TaskStatus func(n int) int
	// TaskResponse is the body of successful task submissions
	TaskResponse string
	// Status overrides the status for "METHOD /path" keys, e.g. "POST /dmp/datamodels/dm-in/data"
	Status map[string]int
	// Delay is slept inside every handler
	Delay time.Duration

	mu          sync.Mutex
	requests    []RecordedRequest
	taskCalls   int
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewFakeEngine starts a FakeEngine and registers its shutdown with t.Cleanup
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()

	e := &FakeEngine{
		DataModel: fmt.Sprintf(`{"uuid":%q,"configuration":{"resources":[{"uuid":%q}]},"data_resource":{"uuid":%q}}`,
			FakeDataModelID, FakeResourceID, FakeInputResourceID),
		Project: fmt.Sprintf(`{"uuid":%q,"mappings":[{"uuid":"m-1","input_attribute_paths":[{"resource":%q}]}],"input_data_model":{"data_resource":{"uuid":%q}}}`,
			FakeProjectID, FakeProjectResourceID, FakeProjectResourceID),
		TaskResponse: FakeRecords,
		Status:       map[string]int{},
	}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Server.Close)
	return e
}

// URL returns the engine API base URL
func (e *FakeEngine) URL() string {
	return e.Server.URL + "/dmp/"
}

// Requests returns a copy of all requests received so far
func (e *FakeEngine) Requests() []RecordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RecordedRequest(nil), e.requests...)
}

// RequestsTo returns the received requests matching method and path
func (e *FakeEngine) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range e.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// MaxInFlight returns the highest number of concurrently handled requests
func (e *FakeEngine) MaxInFlight() int {
	return int(e.maxInFlight.Load())
}

func (e *FakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	current := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxInFlight.Load()
		if current <= seen || e.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	rec := e.record(r)
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}

	if status, ok := e.Status[r.Method+" "+r.URL.Path]; ok && status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/dmp/")
	switch {
	case r.Method == http.MethodPost && path == "resources/":
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"uuid":"resource-%d","name":%q}`, len(e.Requests()), rec.Form["name"]))
	case r.Method == http.MethodPut && strings.HasPrefix(path, "resources/"):
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"uuid":%q,"name":%q}`, strings.TrimPrefix(path, "resources/"), rec.Form["name"]))
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "resources/"):
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/configurations"):
		writeJSON(w, http.StatusOK, `[{"uuid":"conf-1","parameters":{"storage_type":"xml"}}]`)
	case r.Method == http.MethodGet && (path == "datamodels/"+FakeDataModelID || path == "datamodels/"+FakeOutputDataModelID):
		writeJSON(w, http.StatusOK, e.DataModel)
	case r.Method == http.MethodPost && strings.HasPrefix(path, "datamodels/") && strings.HasSuffix(path, "/data"):
		writeJSON(w, http.StatusOK, e.DataModel)
	case r.Method == http.MethodGet && path == "projects/"+FakeProjectID:
		writeJSON(w, http.StatusOK, e.Project)
	case r.Method == http.MethodPost && path == "tasks":
		e.mu.Lock()
		e.taskCalls++
		n := e.taskCalls
		e.mu.Unlock()
		status := http.StatusOK
		if e.TaskStatus != nil {
			status = e.TaskStatus(n)
		}
		if status != http.StatusOK {
			http.Error(w, "task failed", status)
			return
		}
		writeJSON(w, http.StatusOK, e.TaskResponse)
	default:
		http.NotFound(w, r)
	}
}

func (e *FakeEngine) record(r *http.Request) RecordedRequest {
	rec := RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			rec.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				if len(v) > 0 {
					rec.Form[k] = v[0]
				}
			}
			if files := r.MultipartForm.File["file"]; len(files) > 0 {
				rec.FileName = files[0].Filename
			}
		}
	} else if r.Body != nil {
		rec.Body, _ = io.ReadAll(r.Body)
	}

	e.mu.Lock()
	e.requests = append(e.requests, rec)
	e.mu.Unlock()
	return rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
