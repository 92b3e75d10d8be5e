// Package context maps the process's working directory and environment to
// a detected {project, session, agentId} triple (spec section 4.6).
// Grounded on the teacher's internal/context key-registry idiom
// (keys.go/version.go), generalized from a single context.Context value
// key into a TTL-cached, fsnotify-invalidated detector.
package context

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Source tags where a detected field's value came from.
type Source string

const (
	SourceEnv       Source = "env"
	SourceGitRoot   Source = "git_root"
	SourceMarker    Source = "marker_file"
	SourceGenerated Source = "generated"
)

// Field pairs a detected value with its provenance.
type Field struct {
	Value  string
	Source Source
}

// Detection is the {project, session, agentId} triple enrichParams injects
// into requests that omit it (spec section 4.6).
type Detection struct {
	Project Field
	Session Field
	AgentID Field
}

// sessionFactory mints a new session id when none can be detected; injected
// so tests can supply a deterministic generator instead of depending on
// wall-clock/random state.
type sessionFactory func() string

// Detector caches Detection results per working directory with a short TTL,
// explicitly clearable, per spec section 4.6.
type Detector struct {
	mu      sync.Mutex
	cache   *lru.LRU[string, Detection]
	newSess sessionFactory
}

// NewDetector builds a Detector whose cache entries expire after ttl.
func NewDetector(ttl time.Duration, newSess sessionFactory) *Detector {
	if newSess == nil {
		newSess = func() string { return "" }
	}
	return &Detector{
		cache:   lru.NewLRU[string, Detection](256, nil, ttl),
		newSess: newSess,
	}
}

// Detect returns the cached Detection for cwd, computing and caching a
// fresh one on a miss.
func (d *Detector) Detect(cwd string) Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.cache.Get(cwd); ok {
		return cached
	}
	fresh := detect(cwd, d.newSess)
	d.cache.Add(cwd, fresh)
	return fresh
}

// Refresh clears cwd's cache entry then re-detects (spec section 4.6: "A
// refresh operation clears then re-detects").
func (d *Detector) Refresh(cwd string) Detection {
	d.mu.Lock()
	d.cache.Remove(cwd)
	d.mu.Unlock()
	return d.Detect(cwd)
}

// Clear evicts every cached entry; Watcher calls it on every change event
// in the directory it watches.
func (d *Detector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Purge()
}

const markerFile = ".memoryd.yaml"

func detect(cwd string, newSess sessionFactory) Detection {
	var det Detection

	if v := os.Getenv("MEMORYD_PROJECT_ID"); v != "" {
		det.Project = Field{Value: v, Source: SourceEnv}
	} else if root, ok := findUpward(cwd, ".git"); ok {
		det.Project = Field{Value: filepath.Base(root), Source: SourceGitRoot}
	} else if root, ok := findUpward(cwd, markerFile); ok {
		det.Project = Field{Value: filepath.Base(root), Source: SourceMarker}
	} else {
		det.Project = Field{Value: filepath.Base(cwd), Source: SourceGenerated}
	}

	if v := os.Getenv("MEMORYD_SESSION_ID"); v != "" {
		det.Session = Field{Value: v, Source: SourceEnv}
	} else {
		det.Session = Field{Value: newSess(), Source: SourceGenerated}
	}

	if v := os.Getenv("MEMORYD_AGENT_ID"); v != "" {
		det.AgentID = Field{Value: v, Source: SourceEnv}
	} else {
		det.AgentID = Field{Value: "agent-default", Source: SourceGenerated}
	}

	return det
}

// findUpward walks from dir to the filesystem root looking for marker,
// returning the directory that contains it.
func findUpward(dir, marker string) (string, bool) {
	for {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
