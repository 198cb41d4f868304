package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// TrackerShot is a shot record served by the fake tracker.
type TrackerShot struct {
	ID           int64
	Code         string
	Status       string
	SequenceName string
	Description  string
}

// TrackerVersion is a version record served by the fake tracker.
type TrackerVersion struct {
	ID         int64
	ShotID     int64
	Code       string
	FirstFrame int
	LastFrame  int
}

// TrackerPublishedFile is a published file record served by the fake tracker.
type TrackerPublishedFile struct {
	ID            int64
	VersionID     int64
	Name          string
	LocalPath     string
	VersionNumber int
	FileType      string
}

// FakeTracker is an in-memory stand-in for the production-tracking service.
// It speaks just enough of the REST surface for the client under test.
type FakeTracker struct {
	mu             sync.Mutex
	server         *httptest.Server
	token          string
	projectCode    string
	shots          []TrackerShot
	versions       []TrackerVersion
	publishedFiles []TrackerPublishedFile
	statusUpdates  map[int64]string
	tokenRequests  int
}

// NewFakeTracker starts a fake tracker server and registers cleanup.
func NewFakeTracker(t testing.TB) *FakeTracker {
	t.Helper()

	ft := &FakeTracker{
		token:         "test-token",
		projectCode:   "DEMO",
		statusUpdates: map[int64]string{},
	}
	ft.server = httptest.NewServer(http.HandlerFunc(ft.handle))
	t.Cleanup(ft.server.Close)
	return ft
}

// URL returns the base URL of the fake tracker.
func (ft *FakeTracker) URL() string {
	return ft.server.URL
}

// SetProjectCode sets the code attribute returned for the project entity.
func (ft *FakeTracker) SetProjectCode(code string) {
	ft.mu.Lock()
	ft.projectCode = code
	ft.mu.Unlock()
}

// AddShot registers a shot record.
func (ft *FakeTracker) AddShot(shot TrackerShot) {
	ft.mu.Lock()
	ft.shots = append(ft.shots, shot)
	ft.mu.Unlock()
}

// AddVersion registers a version record. Later additions are treated as more
// recently created.
func (ft *FakeTracker) AddVersion(version TrackerVersion) {
	ft.mu.Lock()
	ft.versions = append(ft.versions, version)
	ft.mu.Unlock()
}

// AddPublishedFile registers a published file record.
func (ft *FakeTracker) AddPublishedFile(file TrackerPublishedFile) {
	ft.mu.Lock()
	ft.publishedFiles = append(ft.publishedFiles, file)
	ft.mu.Unlock()
}

// StatusUpdate returns the last status written for a shot, if any.
func (ft *FakeTracker) StatusUpdate(shotID int64) (string, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	status, ok := ft.statusUpdates[shotID]
	return status, ok
}

// TokenRequests returns how many times the token endpoint was hit.
func (ft *FakeTracker) TokenRequests() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.tokenRequests
}

func (ft *FakeTracker) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/auth/access_token":
		ft.handleToken(w, r)
	case r.URL.Path == "/api/v1/entity/shots" && r.Method == http.MethodGet:
		ft.requireAuth(w, r, ft.handleShots)
	case strings.HasPrefix(r.URL.Path, "/api/v1/entity/shots/") && r.Method == http.MethodPut:
		ft.requireAuth(w, r, ft.handleShotUpdate)
	case r.URL.Path == "/api/v1/entity/versions" && r.Method == http.MethodGet:
		ft.requireAuth(w, r, ft.handleVersions)
	case r.URL.Path == "/api/v1/entity/published_files" && r.Method == http.MethodGet:
		ft.requireAuth(w, r, ft.handlePublishedFiles)
	case strings.HasPrefix(r.URL.Path, "/api/v1/entity/projects/") && r.Method == http.MethodGet:
		ft.requireAuth(w, r, ft.handleProject)
	default:
		http.NotFound(w, r)
	}
}

func (ft *FakeTracker) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ft.mu.Lock()
	ft.tokenRequests++
	token := ft.token
	ft.mu.Unlock()

	writeJSON(w, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   600,
	})
}

func (ft *FakeTracker) requireAuth(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request)) {
	ft.mu.Lock()
	expected := "Bearer " + ft.token
	ft.mu.Unlock()
	if r.Header.Get("Authorization") != expected {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	next(w, r)
}

func (ft *FakeTracker) handleShots(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("filter[sg_status_list]")

	ft.mu.Lock()
	defer ft.mu.Unlock()

	data := []map[string]any{}
	for _, shot := range ft.shots {
		if statusFilter != "" && shot.Status != statusFilter {
			continue
		}
		data = append(data, map[string]any{
			"id":   shot.ID,
			"type": "Shot",
			"attributes": map[string]any{
				"code":           shot.Code,
				"sg_status_list": shot.Status,
				"description":    shot.Description,
			},
			"relationships": map[string]any{
				"sg_sequence": map[string]any{
					"data": map[string]any{"id": 1, "type": "Sequence", "name": shot.SequenceName},
				},
			},
		})
	}
	writeJSON(w, map[string]any{"data": data})
}

func (ft *FakeTracker) handleShotUpdate(w http.ResponseWriter, r *http.Request) {
	idRaw := strings.TrimPrefix(r.URL.Path, "/api/v1/entity/shots/")
	shotID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		http.Error(w, "bad shot id", http.StatusBadRequest)
		return
	}
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	ft.mu.Lock()
	ft.statusUpdates[shotID] = body["sg_status_list"]
	ft.mu.Unlock()

	writeJSON(w, map[string]any{"data": map[string]any{"id": shotID, "type": "Shot"}})
}

func (ft *FakeTracker) handleVersions(w http.ResponseWriter, r *http.Request) {
	shotFilter := r.URL.Query().Get("filter[entity.Shot.id]")

	ft.mu.Lock()
	defer ft.mu.Unlock()

	data := []map[string]any{}
	// Iterate newest first so page[size]=1 sees the latest version.
	for i := len(ft.versions) - 1; i >= 0; i-- {
		version := ft.versions[i]
		if shotFilter != "" && strconv.FormatInt(version.ShotID, 10) != shotFilter {
			continue
		}
		data = append(data, map[string]any{
			"id":   version.ID,
			"type": "Version",
			"attributes": map[string]any{
				"code":           version.Code,
				"sg_first_frame": version.FirstFrame,
				"sg_last_frame":  version.LastFrame,
			},
		})
	}
	if r.URL.Query().Get("page[size]") == "1" && len(data) > 1 {
		data = data[:1]
	}
	writeJSON(w, map[string]any{"data": data})
}

func (ft *FakeTracker) handlePublishedFiles(w http.ResponseWriter, r *http.Request) {
	versionFilter := r.URL.Query().Get("filter[version.Version.id]")

	ft.mu.Lock()
	defer ft.mu.Unlock()

	data := []map[string]any{}
	for i := len(ft.publishedFiles) - 1; i >= 0; i-- {
		file := ft.publishedFiles[i]
		if versionFilter != "" && strconv.FormatInt(file.VersionID, 10) != versionFilter {
			continue
		}
		data = append(data, map[string]any{
			"id":   file.ID,
			"type": "PublishedFile",
			"attributes": map[string]any{
				"name":           file.Name,
				"path":           map[string]any{"local_path": file.LocalPath},
				"version_number": file.VersionNumber,
			},
			"relationships": map[string]any{
				"published_file_type": map[string]any{
					"data": map[string]any{"id": 1, "type": "PublishedFileType", "name": file.FileType},
				},
			},
		})
	}
	if r.URL.Query().Get("page[size]") == "1" && len(data) > 1 {
		data = data[:1]
	}
	writeJSON(w, map[string]any{"data": data})
}

func (ft *FakeTracker) handleProject(w http.ResponseWriter, r *http.Request) {
	idRaw := strings.TrimPrefix(r.URL.Path, "/api/v1/entity/projects/")
	projectID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		http.Error(w, "bad project id", http.StatusBadRequest)
		return
	}

	ft.mu.Lock()
	code := ft.projectCode
	ft.mu.Unlock()

	field := r.URL.Query().Get("fields")
	if field == "" {
		field = "sg_projectcode"
	}
	writeJSON(w, map[string]any{
		"data": map[string]any{
			"id":         projectID,
			"type":       "Project",
			"attributes": map[string]any{field: code},
		},
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(fmt.Sprintf("encode fake tracker response: %v", err))
	}
}
