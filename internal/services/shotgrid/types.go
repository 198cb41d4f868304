package shotgrid

import "encoding/json"

// Shot is a tracked shot eligible for delivery.
type Shot struct {
	ID           int64
	Code         string
	SequenceName string
	Status       string
	Description  string
}

// Version is a published iteration of a shot with its frame range.
type Version struct {
	ID         int64
	Code       string
	FirstFrame int
	LastFrame  int
}

// PublishedFile points at the frame sequence on disk for a version.
type PublishedFile struct {
	ID            int64
	Name          string
	Path          string
	VersionNumber int
	FileType      string
}

// Wire representations. The service wraps every entity in a data envelope
// with attributes and relationships sections.

type entityRecord struct {
	ID            int64                   `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data relationshipData `json:"data"`
}

type relationshipData struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type listResponse struct {
	Data []entityRecord `json:"data"`
}

type singleResponse struct {
	Data entityRecord `json:"data"`
}

type shotAttributes struct {
	Code        string `json:"code"`
	StatusList  string `json:"sg_status_list"`
	Description string `json:"description"`
}

type versionAttributes struct {
	Code       string `json:"code"`
	FirstFrame int    `json:"sg_first_frame"`
	LastFrame  int    `json:"sg_last_frame"`
}

type publishedFileAttributes struct {
	Name          string   `json:"name"`
	Path          filePath `json:"path"`
	VersionNumber int      `json:"version_number"`
}

type filePath struct {
	LocalPath string `json:"local_path"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
