package sync

import (
	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

type pushInput struct {
	RecordType string `path:"recordType" example:"blood_pressure"`
	Body       PushRequest
}

type PushRequest struct {
	Records []record.Envelope `json:"records"`
}

type pushOutput struct {
	Body PushResponse
}

type PushResponse struct {
	ValidationErrors []sync.ValidationError `json:"validation_errors"`
}

type pullInput struct {
	RecordType string `path:"recordType" example:"blood_pressure"`
	Limit      int    `query:"limit" minimum:"1" maximum:"1000" default:"250"`
	// ProcessToken is the opaque cursor protocol; ProcessedSince the legacy
	// timestamp one. A request carries at most one of them.
	ProcessToken   string `query:"process_token" required:"false"`
	ProcessedSince string `query:"processed_since" required:"false"`
	ResyncToken    string `header:"X-Resync-Token" required:"false"`
}

type pullOutput struct {
	Body PullResponse
}

type PullResponse struct {
	Records        []record.Envelope `json:"records"`
	ProcessedSince string            `json:"processed_since"`
}
