package models

// Requests for the HTTP API, bound by echo and checked with validator tags.

type SignalsRequest struct {
	Since string `query:"since" json:"since"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type AnalyzeRequest struct {
	DryRun bool `query:"dry_run" json:"dry_run"`
}
