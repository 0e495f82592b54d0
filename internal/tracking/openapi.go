package tracking

import "github.com/JaimeStill/bidwatch/pkg/openapi"

type spec struct {
	Reclassify    *openapi.Operation
	Diagnose      *openapi.Operation
	Sweep         *openapi.Operation
	DiagnoseAll   *openapi.Operation
	Budget        *openapi.Operation
	Patterns      *openapi.Operation
	MergePatterns *openapi.Operation
}

// Spec documents the tracking endpoints.
var Spec = spec{
	Reclassify: &openapi.Operation{
		Summary:     "Reclassify a case",
		Description: "Extracts unprocessed documents, decides the classification from docket events, merges fields, and applies the result.",
		Responses: map[int]*openapi.Response{
			200: {Description: "Outcome"},
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Diagnose: &openapi.Operation{
		Summary: "Run repair tiers for a case",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("dry_run", "boolean", "Report planned tiers without running them", false),
		},
		Responses: map[int]*openapi.Response{
			200: {Description: "Diagnosis report"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Sweep: &openapi.Operation{
		Summary: "Reclassify every monitored case",
		Responses: map[int]*openapi.Response{
			200: {Description: "Sweep report"},
		},
	},
	DiagnoseAll: &openapi.Operation{
		Summary: "Repair every case missing required fields",
		Responses: map[int]*openapi.Response{
			200: {Description: "Diagnosis run report"},
		},
	},
	Budget: &openapi.Operation{
		Summary: "Vision spend for the current day",
		Responses: map[int]*openapi.Response{
			200: {Description: "Usage"},
		},
	},
	Patterns: &openapi.Operation{
		Summary: "Document skip table in use",
		Responses: map[int]*openapi.Response{
			200: {Description: "Versioned skip table"},
		},
	},
	MergePatterns: &openapi.Operation{
		Summary:     "Merge skip patterns",
		Description: "Merges a YAML skip table into the table in use. Patterns replace same-named patterns and the version advances past both tables.",
		RequestBody: &openapi.RequestBody{
			Description: "YAML skip table",
			Required:    true,
			Content: map[string]*openapi.MediaType{
				"application/yaml": {Schema: &openapi.Schema{Type: "string"}},
			},
		},
		Responses: map[int]*openapi.Response{
			200: {Description: "Merged skip table"},
			400: openapi.ResponseRef("BadRequest"),
		},
	},
}
