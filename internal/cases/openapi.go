package cases

import "github.com/JaimeStill/bidwatch/pkg/openapi"

type spec struct {
	List        *openapi.Operation
	Create      *openapi.Operation
	Search      *openapi.Operation
	Find        *openapi.Operation
	Events      *openapi.Operation
	AppendEvent *openapi.Operation
	Documents   *openapi.Operation
	AddDocument *openapi.Operation
}

// Spec documents the case endpoints.
var Spec = spec{
	List: &openapi.Operation{
		Summary: "List cases",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("sort", "string", "Sort fields, - prefix for descending", false),
			openapi.QueryParam("classification", "string", "Filter by classification", false),
			openapi.QueryParam("county", "string", "Filter by county", false),
			openapi.QueryParam("needs_review", "boolean", "Filter by review flag", false),
			openapi.QueryParam("deadline_from", "string", "Earliest next bid deadline (inclusive), RFC 3339 or YYYY-MM-DD", false),
			openapi.QueryParam("deadline_to", "string", "Latest next bid deadline (exclusive), RFC 3339 or YYYY-MM-DD", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Case page", "CasePage"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Register a case",
		RequestBody: openapi.RequestBodyJSON("CreateCase", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Created case", "Case"),
			400: openapi.ResponseRef("BadRequest"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search cases",
		RequestBody: openapi.RequestBodyJSON("CaseSearch", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Case page", "CasePage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary: "Get a case",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Case", "Case"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Events: &openapi.Operation{
		Summary: "List docket events, most recent first",
		Responses: map[int]*openapi.Response{
			200: {Description: "Events"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	AppendEvent: &openapi.Operation{
		Summary:     "Append a docket event",
		RequestBody: openapi.RequestBodyJSON("AppendEvent", true),
		Responses: map[int]*openapi.Response{
			201: {Description: "Created event"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Documents: &openapi.Operation{
		Summary: "List case documents",
		Responses: map[int]*openapi.Response{
			200: {Description: "Documents"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	AddDocument: &openapi.Operation{
		Summary:     "Register a crawled document",
		RequestBody: openapi.RequestBodyJSON("AddDocument", true),
		Responses: map[int]*openapi.Response{
			201: {Description: "Created document"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
}

// Schemas returns the component schemas referenced by Spec.
func Schemas() map[string]*openapi.Schema {
	classification := make([]any, len(Classifications))
	for i, c := range Classifications {
		classification[i] = string(c)
	}
	nullableNumber := &openapi.Schema{Type: "number"}
	dateTime := &openapi.Schema{Type: "string", Format: "date-time"}

	return map[string]*openapi.Schema{
		"Case": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                 {Type: "string", Format: "uuid"},
				"case_number":        {Type: "string", Example: "24SP000437-910"},
				"county":             {Type: "string"},
				"classification":     {Type: "string", Enum: classification},
				"current_bid_amount": nullableNumber,
				"minimum_next_bid":   nullableNumber,
				"next_bid_deadline":  dateTime,
				"sale_date":          dateTime,
				"property_address":   {Type: "string"},
				"legal_description":  {Type: "string"},
				"needs_review":       {Type: "boolean"},
				"review_reason":      {Type: "string"},
				"narrative":          {Type: "string"},
			},
		},
		"CasePage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Case")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"CaseSearch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":             {Type: "integer"},
				"page_size":        {Type: "integer"},
				"search":           {Type: "string"},
				"sort":             {Type: "string"},
				"classification":   {Type: "string"},
				"county":           {Type: "string"},
				"case_number":      {Type: "string"},
				"property_address": {Type: "string"},
				"needs_review":     {Type: "boolean"},
				"deadline_from":    dateTime,
				"deadline_to":      dateTime,
			},
		},
		"CreateCase": {
			Type:     "object",
			Required: []string{"case_number"},
			Properties: map[string]*openapi.Schema{
				"case_number": {Type: "string"},
				"county":      {Type: "string"},
			},
		},
		"AppendEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"event_date":        dateTime,
				"event_type":        {Type: "string"},
				"event_description": {Type: "string"},
				"filed_by":          {Type: "string"},
			},
		},
		"AddDocument": {
			Type:     "object",
			Required: []string{"file_path"},
			Properties: map[string]*openapi.Schema{
				"file_path":     {Type: "string"},
				"source_url":    {Type: "string"},
				"storage_key":   {Type: "string"},
				"document_date": dateTime,
				"page_count":    {Type: "integer"},
			},
		},
	}
}
