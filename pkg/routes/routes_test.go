package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/bidwatch/pkg/openapi"
	"github.com/JaimeStill/bidwatch/pkg/routes"
)

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/items",
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "",
				Handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				},
			},
			{
				Method:  "GET",
				Pattern: "/{id}",
				Handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				},
			},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		wantOK bool
	}{
		{"list items", "GET", "/items", true},
		{"get item", "GET", "/items/123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			mux.ServeHTTP(rec, req)

			if tt.wantOK && rec.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rec.Code)
			}
		})
	}
}

func TestNestedGroups(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/api",
		Children: []routes.Group{
			{
				Prefix: "/v1",
				Routes: []routes.Route{
					{
						Method:  "GET",
						Pattern: "/items",
						Handler: func(w http.ResponseWriter, r *http.Request) {
							w.WriteHeader(http.StatusOK)
						},
					},
				},
			},
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/items", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("nested route: got %d, want 200", rec.Code)
	}
}

func TestDescribe(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}

	spec := openapi.NewSpec("test", "1.0.0")
	routes.Describe(spec, routes.Group{
		Prefix: "/cases",
		Tags:   []string{"Cases"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: noop},
			{
				Method:  "POST",
				Pattern: "",
				Handler: noop,
				OpenAPI: &openapi.Operation{
					Summary:   "Create case",
					Responses: map[int]*openapi.Response{201: {Description: "Created"}},
				},
			},
			{Method: "GET", Pattern: "/{id}", Handler: noop},
		},
		Children: []routes.Group{
			{
				Prefix: "/{id}/files",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{path...}", Handler: noop},
				},
			},
		},
	})

	list, ok := spec.Paths["/cases"]
	if !ok || list.Get == nil || list.Post == nil {
		t.Fatalf("/cases: missing operations: %+v", list)
	}
	if list.Get.Tags[0] != "Cases" {
		t.Errorf("GET /cases tags: got %v", list.Get.Tags)
	}
	if _, ok := list.Get.Responses[200]; !ok {
		t.Error("GET /cases should default to a 200 response")
	}
	if _, ok := list.Post.Responses[201]; !ok {
		t.Error("POST /cases should keep its declared 201 response")
	}

	item, ok := spec.Paths["/cases/{id}"]
	if !ok || item.Get == nil {
		t.Fatal("/cases/{id}: missing GET")
	}
	if len(item.Get.Parameters) != 1 || item.Get.Parameters[0].Name != "id" {
		t.Errorf("GET /cases/{id} parameters: got %+v", item.Get.Parameters)
	}

	nested, ok := spec.Paths["/cases/{id}/files/{path}"]
	if !ok || nested.Get == nil {
		t.Fatal("wildcard pattern should be normalized to /cases/{id}/files/{path}")
	}
	if nested.Get.Tags[0] != "Cases" {
		t.Errorf("child group should inherit tags, got %v", nested.Get.Tags)
	}
	if len(nested.Get.Parameters) != 2 {
		t.Errorf("nested parameters: got %d, want 2", len(nested.Get.Parameters))
	}
}
