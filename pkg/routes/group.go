package routes

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/bidwatch/pkg/openapi"
)

var pathParam = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?:\.\.\.)?\}`)

// Group organizes routes under a common prefix with shared tags.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + fullPrefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}

// Describe adds an operation for every route in groups to spec. Routes
// without an OpenAPI operation get a bare one; path parameters are filled in
// from the pattern when the operation does not declare them.
func Describe(spec *openapi.Spec, groups ...Group) {
	for _, group := range groups {
		describeGroup(spec, "", nil, group)
	}
}

func describeGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	tags := group.Tags
	if len(tags) == 0 {
		tags = parentTags
	}

	for _, route := range group.Routes {
		path := pathParam.ReplaceAllString(fullPrefix+route.Pattern, "{$1}")
		if path == "" {
			path = "/"
		}

		op := &openapi.Operation{}
		if route.OpenAPI != nil {
			copied := *route.OpenAPI
			op = &copied
		}
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		if len(op.Responses) == 0 {
			op.Responses = map[int]*openapi.Response{200: {Description: "OK"}}
		}
		addPathParams(op, path)

		item, ok := spec.Paths[path]
		if !ok {
			item = &openapi.PathItem{}
			spec.Paths[path] = item
		}
		switch strings.ToUpper(route.Method) {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodDelete:
			item.Delete = op
		}
	}

	for _, child := range group.Children {
		describeGroup(spec, fullPrefix, tags, child)
	}
}

func addPathParams(op *openapi.Operation, path string) {
	declared := make(map[string]bool, len(op.Parameters))
	for _, p := range op.Parameters {
		if p.In == "path" {
			declared[p.Name] = true
		}
	}
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		if !declared[m[1]] {
			op.Parameters = append(op.Parameters, openapi.PathParam(m[1], ""))
			declared[m[1]] = true
		}
	}
}
