package query_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/bidwatch/pkg/query"
)

const selectCases = "SELECT c.id, c.case_number, c.next_bid_deadline FROM public.cases c"

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "cases", "c").
		Project("id", "ID").
		Project("case_number", "CaseNumber").
		ProjectNullable("next_bid_deadline", "NextBidDeadline")
}

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.Table(); got != "public.cases c" {
		t.Errorf("Table() = %q, want %q", got, "public.cases c")
	}
	if got := p.Alias(); got != "c" {
		t.Errorf("Alias() = %q, want %q", got, "c")
	}
	if got := p.Columns(); got != "c.id, c.case_number, c.next_bid_deadline" {
		t.Errorf("Columns() = %q", got)
	}
	if !p.Nullable("NextBidDeadline") {
		t.Error("NextBidDeadline should be nullable")
	}
	if p.Nullable("CaseNumber") {
		t.Error("CaseNumber should not be nullable")
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "CaseNumber", "c.case_number"},
		{"mapped nullable", "NextBidDeadline", "c.next_bid_deadline"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "single ascending",
			input: "CaseNumber",
			want:  []query.SortField{{Field: "CaseNumber"}},
		},
		{
			name:  "single descending",
			input: "-NextBidDeadline",
			want:  []query.SortField{{Field: "NextBidDeadline", Descending: true}},
		},
		{
			name:  "multiple with spaces",
			input: " -NextBidDeadline , CaseNumber ",
			want: []query.SortField{
				{Field: "NextBidDeadline", Descending: true},
				{Field: "CaseNumber"},
			},
		},
		{
			name:  "empty parts skipped",
			input: "CaseNumber,,ID",
			want: []query.SortField{
				{Field: "CaseNumber"},
				{Field: "ID"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()

	if sql != selectCases {
		t.Errorf("Build() sql = %q, want %q", sql, selectCases)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("CaseNumber", "24SP000123-590")

	want := selectCases + " WHERE c.case_number = $1"
	if sql != want {
		t.Errorf("BuildSingle() sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "24SP000123-590" {
		t.Errorf("BuildSingle() args = %v", args)
	}
}

func TestBuilderConditions(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	var nilTime *time.Time

	tests := []struct {
		name      string
		apply     func(b *query.Builder)
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "equals",
			apply:     func(b *query.Builder) { b.WhereEquals("CaseNumber", "24SP1") },
			wantWhere: " WHERE c.case_number = $1",
			wantArgs:  []any{"24SP1"},
		},
		{
			name:  "equals nil pointer skipped",
			apply: func(b *query.Builder) { b.WhereEquals("CaseNumber", (*string)(nil)) },
		},
		{
			name:      "contains",
			apply:     func(b *query.Builder) { b.WhereContains("CaseNumber", ptr("SP")) },
			wantWhere: " WHERE c.case_number ILIKE $1",
			wantArgs:  []any{"%SP%"},
		},
		{
			name:  "contains empty skipped",
			apply: func(b *query.Builder) { b.WhereContains("CaseNumber", ptr("")) },
		},
		{
			name:      "range both bounds",
			apply:     func(b *query.Builder) { b.WhereRange("NextBidDeadline", from, to) },
			wantWhere: " WHERE c.next_bid_deadline >= $1 AND c.next_bid_deadline < $2",
			wantArgs:  []any{from, to},
		},
		{
			name:      "range open start",
			apply:     func(b *query.Builder) { b.WhereRange("NextBidDeadline", nilTime, to) },
			wantWhere: " WHERE c.next_bid_deadline < $1",
			wantArgs:  []any{to},
		},
		{
			name:  "range unbounded skipped",
			apply: func(b *query.Builder) { b.WhereRange("NextBidDeadline", nil, nilTime) },
		},
		{
			name:      "search across fields",
			apply:     func(b *query.Builder) { b.WhereSearch(ptr("wake"), "CaseNumber", "ID") },
			wantWhere: " WHERE (c.case_number ILIKE $1 OR c.id ILIKE $2)",
			wantArgs:  []any{"%wake%", "%wake%"},
		},
		{
			name:  "search nil skipped",
			apply: func(b *query.Builder) { b.WhereSearch(nil, "CaseNumber") },
		},
		{
			name: "parameters numbered across conditions",
			apply: func(b *query.Builder) {
				b.WhereEquals("CaseNumber", "24SP1").
					WhereRange("NextBidDeadline", from, nil).
					WhereContains("ID", ptr("ab"))
			},
			wantWhere: " WHERE c.case_number = $1 AND c.next_bid_deadline >= $2 AND c.id ILIKE $3",
			wantArgs:  []any{"24SP1", from, "%ab%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(testProjection())
			tt.apply(b)
			sql, args := b.Build()

			if want := selectCases + tt.wantWhere; sql != want {
				t.Errorf("sql = %q, want %q", sql, want)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestBuilderOrdering(t *testing.T) {
	tests := []struct {
		name        string
		defaultSort []query.SortField
		orderBy     []query.SortField
		want        string
	}{
		{
			name:        "default sort on nullable column",
			defaultSort: []query.SortField{{Field: "NextBidDeadline"}},
			want:        " ORDER BY c.next_bid_deadline ASC NULLS LAST",
		},
		{
			name:        "explicit sort overrides default",
			defaultSort: []query.SortField{{Field: "ID"}},
			orderBy: []query.SortField{
				{Field: "NextBidDeadline", Descending: true},
				{Field: "CaseNumber"},
			},
			want: " ORDER BY c.next_bid_deadline DESC NULLS LAST, c.case_number ASC",
		},
		{
			name: "no sort",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(testProjection(), tt.defaultSort...)
			if tt.orderBy != nil {
				b.OrderByFields(tt.orderBy)
			}
			sql, _ := b.Build()
			if want := selectCases + tt.want; sql != want {
				t.Errorf("sql = %q, want %q", sql, want)
			}
		})
	}
}

func TestBuilderBuildCount(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "NextBidDeadline"})
	b.WhereEquals("CaseNumber", "24SP1")
	sql, args := b.BuildCount()

	want := "SELECT COUNT(*) FROM public.cases c WHERE c.case_number = $1"
	if sql != want {
		t.Errorf("BuildCount() sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "24SP1" {
		t.Errorf("BuildCount() args = %v", args)
	}
}

func TestBuilderBuildPage(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "NextBidDeadline"})
	b.WhereContains("CaseNumber", ptr("SP"))
	sql, args := b.BuildPage(3, 25)

	want := selectCases + " WHERE c.case_number ILIKE $1 ORDER BY c.next_bid_deadline ASC NULLS LAST LIMIT 25 OFFSET 50"
	if sql != want {
		t.Errorf("BuildPage() sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "%SP%" {
		t.Errorf("BuildPage() args = %v", args)
	}
}
