// Package query provides SQL query building utilities with projection mapping.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view property names to qualified column references (alias.column).
// Columns registered with ProjectNullable sort with NULLS LAST in either direction.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	columns    map[string]string
	nullable   map[string]bool
	columnList []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:   schema,
		table:    table,
		alias:    alias,
		columns:  make(map[string]string),
		nullable: make(map[string]bool),
	}
}

// Project adds a column mapping from database column to view property name.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := fmt.Sprintf("%s.%s", p.alias, column)
	p.columns[viewName] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

// ProjectNullable is Project for a column that may hold NULL.
func (p *ProjectionMap) ProjectNullable(column, viewName string) *ProjectionMap {
	p.Project(column, viewName)
	p.nullable[viewName] = true
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns the fully qualified table reference with alias (schema.table alias).
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Column returns the qualified column for a view property name, or the input if not mapped.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Nullable reports whether viewName was registered with ProjectNullable.
func (p *ProjectionMap) Nullable(viewName string) bool {
	return p.nullable[viewName]
}

// Columns returns all mapped columns as a comma-separated string.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}
