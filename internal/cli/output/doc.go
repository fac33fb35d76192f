// Package output renders CLI results as an aligned table, JSON or YAML.
//
// Tables are built from a slice of structs (one row per element), a single
// struct (one row per field) or an explicit *Table. Column names come from
// json tags; a `table:"wide"` tag hides a column unless wide output is
// requested and `table:"-"` hides it always.
package output
