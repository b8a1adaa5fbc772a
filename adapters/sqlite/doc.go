// Package reportsqlite provides a SQLite renderer for report datasets.
//
// Renderer is disabled by default; set Renderer.Enabled to true and register it
// on the runner explicitly:
//
//	renderer := reportsqlite.Renderer{Enabled: true}
//	_ = runner.Renderers.Register(report.FormatSQLite, renderer)
//
// Table names are configurable per request via render options
// (render_options.sqlite.table_name). When omitted, the default table name is
// "data".
package reportsqlite
