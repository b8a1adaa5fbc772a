// Package reporttemplate renders report datasets as HTML documents.
//
// Renderer buffers rows and executes a pongo2 template with the schema,
// rows, and any extra context supplied via TemplateOptions.Data. The
// bundled "report" template produces a standalone dashboard-style page
// suitable for direct download or PDF conversion.
package reporttemplate
