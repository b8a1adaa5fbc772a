// Package reportpdf converts rendered HTML reports into PDF output.
//
// Renderer runs an HTML renderer into a bounded buffer and hands the
// result to a pluggable Engine. ChromiumEngine shares one headless
// browser across renders; WKHTMLTOPDFEngine shells out per render.
package reportpdf
