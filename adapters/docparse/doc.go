// Package docparse extracts plain text from uploaded contract documents.
//
// Parser sniffs the format by magic bytes with an extension fallback and
// supports PDF, DOCX, and plain text input. Parsed output feeds the
// extraction pipeline.
package docparse
