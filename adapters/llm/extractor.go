package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goliatone/go-rights/rights"
	"github.com/tidwall/gjson"
)

// DefaultMaxPromptChars bounds how much contract text is sent per request.
const DefaultMaxPromptChars = 48 * 1024

const extractionSystemPrompt = `You are a contract analyst for film and TV licensing.
Read the contract text and return ONLY a JSON object, no prose, no markdown.
Schema:
{
  "title": string,
  "licensor": string,
  "licensee": string,
  "signed_at": "YYYY-MM-DD" or "",
  "grants": [
    {
      "work": string,
      "licensee": string,
      "media": one of "theatrical","svod","avod","tvod","free_tv","pay_tv","home_video","all",
      "territories": [string] ("worldwide" for worldwide),
      "start": "YYYY-MM-DD",
      "end": "YYYY-MM-DD" or "" if perpetual,
      "exclusive": boolean,
      "fee": number (contract currency units, 0 if unknown),
      "currency": string,
      "holdbacks": [
        {"media": string, "territories": [string], "start": "YYYY-MM-DD", "end": "YYYY-MM-DD", "reason": string}
      ]
    }
  ]
}
List every distinct grant. Use "" for unknown strings and [] for unknown lists.`

// Completer is the LLM surface Extractor depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor asks an LLM for structured rights data from contract text.
type Extractor struct {
	Client         Completer
	MaxPromptChars int
	Logger         rights.Logger
}

// Extract prompts the model with the document text and parses the JSON
// reply into an Extraction.
func (e Extractor) Extract(ctx context.Context, doc rights.Document) (rights.Extraction, error) {
	if e.Client == nil {
		return rights.Extraction{}, rights.NewError(rights.KindNotImpl, "llm extractor requires a client", nil)
	}
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return rights.Extraction{}, rights.NewError(rights.KindValidation, "document has no text", nil)
	}

	maxChars := e.MaxPromptChars
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}
	truncated := false
	if len(text) > maxChars {
		text = text[:maxChars]
		truncated = true
	}

	prompt := fmt.Sprintf("Contract file: %s\n\nContract text:\n%s", doc.Filename, text)
	raw, err := e.Client.Complete(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		return rights.Extraction{}, err
	}

	extraction, err := parseExtraction(raw)
	if err != nil {
		return rights.Extraction{}, err
	}
	if truncated {
		extraction.Warnings = append(extraction.Warnings,
			fmt.Sprintf("document truncated to %d characters before extraction", maxChars))
	}
	if logger := e.Logger; logger != nil {
		logger.Debugf("llm: extracted %d grants from %s", len(extraction.Grants), doc.Filename)
	}
	return extraction, nil
}

// parseExtraction tolerates code fences and stray prose around the JSON
// object models tend to emit.
func parseExtraction(raw string) (rights.Extraction, error) {
	payload := extractJSONObject(raw)
	if payload == "" || !gjson.Valid(payload) {
		return rights.Extraction{}, rights.NewError(rights.KindExtraction, "llm response is not valid json", nil)
	}
	root := gjson.Parse(payload)

	extraction := rights.Extraction{
		Title:    root.Get("title").String(),
		Licensor: root.Get("licensor").String(),
		Licensee: root.Get("licensee").String(),
		SignedAt: parseDate(root.Get("signed_at").String()),
	}

	for _, g := range root.Get("grants").Array() {
		grant := rights.RightsGrant{
			Work:        g.Get("work").String(),
			Licensee:    g.Get("licensee").String(),
			Media:       rights.MediaType(g.Get("media").String()),
			Territories: stringList(g.Get("territories")),
			Window: rights.Window{
				Start: parseDate(firstString(g, "start", "window.start", "window_start")),
				End:   parseDate(firstString(g, "end", "window.end", "window_end")),
			},
			Exclusive: g.Get("exclusive").Bool(),
			FeeCents:  feeCents(g.Get("fee")),
			Currency:  g.Get("currency").String(),
			Notes:     g.Get("notes").String(),
		}
		for _, h := range g.Get("holdbacks").Array() {
			grant.Holdbacks = append(grant.Holdbacks, rights.Holdback{
				Media:       rights.MediaType(h.Get("media").String()),
				Territories: stringList(h.Get("territories")),
				Window: rights.Window{
					Start: parseDate(firstString(h, "start", "window.start")),
					End:   parseDate(firstString(h, "end", "window.end")),
				},
				Reason: h.Get("reason").String(),
			})
		}
		extraction.Grants = append(extraction.Grants, grant)
	}
	return extraction, nil
}

// extractJSONObject strips markdown fences and returns the outermost
// balanced JSON object in the response.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}

func parseDate(raw string) time.Time {
	t, err := rights.ParseDate(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringList(value gjson.Result) []string {
	if value.Type == gjson.String {
		if s := strings.TrimSpace(value.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range value.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstString(value gjson.Result, paths ...string) string {
	for _, path := range paths {
		if result := value.Get(path); result.Exists() {
			if s := strings.TrimSpace(result.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func feeCents(value gjson.Result) int64 {
	if !value.Exists() {
		return 0
	}
	return int64(math.Round(value.Float() * 100))
}
