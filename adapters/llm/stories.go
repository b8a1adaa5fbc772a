package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-rights/rights"
	"github.com/tidwall/gjson"
)

const storySystemPrompt = `You edit product backlog user stories for a media rights team.
Rewrite each story body to be clearer while keeping its meaning and the
"As a ... I want ... so that ..." frame. Return ONLY a JSON array of
{"id": string, "body": string}, one entry per input story, same ids.`

// StoryRewriter polishes deterministic user stories through an LLM.
// Failures fall back to the input stories unchanged.
type StoryRewriter struct {
	Client Completer
	Logger rights.Logger
}

// Rewrite sends stories to the model and applies rewritten bodies by ID.
func (r StoryRewriter) Rewrite(ctx context.Context, stories []rights.Story) ([]rights.Story, error) {
	if r.Client == nil || len(stories) == 0 {
		return stories, nil
	}

	payload, err := json.Marshal(stories)
	if err != nil {
		return stories, rights.NewError(rights.KindInternal, "unable to encode stories", err)
	}

	raw, err := r.Client.Complete(ctx, storySystemPrompt, string(payload))
	if err != nil {
		return stories, err
	}

	bodies := parseStoryBodies(raw)
	if len(bodies) == 0 {
		return stories, rights.NewError(rights.KindExtraction, "llm returned no story rewrites", nil)
	}

	out := make([]rights.Story, len(stories))
	copy(out, stories)
	for i := range out {
		if body, ok := bodies[out[i].ID]; ok {
			out[i].Body = body
		}
	}
	if logger := r.Logger; logger != nil {
		logger.Debugf("llm: rewrote %d of %d stories", len(bodies), len(stories))
	}
	return out, nil
}

func parseStoryBodies(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}
	payload := raw[start : end+1]
	if !gjson.Valid(payload) {
		return nil
	}

	bodies := map[string]string{}
	for _, item := range gjson.Parse(payload).Array() {
		id := item.Get("id").String()
		body := strings.TrimSpace(item.Get("body").String())
		if id != "" && body != "" {
			bodies[id] = body
		}
	}
	return bodies
}
