// Package inspector formats node details for hover tooltips and the
// node detail endpoint.
package inspector

import (
	"fmt"
	"html"
	"strings"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Content is the structured description of one node.
type Content struct {
	Title   string   `json:"title"`
	Facts   []string `json:"facts"`
	Preview string   `json:"preview,omitempty"`
	Tags    string   `json:"tags,omitempty"`
}

// FactsLine joins the facts the way the tooltip shows them.
func (c Content) FactsLine() string {
	return strings.Join(c.Facts, " | ")
}

// HTML renders the tooltip markup. Describe output is already escaped, so
// the fields are inserted as they are.
func (c Content) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="tooltip-title">%s</div>`, c.Title)
	if len(c.Facts) > 0 {
		fmt.Fprintf(&b, `<div class="tooltip-line">%s</div>`, c.FactsLine())
	}
	if c.Preview != "" {
		fmt.Fprintf(&b, `<div class="tooltip-line tooltip-preview">%s</div>`, c.Preview)
	}
	if c.Tags != "" {
		fmt.Fprintf(&b, `<div class="tooltip-tags">%s</div>`, c.Tags)
	}
	return b.String()
}

// Describe returns the node description with every field escaped for
// insertion into markup.
func Describe(n story.NodeInfo) Content {
	c := Summarize(n)
	c.Title = html.EscapeString(c.Title)
	for i, f := range c.Facts {
		c.Facts[i] = html.EscapeString(f)
	}
	c.Preview = html.EscapeString(c.Preview)
	c.Tags = html.EscapeString(c.Tags)
	return c
}

// Summarize returns the node description as plain text, for terminals.
func Summarize(n story.NodeInfo) Content {
	title := n.Name
	if len(n.Params) > 0 {
		title += "(" + strings.Join(n.Params, ", ") + ")"
	}

	s := n.Summary
	facts := []string{}
	if s.LineCount > 0 {
		facts = append(facts, fmt.Sprintf("%d dialogue lines", s.LineCount))
	}
	if s.ChoiceCount > 0 {
		facts = append(facts, fmt.Sprintf("%d choices", s.ChoiceCount))
	}
	if s.HasJump {
		facts = append(facts, "jump")
	}
	if s.HasCondition {
		facts = append(facts, "condition")
	}
	if s.HasRandom {
		facts = append(facts, "random")
	}
	if s.HasCommand {
		facts = append(facts, "commands")
	}
	if len(s.Characters) > 0 {
		facts = append(facts, "characters: "+strings.Join(s.Characters, ", "))
	}

	return Content{
		Title:   title,
		Facts:   facts,
		Preview: s.FirstLine,
		Tags:    TagLine(n.Tags),
	}
}

// TagLine renders tags as "#key=value", or "#key" when the value is empty.
func TagLine(tags []story.Tag) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Value == "" {
			parts = append(parts, "#"+t.Key)
			continue
		}
		parts = append(parts, "#"+t.Key+"="+t.Value)
	}
	return strings.Join(parts, " ")
}
