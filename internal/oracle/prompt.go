package oracle

import (
	"fmt"
	"strings"
)

const classifyInstructions = `You are a tender-document analyst locating bounded template regions (standard forms a bidder must fill in) inside a fragment of a parsed document.

You receive an ordered list of blocks, each tagged with its id, document order, and structural type (paragraph, table_cell, image_anchor, textbox), followed by the closed list of allowed region kinds with descriptions.

Decide whether this fragment contains one template region:
- A template region starts at its title block (for example "投标函（格式）", "授权委托书") and ends before unrelated content begins.
- Form bodies are often tables, placeholder lines, or signature/seal blocks.
- Instructional prose about a form is not the form itself.

Respond with ONLY a JSON object, no markdown fences, in one of two shapes:
	{"is_target": false, "confidence": <0..1>, "reason": "..."}
or
	{"is_target": true, "kind": "<one of the allowed kinds>", "display_title": "...", "start_block_id": "...", "end_block_id": "...", "confidence": <0..1>, "evidence_block_ids": ["..."], "reason": "..."}

Every block id you reference must be one of the ids listed below. If the fragment contains no template region, answer with the first shape.`

// BuildPrompt renders the full prompt text for one classification request.
// The request should already be truncated via Budget.Apply.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(classifyInstructions)

	sb.WriteString("\n\nAllowed kinds:\n")
	for _, k := range req.Kinds {
		fmt.Fprintf(&sb, "- %s: %s\n", k.Name, k.Description)
	}

	sb.WriteString("\nBlocks:\n")
	for _, b := range req.Blocks {
		fmt.Fprintf(&sb, "[%s] #%d %s | %s\n", b.BlockID, b.OrderNo, b.Type, b.Text)
	}

	return sb.String()
}
