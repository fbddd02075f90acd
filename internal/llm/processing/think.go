package processing

import "strings"

const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// tagBuffer is how many trailing bytes stay unreleased between chunks, so
// a tag split across chunk boundaries is never emitted as visible text.
// len("</think>") covers the longer of the two tags.
const tagBuffer = len(ThinkEnd)

// Segment is a run of released text, tagged by whether it was inside a
// think block.
type Segment struct {
	Text  string
	Think bool
}

// ThinkDetector splits a streamed response into visible text and
// reasoning-trace spans delimited by <think>...</think>, independent of
// how the stream is chunked.
type ThinkDetector struct {
	inThink bool
	buffer  string
}

func NewThinkDetector() *ThinkDetector {
	return &ThinkDetector{}
}

// Feed appends a chunk and returns the segments that are safe to release.
// The final tagBuffer bytes are always held back until Flush.
func (d *ThinkDetector) Feed(chunk string) []Segment {
	d.buffer += chunk
	var out []Segment

	for len(d.buffer) > tagBuffer {
		tag := ThinkStart
		if d.inThink {
			tag = ThinkEnd
		}

		idx := strings.Index(d.buffer, tag)
		if idx == -1 {
			// no full tag yet; release everything except the tail that
			// could still become one
			emit := d.buffer[:len(d.buffer)-tagBuffer]
			d.buffer = d.buffer[len(d.buffer)-tagBuffer:]
			if emit != "" {
				out = append(out, Segment{Text: emit, Think: d.inThink})
			}
			break
		}

		if idx > 0 {
			out = append(out, Segment{Text: d.buffer[:idx], Think: d.inThink})
		}
		d.buffer = d.buffer[idx+len(tag):]
		d.inThink = !d.inThink
	}

	return out
}

// Flush releases whatever is still buffered, tagged with the current
// state. Call it once, after the stream has ended.
func (d *ThinkDetector) Flush() []Segment {
	if d.buffer == "" {
		return nil
	}
	seg := Segment{Text: d.buffer, Think: d.inThink}
	d.buffer = ""
	return []Segment{seg}
}

// ExtractThinking splits a complete response into visible content and
// reasoning. Unclosed blocks count as reasoning to the end of the text.
func ExtractThinking(text string) (content string, reasoning string) {
	var contentBuilder strings.Builder
	var reasoningBuilder strings.Builder

	cursor := 0
	for cursor < len(text) {
		startIdx := strings.Index(text[cursor:], ThinkStart)
		if startIdx == -1 {
			contentBuilder.WriteString(text[cursor:])
			break
		}

		realStart := cursor + startIdx
		contentBuilder.WriteString(text[cursor:realStart])
		cursor = realStart + len(ThinkStart)

		endIdx := strings.Index(text[cursor:], ThinkEnd)
		if endIdx == -1 {
			reasoningBuilder.WriteString(text[cursor:])
			break
		}

		realEnd := cursor + endIdx
		reasoningBuilder.WriteString(text[cursor:realEnd])
		cursor = realEnd + len(ThinkEnd)
	}

	return contentBuilder.String(), reasoningBuilder.String()
}
