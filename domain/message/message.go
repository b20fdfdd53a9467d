package message

import (
	"strings"
	"time"
)

// Kind classifies a transcript message for the Orchestrator's own
// bookkeeping, distinct from the content parts it carries.
type Kind string

const (
	// KindUserText is a message from the user (the initial task or a
	// follow-up).
	KindUserText Kind = "user_text"

	// KindMultimodal is a message carrying non-text content parts,
	// typically an agent's observation (e.g. a screenshot).
	KindMultimodal Kind = "multimodal"

	// KindThought is an internal planning/ledger artifact surfaced to the
	// transcript for observability, not shown to the user by default.
	KindThought Kind = "thought"

	// KindStreamingChunk is an incremental token delta forwarded live
	// from a streaming LLM call.
	KindStreamingChunk Kind = "streaming_chunk"

	// KindAgentResponse is a team agent's final response to a dispatched
	// step.
	KindAgentResponse Kind = "agent_response"
)

// Message is one entry in a session's transcript.
type Message struct {
	Kind      Kind          `json:"kind"`
	Source    string        `json:"source"`
	Parts     []ContentPart `json:"-"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewText constructs a plain-text message from source.
func NewText(kind Kind, source, text string) Message {
	return Message{
		Kind:      kind,
		Source:    source,
		Parts:     []ContentPart{Text{Value: text}},
		Timestamp: time.Now(),
	}
}

// NewMultimodal constructs a message from an ordered list of content
// parts.
func NewMultimodal(source string, parts ...ContentPart) Message {
	return Message{
		Kind:      KindMultimodal,
		Source:    source,
		Parts:     parts,
		Timestamp: time.Now(),
	}
}

// ToModelText projects every part to text, joining with a single space and
// substituting placeholder for non-text parts, mirroring the original
// system's multimodal-to-text collapsing used when a provider call does
// not accept multimodal input.
func (m Message) ToModelText(placeholder string) string {
	rendered := make([]string, 0, len(m.Parts))
	for _, part := range m.Parts {
		rendered = append(rendered, part.ToModelText(placeholder))
	}
	return strings.Join(rendered, " ")
}

// Text returns the concatenation of only the Text parts, ignoring images
// and documents, for callers that need a plain string without placeholders.
func (m Message) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if t, ok := part.(Text); ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.Value)
		}
	}
	return b.String()
}

// IsMultimodal reports whether the message carries any non-text part.
func (m Message) IsMultimodal() bool {
	for _, part := range m.Parts {
		if part.Kind() != KindText {
			return true
		}
	}
	return false
}
