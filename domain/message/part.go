// Package message provides the tagged transcript message model shared
// across the Orchestrator and the team's agents: a message carries one or
// more content parts (text, image, or a reference to a generated
// document), and projects down to plain text for LLM prompts via
// ToModelText.
package message

import (
	"fmt"

	"github.com/fieldteam/orchestrator/domain/artifact"
)

// PartKind identifies the concrete type of a ContentPart.
type PartKind string

const (
	KindText     PartKind = "text"
	KindImage    PartKind = "image"
	KindDocument PartKind = "document"
)

// ContentPart is one piece of a (possibly multimodal) message. Text, Image,
// and Document implement it.
type ContentPart interface {
	Kind() PartKind

	// ToModelText renders the part as text suitable for an LLM prompt.
	// Non-text parts render as placeholder, returned verbatim (no
	// formatting verbs are expanded); an empty placeholder falls back to a
	// short kind-specific marker.
	ToModelText(placeholder string) string
}

// Text is a plain-text content part.
type Text struct {
	Value string
}

func (Text) Kind() PartKind { return KindText }

func (t Text) ToModelText(_ string) string { return t.Value }

// Image is an inline image content part, referenced by a URI (data: URI or
// artifact store URL) rather than carrying raw bytes in the transcript.
type Image struct {
	URI         string
	ContentType string
}

func (Image) Kind() PartKind { return KindImage }

func (Image) ToModelText(placeholder string) string {
	if placeholder == "" {
		return "<image>"
	}
	return placeholder
}

// Document is a reference to an artifact produced by an agent (e.g. the
// document generator), carrying enough metadata to render a text
// placeholder without fetching the content.
type Document struct {
	Ref      artifact.Ref
	Metadata map[string]string
}

func (Document) Kind() PartKind { return KindDocument }

func (d Document) ToModelText(placeholder string) string {
	if placeholder != "" {
		return placeholder
	}
	return fmt.Sprintf("<document %s>", d.Ref.String())
}
