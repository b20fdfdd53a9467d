package message

import (
	"testing"

	"github.com/fieldteam/orchestrator/domain/artifact"
	"github.com/stretchr/testify/assert"
)

func TestToModelText_TextOnly(t *testing.T) {
	m := NewText(KindUserText, "user", "hello there")
	assert.Equal(t, "hello there", m.ToModelText(""))
	assert.False(t, m.IsMultimodal())
}

func TestToModelText_WithImagePlaceholder(t *testing.T) {
	m := NewMultimodal("web_surfer",
		Text{Value: "screenshot of the page:"},
		Image{URI: "data:image/png;base64,abc"},
	)
	assert.Equal(t, "screenshot of the page: <image>", m.ToModelText(""))
	assert.Equal(t, "screenshot of the page: [see attached]", m.ToModelText("[see attached]"))
	assert.True(t, m.IsMultimodal())
}

func TestToModelText_Document(t *testing.T) {
	ref := artifact.NewRef("doc-1").WithName("report.pdf")
	m := NewMultimodal("document_generator", Document{Ref: ref})
	assert.Contains(t, m.ToModelText(""), "report.pdf")
}

func TestText_IgnoresNonTextParts(t *testing.T) {
	m := NewMultimodal("web_surfer", Text{Value: "a"}, Image{URI: "x"}, Text{Value: "b"})
	assert.Equal(t, "a b", m.Text())
}
