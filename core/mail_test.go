package core

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/academia/fs"
)

func TestEmbeddedLayouts(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml"} {
		_, err := fs.Stat(appfs.FS, templatesDir+"/"+name)
		assert.NoError(t, err, name)
	}
}

func TestParseTemplates(t *testing.T) {
	cache, err := parseTemplates(appfs.FS)
	require.NoError(t, err)

	for _, name := range []string{"enrollment_confirmation", "payment_rejection"} {
		entry, ok := cache[name]
		require.True(t, ok, name)
		assert.NotNil(t, entry.text, name)
		assert.NotNil(t, entry.html, name)
	}
	_, ok := cache["_base"]
	assert.False(t, ok)
}

func TestEmailMessage_Render(t *testing.T) {
	msg := &EmailMessage{
		Subject:      "Payment Rejected",
		TemplateName: "payment_rejection",
		TemplateData: map[string]interface{}{"Name": "Priya Sharma", "Reason": "blurry screenshot"},
	}
	require.NoError(t, msg.Render("https://academia.example.com"))
	assert.Contains(t, msg.TextContent, "Hi Priya Sharma")
	assert.Contains(t, msg.TextContent, "Reason: blurry screenshot")
	assert.Contains(t, msg.HTMLContent, "blurry screenshot")
}
