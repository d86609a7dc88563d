package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head>
	<title>Checkout  -  Example Store</title>
	<meta name="description" content="Buy things at Example Store">
	<meta property="og:title" content="Example Store">
	<link rel="canonical" href="https://example.com/checkout">
	<script>var tracking = "secretScript";</script>
</head>
<body>
	<h1>Checkout</h1>
	<h2>Contact</h2>
	<p>Questions? Email support@example.com or call 5551234567.</p>
	<style>.x { color: red }</style>
	<form>
		<input type="text" name="full_name" id="name" value="Jane Doe">
		<input type="email" name="email" placeholder="you@example.com">
		<input type="password" name="password">
		<input type="hidden" name="csrf_token" value="abc123">
		<textarea name="notes"></textarea>
	</form>
</body>
</html>`

func TestExtractPageContent(t *testing.T) {
	content := ExtractPageContent(samplePage, "https://example.com/checkout", true)

	assert.Equal(t, "Checkout - Example Store", content.Title)
	assert.Equal(t, "https://example.com/checkout", content.URL)
	assert.Equal(t, "Buy things at Example Store", content.Meta.Description)
	assert.Equal(t, "Example Store", content.Meta.OGTitle)
	assert.Equal(t, "https://example.com/checkout", content.Meta.Canonical)

	require.Len(t, content.Headings, 2)
	assert.Equal(t, Heading{Tag: "h1", Text: "Checkout"}, content.Headings[0])
	assert.Equal(t, Heading{Tag: "h2", Text: "Contact"}, content.Headings[1])

	// The text walk redacts and skips script/style content.
	assert.Contains(t, content.Text, "Email [EMAIL] or call [NUMBER].")
	assert.NotContains(t, content.Text, "secretScript")
	assert.NotContains(t, content.Text, "color: red")
	assert.NotContains(t, content.Text, "support@example.com")
}

func TestExtractPageContentForms(t *testing.T) {
	content := ExtractPageContent(samplePage, "https://example.com/checkout", true)

	// The hidden csrf field is dropped entirely.
	require.Len(t, content.Forms, 4)

	byName := map[string]FormField{}
	for _, field := range content.Forms {
		byName[field.Name] = field
	}
	assert.Equal(t, RedactedMarker, byName["full_name"].Value)
	assert.Equal(t, RedactedMarker, byName["password"].Value)
	assert.Equal(t, "", byName["email"].Value)
	assert.Equal(t, "you@example.com", byName["email"].Placeholder)
	assert.Equal(t, "textarea", byName["notes"].Type)
}

func TestExtractPageContentWithoutForms(t *testing.T) {
	content := ExtractPageContent(samplePage, "https://example.com/checkout", false)
	assert.Empty(t, content.Forms)
	assert.NotEmpty(t, content.Text)
}

func TestExtractPageContentMalformedHTML(t *testing.T) {
	content := ExtractPageContent("<div><p>broken", "https://example.com", true)
	assert.Contains(t, content.Text, "broken")
}
