package processor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vocabContext = `{"@vocab": "https://example.org/vocab#", "id": "@id", "type": "@type"}`

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestRDFCIsOrderIndependent(t *testing.T) {
	p := NewRDFC()

	a := decode(t, `{"@context": `+vocabContext+`, "id": "urn:uuid:1", "type": "Thing", "name": "Test Person III", "status": "active"}`)
	b := decode(t, `{"status": "active", "name": "Test Person III", "type": "Thing", "id": "urn:uuid:1", "@context": `+vocabContext+`}`)

	ca, err := p.Canonicalize(a)
	require.NoError(t, err)
	cb, err := p.Canonicalize(b)
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.Contains(t, string(ca), `<https://example.org/vocab#name> "Test Person III"`)
}

func TestRDFCDetectsValueChange(t *testing.T) {
	p := NewRDFC()

	a := decode(t, `{"@context": `+vocabContext+`, "id": "urn:uuid:1", "name": "Test Person III"}`)
	b := decode(t, `{"@context": `+vocabContext+`, "id": "urn:uuid:1", "name": "Test Person IV"}`)

	ca, err := p.Canonicalize(a)
	require.NoError(t, err)
	cb, err := p.Canonicalize(b)
	require.NoError(t, err)

	assert.NotEqual(t, string(ca), string(cb))
}

func TestRDFCDoesNotMutateInput(t *testing.T) {
	p := NewRDFC()
	doc := decode(t, `{"@context": `+vocabContext+`, "id": "urn:uuid:1", "name": "x"}`)
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = p.Canonicalize(doc)
	require.NoError(t, err)

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestRDFCRemoteContext(t *testing.T) {
	doc := decode(t, `{"@context": "https://example.org/contexts/v1", "id": "urn:uuid:1", "name": "x"}`)

	t.Run("unavailable offline", func(t *testing.T) {
		_, err := NewRDFC().Canonicalize(doc)
		assert.ErrorIs(t, err, ErrContextUnavailable)
	})

	t.Run("preloaded", func(t *testing.T) {
		loader := NewOfflineLoader()
		require.NoError(t, loader.AddDocument("https://example.org/contexts/v1", []byte(`{"@context": `+vocabContext+`}`)))

		out, err := NewRDFC(WithDocumentLoader(loader)).Canonicalize(doc)
		require.NoError(t, err)
		assert.Contains(t, string(out), "<urn:uuid:1>")
	})
}

func TestRDFCUndefinedTerms(t *testing.T) {
	doc := decode(t, `{
		"@context": "https://www.w3.org/2018/credentials/v1",
		"id": "urn:uuid:1",
		"type": "VerifiableCredential",
		"credentialSubject": {"id": "did:example:holder", "name": "Alice"}
	}`)

	t.Run("rejected", func(t *testing.T) {
		_, err := NewRDFC().Canonicalize(doc)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrContextUnavailable)
	})

	t.Run("dropped without safe mode", func(t *testing.T) {
		lax := NewRDFC(WithSafeMode(false))
		before, err := lax.Canonicalize(doc)
		require.NoError(t, err)

		doc["credentialSubject"].(map[string]interface{})["name"] = "Mallory"
		after, err := lax.Canonicalize(doc)
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})
}

func TestEmbeddedContexts(t *testing.T) {
	loader := NewOfflineLoader()
	for _, c := range EmbeddedContexts {
		doc, err := loader.LoadDocument(c.URL)
		require.NoError(t, err, c.URL)
		assert.NotNil(t, doc.Document, c.URL)
	}

	out, err := NewRDFC().Canonicalize(decode(t, `{
		"@context": ["https://www.w3.org/2018/credentials/v1", "https://w3id.org/security/suites/ed25519-2020/v1"],
		"id": "urn:uuid:1",
		"type": "VerifiableCredential",
		"issuer": "did:example:issuer",
		"issuanceDate": "2024-01-01T00:00:00Z",
		"credentialSubject": {"id": "did:example:holder"}
	}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<urn:uuid:1> <https://www.w3.org/2018/credentials#issuer> <did:example:issuer> .")
}

func TestRDFCRejectsEmptyDataset(t *testing.T) {
	_, err := NewRDFC().Canonicalize(map[string]interface{}{"name": "no context"})
	assert.Error(t, err)

	_, err = NewRDFC().Canonicalize(nil)
	assert.Error(t, err)
}

func TestJCS(t *testing.T) {
	out, err := NewJCS().Canonicalize(map[string]interface{}{
		"b": 1.0,
		"a": map[string]interface{}{"d": "x", "c": true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":true,"d":"x"},"b":1}`, string(out))

	_, err = NewJCS().Canonicalize(nil)
	assert.Error(t, err)
}

func TestOfflineLoader(t *testing.T) {
	loader := NewOfflineLoader()
	require.NoError(t, loader.AddDocument("https://example.org/ctx", []byte(`{"@context": {}}`)))

	doc, err := loader.LoadDocument("https://example.org/ctx")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/ctx", doc.DocumentURL)

	_, err = loader.LoadDocument("https://example.org/missing")
	assert.ErrorIs(t, err, ErrContextUnavailable)

	assert.Error(t, loader.AddDocument("https://example.org/bad", []byte(`{`)))
}
