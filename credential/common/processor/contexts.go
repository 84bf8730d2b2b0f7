package processor

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/piprate/json-gold/ld"
)

var (
	//go:embed contexts/credentials_v1.jsonld
	credentialsV1 []byte
	//go:embed contexts/security_v1.jsonld
	securityV1 []byte
	//go:embed contexts/security_v2.jsonld
	securityV2 []byte
	//go:embed contexts/jws2020_v1.jsonld
	jws2020V1 []byte
	//go:embed contexts/ed25519_2020_v1.jsonld
	ed25519Signature2020V1 []byte
)

// Context is a JSON-LD context document served without network access.
type Context struct {
	URL     string
	Content []byte
}

// EmbeddedContexts are preloaded into every OfflineLoader.
var EmbeddedContexts = []Context{
	{URL: "https://www.w3.org/2018/credentials/v1", Content: credentialsV1},
	{URL: "https://w3id.org/security/v1", Content: securityV1},
	{URL: "https://w3id.org/security/v2", Content: securityV2},
	{URL: "https://w3id.org/security/suites/jws-2020/v1", Content: jws2020V1},
	{URL: "https://w3id.org/security/suites/ed25519-2020/v1", Content: ed25519Signature2020V1},
}

var embeddedDocuments = sync.OnceValues(func() (map[string]*ld.RemoteDocument, error) {
	docs := make(map[string]*ld.RemoteDocument, len(EmbeddedContexts))
	for _, c := range EmbeddedContexts {
		doc, err := ld.DocumentFromReader(bytes.NewReader(c.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded context %s: %w", c.URL, err)
		}
		docs[c.URL] = &ld.RemoteDocument{DocumentURL: c.URL, Document: doc}
	}
	return docs, nil
})
