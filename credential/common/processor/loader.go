package processor

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/piprate/json-gold/ld"
)

// ErrContextUnavailable is returned for a context URL that was not preloaded
// and no fallback loader is configured.
var ErrContextUnavailable = errors.New("JSON-LD context not available offline")

// LoaderOpt configures an OfflineLoader.
type LoaderOpt func(*OfflineLoader)

// WithFallback lets the loader delegate unknown URLs, e.g. to
// ld.NewDefaultDocumentLoader for network access. Fetched documents are
// cached.
func WithFallback(loader ld.DocumentLoader) LoaderOpt {
	return func(l *OfflineLoader) {
		l.fallback = ld.NewCachingDocumentLoader(loader)
	}
}

// OfflineLoader serves JSON-LD contexts from memory.
type OfflineLoader struct {
	mu        sync.RWMutex
	documents map[string]*ld.RemoteDocument
	fallback  ld.DocumentLoader
}

// NewOfflineLoader creates a loader holding the EmbeddedContexts.
func NewOfflineLoader(opts ...LoaderOpt) *OfflineLoader {
	l := &OfflineLoader{documents: make(map[string]*ld.RemoteDocument)}
	if embedded, err := embeddedDocuments(); err == nil {
		for url, doc := range embedded {
			l.documents[url] = doc
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddDocument preloads a context document under url.
func (l *OfflineLoader) AddDocument(url string, raw []byte) error {
	doc, err := ld.DocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse context %s: %w", url, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.documents[url] = &ld.RemoteDocument{DocumentURL: url, Document: doc}
	return nil
}

// LoadDocument implements ld.DocumentLoader.
func (l *OfflineLoader) LoadDocument(url string) (*ld.RemoteDocument, error) {
	l.mu.RLock()
	doc, ok := l.documents[url]
	l.mu.RUnlock()
	if ok {
		return doc, nil
	}

	if l.fallback != nil {
		return l.fallback.LoadDocument(url)
	}
	return nil, fmt.Errorf("%w: %s", ErrContextUnavailable, url)
}
