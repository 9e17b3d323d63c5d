package lsp

import (
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/tokenlens/tokenlens/pkg/lsp/protocol"
)

// normalizeURI ensures consistent URI handling by removing the file://
// prefix if present and converting to a clean path
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Document represents a text document with its metadata
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Content    string
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
	fs    afero.Fs
}

func NewDocumentManager(fsys afero.Fs) *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
		fs:    fsys,
	}
}

// Get returns the tracked document for uri, falling back to a filesystem
// read for documents the client never opened.
func (m *DocumentManager) Get(uri protocol.DocumentURI) (*Document, bool) {
	normalized := normalizeURI(string(uri))
	if content, ok := m.store.Load(normalized); ok {
		doc, ok := content.(*Document)
		return doc, ok
	}

	data, err := afero.ReadFile(m.fs, normalized)
	if err != nil {
		return nil, false
	}
	doc := &Document{
		URI:     normalized,
		Content: string(data),
	}
	m.store.Store(normalized, doc)
	return doc, true
}

func (m *DocumentManager) Store(uri protocol.DocumentURI, doc *Document) {
	m.store.Store(normalizeURI(string(uri)), doc)
}

func (m *DocumentManager) Delete(uri protocol.DocumentURI) {
	m.store.Delete(normalizeURI(string(uri)))
}
