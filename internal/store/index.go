package store

import "github.com/benaskins/pwdy/internal/credential"

// Collection is anything Dump can persist: a List or an *Index.
type Collection interface {
	Credentials() []credential.Credential
}

// List is a plain ordered sequence of credentials.
type List []credential.Credential

// Credentials implements Collection.
func (l List) Credentials() []credential.Credential { return l }

// Index maps identity to credential and remembers insertion order, so a
// load-modify-dump cycle writes records back in the order it found them.
type Index struct {
	order []string
	byID  map[string]credential.Credential
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]credential.Credential)}
}

// Put stores c under its identity. An existing entry is replaced in place
// and Put reports true.
func (ix *Index) Put(c credential.Credential) bool {
	id := c.Identity()
	_, replaced := ix.byID[id]
	if !replaced {
		ix.order = append(ix.order, id)
	}
	ix.byID[id] = c
	return replaced
}

// Get returns the credential stored under identity.
func (ix *Index) Get(identity string) (credential.Credential, bool) {
	c, ok := ix.byID[identity]
	return c, ok
}

// Has reports whether identity is present.
func (ix *Index) Has(identity string) bool {
	_, ok := ix.byID[identity]
	return ok
}

// Len returns the number of distinct identities.
func (ix *Index) Len() int { return len(ix.order) }

// Keys returns identities in insertion order.
func (ix *Index) Keys() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Credentials implements Collection.
func (ix *Index) Credentials() []credential.Credential {
	out := make([]credential.Credential, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out
}
