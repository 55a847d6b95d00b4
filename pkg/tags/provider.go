package tags

import "sync"

// capMessageTags is the capability a recipient must have negotiated before
// tags from the Provider are serialized onto its wire.
const capMessageTags = "message-tags"

// Recipient is one delivery target of an outgoing message.
type Recipient interface {
	// HasCap reports whether the recipient's connection negotiated the named
	// capability.
	HasCap(name string) bool
}

// SendFilter decides per recipient whether a tag attached by a provider is
// serialized onto that recipient's wire.
type SendFilter interface {
	ShouldSend(rcpt Recipient) bool
}

// TaggableMessage is an outgoing message that accepts provider-attributed
// tags.
type TaggableMessage interface {
	OutgoingMessage
	// AddTag attaches a tag whose transmission is decided per recipient by
	// filter.
	AddTag(name, value string, filter SendFilter)
}

// Provider implements the outgoing-message hook: it resolves the subject of
// each message and attaches that subject's custom tags under a configured
// vendor prefix. Attached tags are serialized only for recipients that
// negotiated the message-tags capability.
type Provider struct {
	store    *Store
	resolver *Resolver

	mu     sync.RWMutex
	vendor string
}

// NewProvider returns a Provider emitting tags as vendor + "/" + name.
func NewProvider(store *Store, resolver *Resolver, vendor string) *Provider {
	return &Provider{store: store, resolver: resolver, vendor: vendor}
}

// SetVendor replaces the vendor prefix, normally on config reload.
func (p *Provider) SetVendor(vendor string) {
	p.mu.Lock()
	p.vendor = vendor
	p.mu.Unlock()
}

// Vendor returns the current vendor prefix.
func (p *Provider) Vendor() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.vendor
}

// PopulateTags attaches the subject's custom tags to msg. Messages with no
// subject or whose subject has no TagSet are left untouched; tag injection is
// best-effort metadata and never interferes with delivery.
func (p *Provider) PopulateTags(msg TaggableMessage) {
	subject, ok := p.resolver.Subject(msg)
	if !ok {
		return
	}
	set, ok := p.store.Get(subject)
	if !ok {
		return
	}

	vendor := p.Vendor()
	for _, e := range set.Entries() {
		msg.AddTag(vendor+"/"+e.Name, e.Value, p)
	}
}

// ShouldSend reports whether the recipient negotiated message-tags.
func (p *Provider) ShouldSend(rcpt Recipient) bool {
	return rcpt.HasCap(capMessageTags)
}
