package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the trust engine
const (
	EventIssuerVerified    = "issuerVerified"    // EventIssuerVerified an issuer verification attempt finished
	EventCredentialIssued  = "credentialIssued"  // EventCredentialIssued a VC-JWT was issued
	EventCredentialRevoked = "credentialRevoked" // EventCredentialRevoked a status list bit was set
)

// Event defines the payload
type Event interface {
	Marshal() (msg Message, err error)
	Unmarshal(msg Message) error
}

// Message is the payload received in a pubsub subscriber. The input for callback functions
type Message []byte

// IssuerVerifiedEvent defines the issuerVerified data
type IssuerVerifiedEvent struct {
	IssuerDID string `json:"issuerDid"`
	Status    string `json:"status"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *IssuerVerifiedEvent) Marshal() (msg Message, err error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *IssuerVerifiedEvent) Unmarshal(msg Message) error {
	return json.Unmarshal(msg, &ev)
}

// CredentialIssuedEvent defines the credentialIssued data
type CredentialIssuedEvent struct {
	CredentialID string `json:"credentialId"`
	IssuerDID    string `json:"issuerDid"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *CredentialIssuedEvent) Marshal() (msg Message, err error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *CredentialIssuedEvent) Unmarshal(msg Message) error {
	return json.Unmarshal(msg, &ev)
}

// CredentialRevokedEvent defines the credentialRevoked data
type CredentialRevokedEvent struct {
	IssuerDID string `json:"issuerDid"`
	Index     uint64 `json:"index"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *CredentialRevokedEvent) Marshal() (msg Message, err error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *CredentialRevokedEvent) Unmarshal(msg Message) error {
	return json.Unmarshal(msg, &ev)
}

// Publisher sends topics to the pubsub
type Publisher interface {
	Publish(ctx context.Context, topic string, payload Event) error
}

// EventHandler is the type that functions handling an event must comply
type EventHandler func(context.Context, Message) error

// Subscriber subscribes to the pubsub topics
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, callback EventHandler)
}

// Client is formed by the publisher and subscriber
type Client interface {
	Publisher
	Subscriber
}
