package plugin

import "context"

// ActionRuntime is the host-supplied mailbox interface. Any implementation
// with matching operations satisfies it, including test doubles.
type ActionRuntime interface {
	// ArchiveEmail archives the message in the mail provider.
	ArchiveEmail(messageID string) error

	// KeepInInbox leaves the message where it is.
	KeepInInbox(messageID string) error
}

// Handler processes one inbound email event against the host's action
// runtime.
type Handler func(ctx context.Context, event map[string]any, rt ActionRuntime) (*Result, error)

// Registry is the host's command registry.
type Registry interface {
	RegisterCommand(name string, handler Handler)
}

// HostContext exposes the host runtime's declared version and plugin
// configuration mapping. It is consulted only at registration time.
type HostContext interface {
	Version() string
	Config() map[string]any
}
