package ports

import "context"

// EventPublisher publishes session lifecycle events so other processes sharing
// the credential store can react to them
type EventPublisher interface {
	PublishLogin(ctx context.Context, identifier, address string) error
	PublishLogout(ctx context.Context, identifier string) error
}
