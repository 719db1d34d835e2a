package ports

import "context"

// ChatPublisher envía un mensaje (Markdown) al chat del grupo.
type ChatPublisher interface {
	Publish(ctx context.Context, text string) error
}
