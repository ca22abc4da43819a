package notifications

import (
	"fmt"

	"github.com/xconstruct/go-pushbullet"
)

// PushbulletNotifier sends notes to every device on the account.
type PushbulletNotifier struct {
	client *pushbullet.Client
}

func NewPushbulletNotifier(apiKey string) *PushbulletNotifier {
	return &PushbulletNotifier{client: pushbullet.New(apiKey)}
}

func (n *PushbulletNotifier) Name() string {
	return "pushbullet"
}

func (n *PushbulletNotifier) Send(title, message string) error {
	// An empty iden broadcasts to all devices.
	if err := n.client.PushNote("", title, message); err != nil {
		return fmt.Errorf("pushbullet push failed: %w", err)
	}
	return nil
}

func (n *PushbulletNotifier) Test() error {
	if _, err := n.client.Me(); err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}
