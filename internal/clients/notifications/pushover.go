package notifications

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushoverNotifier sends messages through the Pushover REST API.
type PushoverNotifier struct {
	apiToken   string
	userKey    string
	httpClient *http.Client
}

func NewPushoverNotifier(apiToken, userKey string) *PushoverNotifier {
	return &PushoverNotifier{
		apiToken:   apiToken,
		userKey:    userKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *PushoverNotifier) Name() string {
	return "pushover"
}

func (n *PushoverNotifier) Send(title, message string) error {
	form := url.Values{}
	form.Set("token", n.apiToken)
	form.Set("user", n.userKey)
	form.Set("title", title)
	form.Set("message", message)

	resp, err := n.httpClient.PostForm(pushoverEndpoint, form)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}

func (n *PushoverNotifier) Test() error {
	return n.Send("AutoDebrid", "Test notification")
}
