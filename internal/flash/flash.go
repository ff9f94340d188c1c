// Package flash implements one-shot messages carried in the session across
// a redirect: a handler adds a message before redirecting, the next rendered
// page pops and displays it.
package flash

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const sessionKey = "flash"

// Add queues a message under a category ("success", "error", ...). The
// caller is responsible for saving the session afterwards.
func Add(sess *session.Session, category, message string) error {
	messages, err := read(sess)
	if err != nil {
		return err
	}
	messages[category] = append(messages[category], message)

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode flash messages: %w", err)
	}
	sess.Set(sessionKey, string(data))
	return nil
}

// Pop returns all queued messages and clears the queue, so each message is
// shown exactly once. The caller is responsible for saving the session.
func Pop(sess *session.Session) (map[string][]string, error) {
	messages, err := read(sess)
	if err != nil {
		return nil, err
	}
	sess.Delete(sessionKey)
	return messages, nil
}

func read(sess *session.Session) (map[string][]string, error) {
	raw, ok := sess.Get(sessionKey).(string)
	if !ok || raw == "" {
		return map[string][]string{}, nil
	}
	var messages map[string][]string
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode flash messages: %w", err)
	}
	return messages, nil
}
