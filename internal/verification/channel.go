package verification

import "strings"

var welcomeKeywords = []string{"bienvenue", "welcome", "général", "general", "accueil"}

// ResolveChannel picks where the prompt goes: the configured channel, then
// the first text channel with a welcome-like name, then the first text
// channel the bot can post in. Channels are considered in the given order.
func ResolveChannel(configured string, channels []Channel) (string, bool) {
	if configured != "" {
		for _, ch := range channels {
			if ch.ID == configured {
				return ch.ID, true
			}
		}
	}

	for _, ch := range channels {
		if !ch.Text {
			continue
		}
		name := strings.ToLower(ch.Name)
		for _, keyword := range welcomeKeywords {
			if strings.Contains(name, keyword) {
				return ch.ID, true
			}
		}
	}

	for _, ch := range channels {
		if ch.Text && ch.Postable {
			return ch.ID, true
		}
	}
	return "", false
}
