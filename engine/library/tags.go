package library

import (
	"github.com/nbd-wtf/go-nostr"
)

func GetFirstTag(e nostr.Event, startsWith string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{startsWith}) {
			return tag.Value(), true
		}
	}
	return "", false
}

// WithTag replaces every tag with the given name by a single tag carrying value.
func WithTag(tags nostr.Tags, name, value string) nostr.Tags {
	var out nostr.Tags
	for _, tag := range tags {
		if len(tag) > 0 && tag[0] == name {
			continue
		}
		out = append(out, tag)
	}
	return append(out, nostr.Tag{name, value})
}
