package client

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"cancan-client/internal/actor"
)

var ErrNoServiceID = errors.New("failed to parse url containing canisterId")

var serviceIDLabel = regexp.MustCompile(`^(?:[a-z0-9]{5}-){4}[a-z0-9]{3}$`)

// ServiceIDFromURL extracts the actor's service id from a front-end URL, either from a
// hostname of the form <id>.<domain> or from a canisterId query parameter.
func ServiceIDFromURL(rawURL string) (actor.Principal, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Join(ErrNoServiceID, err)
	}
	labels := strings.Split(u.Hostname(), ".")
	for _, label := range labels[:max(len(labels)-1, 0)] {
		if serviceIDLabel.MatchString(label) {
			return actor.Principal(label), nil
		}
	}
	if id := u.Query().Get("canisterId"); id != "" {
		return actor.Principal(id), nil
	}
	return "", ErrNoServiceID
}
