//go:build linux

package reactor

import "os"

// newPoller selects epoll by default, falling back to poll(2) when
// LUX_USE_POLL is present in the environment (§6).
func newPoller() (Poller, error) {
	if _, ok := os.LookupEnv("LUX_USE_POLL"); ok {
		return newPollPoller(), nil
	}
	return newEpollPoller()
}
