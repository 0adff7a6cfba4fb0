package config

import (
	"net"
	"os"
	"strings"
	"sync"
)

const (
	dockerEnvFile     = "/.dockerenv"
	dockerHostGateway = "host.docker.internal"
)

// inContainer reports whether the engine runs inside a Docker container.
var inContainer = sync.OnceValue(func() bool {
	_, err := os.Stat(dockerEnvFile)
	return err == nil
})

// databaseHost maps a loopback database host to the Docker host gateway when
// containerized, so a Postgres running on the developer's machine stays
// reachable. Any other host is returned unchanged.
func databaseHost(host string, containerized bool) string {
	if !containerized {
		return host
	}
	if strings.EqualFold(host, "localhost") {
		return dockerHostGateway
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return dockerHostGateway
	}
	return host
}
