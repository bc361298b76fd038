package mqtt

import (
	"net"
	"net/netip"
	"strings"

	"github.com/google/uuid"
)

const defaultPort = "1883"

func generateClientID() string {
	return "streampuffer-" + uuid.NewString()[:8]
}

// splitBroker returns host and port of a broker address. The address may
// carry a scheme and may leave out the port; IPv6 literals may come with or
// without brackets.
func splitBroker(broker string) (host, port string) {
	if _, rest, ok := strings.Cut(broker, "://"); ok {
		broker = rest
	}
	broker, _, _ = strings.Cut(broker, "/")

	if h, p, err := net.SplitHostPort(broker); err == nil {
		return h, p
	}
	return strings.Trim(broker, "[]"), defaultPort
}

func brokerHost(broker string) string {
	host, _ := splitBroker(broker)
	return host
}

func brokerHostPort(broker string) string {
	return net.JoinHostPort(splitBroker(broker))
}

// brokerIsIP reports whether the broker host is a literal address, which
// needs no DNS lookup before connecting.
func brokerIsIP(broker string) bool {
	_, err := netip.ParseAddr(brokerHost(broker))
	return err == nil
}
