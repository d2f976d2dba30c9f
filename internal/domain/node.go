package domain

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/chimera-systems/chimera/internal/errors"
)

const defaultSSHPort = 22

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Node identifies a target machine as (host, user, port, displayName).
// Equality is by (host, user, port); displayName is cosmetic only.
type Node struct {
	Host        string
	User        string
	Port        int
	DisplayName string
}

// NewNode constructs a Node with the SSH default port (22) when port is
// zero, defaulting user to "root" when empty.
func NewNode(host, user string, port int) (Node, error) {
	if host == "" {
		return Node{}, errors.Validation("node.new", "host must not be empty")
	}
	if !isValidHost(host) {
		return Node{}, errors.Validation("node.new", fmt.Sprintf("invalid host %q", host))
	}
	if user == "" {
		user = "root"
	}
	if port == 0 {
		port = defaultSSHPort
	}
	if port < 1 || port > 65535 {
		return Node{}, errors.Validation("node.new", fmt.Sprintf("invalid port %d", port))
	}
	return Node{Host: host, User: user, Port: port}, nil
}

// ParseNode parses "user@host[:port]", bare "host", or bracketed IPv6
// forms like "user@[::1]:22". Defaults: user "root", port 22.
func ParseNode(target string) (Node, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Node{}, errors.Validation("node.parse", "target must not be empty")
	}

	user := "root"
	rest := target
	if idx := strings.LastIndex(target, "@"); idx >= 0 {
		user = target[:idx]
		rest = target[idx+1:]
		if user == "" {
			return Node{}, errors.Validation("node.parse", fmt.Sprintf("empty user in target %q", target))
		}
	}

	host, port, err := splitHostPort(rest)
	if err != nil {
		return Node{}, errors.ValidationWrap(err, "node.parse", fmt.Sprintf("malformed target %q", target))
	}
	return NewNode(host, user, port)
}

// ParseNodes splits a comma-separated TARGETS string (the CLI's -t/-targets
// flag format) into Nodes, per spec §6.2.
func ParseNodes(targets string) ([]Node, error) {
	parts := strings.Split(targets, ",")
	nodes := make([]Node, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := ParseNode(p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, errors.Validation("node.parse_nodes", "no targets given")
	}
	return nodes, nil
}

func splitHostPort(rest string) (string, int, error) {
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated IPv6 literal")
		}
		host := rest[1:end]
		trailer := rest[end+1:]
		if trailer == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(trailer, ":") {
			return "", 0, fmt.Errorf("expected ':port' after IPv6 literal, got %q", trailer)
		}
		port, err := strconv.Atoi(trailer[1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", trailer[1:])
		}
		return host, port, nil
	}

	// Bare IPv6 without brackets and without a port (e.g. "::1").
	if strings.Count(rest, ":") > 1 {
		return rest, 0, nil
	}

	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		host := rest[:idx]
		port, err := strconv.Atoi(rest[idx+1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", rest[idx+1:])
		}
		return host, port, nil
	}
	return rest, 0, nil
}

func isValidHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	return hostnameRe.MatchString(host) && len(host) <= 253
}

// String renders the node as "user@host:port", the canonical form
// accepted by ParseNode.
func (n Node) String() string {
	host := n.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s@%s:%d", n.User, host, n.Port)
}

// ID returns a stable identifier for use as a map key in the Agent
// Registry and drift-history tracking: "user@host:port".
func (n Node) ID() string {
	return n.String()
}

// Equal reports value equality by (host, user, port).
func (n Node) Equal(other Node) bool {
	return n.Host == other.Host && n.User == other.User && n.Port == other.Port
}
