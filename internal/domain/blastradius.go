package domain

import "strings"

// BlastRadiusGroup is a derived, non-persisted grouping of nodes that
// share a hostname prefix, used to decide whether a drifted fingerprint
// affects one machine or an entire class of them. Grounded on
// DriftDetectionService._calculate_blast_radius in original_source/chimera:
// nodes are grouped by the first label of their hostname (up to the
// first dot) with any trailing digit run and hyphens stripped, so
// "web-01.internal" and "web-02.internal" share the group "web".
type BlastRadiusGroup struct {
	Prefix string
	Nodes  []Node
}

// HostPrefix derives host's blast-radius grouping key.
func HostPrefix(host string) string {
	label := host
	if idx := strings.Index(host, "."); idx >= 0 {
		label = host[:idx]
	}
	return strings.TrimRight(label, "0123456789-")
}

// GroupByBlastRadius partitions nodes into BlastRadiusGroups by
// HostPrefix, in first-seen order.
func GroupByBlastRadius(nodes []Node) []BlastRadiusGroup {
	index := make(map[string]int)
	var groups []BlastRadiusGroup
	for _, n := range nodes {
		prefix := HostPrefix(n.Host)
		if i, ok := index[prefix]; ok {
			groups[i].Nodes = append(groups[i].Nodes, n)
			continue
		}
		index[prefix] = len(groups)
		groups = append(groups, BlastRadiusGroup{Prefix: prefix, Nodes: []Node{n}})
	}
	return groups
}

// BlastRadiusPeers returns every other node in nodes that shares node's
// blast-radius group.
func BlastRadiusPeers(node Node, nodes []Node) []Node {
	prefix := HostPrefix(node.Host)
	var peers []Node
	for _, n := range nodes {
		if n.Equal(node) {
			continue
		}
		if HostPrefix(n.Host) == prefix {
			peers = append(peers, n)
		}
	}
	return peers
}
