package message

import "strings"

// ReservedMetadataKeys are framework-owned metadata keys that application
// code should treat as read-only. Framework components (SubgraphNode,
// HumanNode, the runner, the resume engine) are the only writers.
var ReservedMetadataKeys = map[string]bool{
	"traceId":              true,
	"tenantId":             true,
	"subgraphStack":        true,
	"__subgraphStack":      true,
	"subgraphDepth":        true,
	"parentGraphId":        true,
	"parentRunId":          true,
	"subgraphPath":         true,
	"subgraphEnteredAt":    true,
	"lastSubgraphDuration": true,
	"lastSubgraphId":       true,
	"lastSubgraphState":    true,
	"paused_node_id":       true,
	"paused_at":            true,
}

// SubgraphStackMetadataKey is the reserved metadata key a WAITING message
// carries its subgraph pause stack under (spec §4.2 step 5, §3 invariant
// iv). Shared by SubgraphNode and the runner/resume packages so both sides
// agree on where the stack lives without an import cycle.
const SubgraphStackMetadataKey = "__subgraphStack"

// IsReservedMetadataKey reports whether key is framework-owned, either
// because it appears in ReservedMetadataKeys or because it begins with the
// "_" convention from spec §3 invariant (iv).
func IsReservedMetadataKey(key string) bool {
	if strings.HasPrefix(key, "_") {
		return true
	}
	return ReservedMetadataKeys[key]
}

// PreservedSubgraphMetadataKeys is the default set of metadata keys copied
// verbatim from a parent message into a child subgraph message, per spec
// §4.2 step 3.
var PreservedSubgraphMetadataKeys = []string{
	"userId",
	"tenantId",
	"traceId",
	"spanId",
	"sessionToken",
	"correlationId",
	"isLoggedIn",
}
