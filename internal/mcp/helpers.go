package mcp

import (
	"encoding/json"

	"github.com/google/uuid"
)

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return v
}

func intArg(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func sessionOrRandom(args map[string]any) string {
	if session := stringArg(args, "session"); session != "" {
		return session
	}
	return uuid.NewString()
}
