package workflow

// StaticDefaults is a map-backed DefaultsProvider.
type StaticDefaults map[string]map[string]any

// Defaults returns the default parameters for a node type, or nil.
func (d StaticDefaults) Defaults(nodeType string) map[string]any {
	return d[nodeType]
}

// BuiltinDefaults returns the configuration defaults for the builtin node
// types. Values here only fill gaps; anything set on the node wins.
func BuiltinDefaults() StaticDefaults {
	return StaticDefaults{
		TypeHTTPRequest: {
			"method": "GET",
		},
		TypeSplitInBatches: {
			"batchSize": 10,
		},
		TypeDateTime: {
			"operation": "now",
			"format":    "rfc3339",
		},
		TypeCrypto: {
			"algorithm": "sha256",
		},
		TypeJSON: {
			"operation": "parse",
		},
	}
}
