package config

// Flatten converts a nested mapping into the flat underscore-joined keys
// FromSources reads. {"inference": {"base_url": "x"}} becomes
// {"inference_base_url": "x"}. Flat documents pass through unchanged.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", m, out)
	return out
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, out)
		default:
			out[key] = v
		}
	}
}
