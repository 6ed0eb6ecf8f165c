package classify

const (
	// Metadata travels on every stored chunk, so its size is bounded
	// uniformly after classification and after any enrichment.
	maxMetadataFieldLen = 30
	maxMetadataListLen  = 5
	maxMetadataItemLen  = 20
)

// TruncateMetadata caps every string value at maxMetadataFieldLen runes and
// every list at maxMetadataListLen items of maxMetadataItemLen runes each.
// Other scalar types pass through untouched.
func TruncateMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	truncated := make(map[string]any, len(metadata))
	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			truncated[key] = truncateRunes(v, maxMetadataFieldLen)
		case []any:
			items := v
			if len(items) > maxMetadataListLen {
				items = items[:maxMetadataListLen]
			}
			capped := make([]any, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok {
					capped = append(capped, truncateRunes(s, maxMetadataItemLen))
				} else {
					capped = append(capped, item)
				}
			}
			truncated[key] = capped
		case []string:
			items := v
			if len(items) > maxMetadataListLen {
				items = items[:maxMetadataListLen]
			}
			capped := make([]string, 0, len(items))
			for _, item := range items {
				capped = append(capped, truncateRunes(item, maxMetadataItemLen))
			}
			truncated[key] = capped
		default:
			truncated[key] = value
		}
	}
	return truncated
}
