package opentime

// Merge unions prior and fresh by id. The result keeps prior order, replaces a prior
// item in place when fresh carries the same id, and appends fresh-only items in fresh
// order. Unmodelled extension keys on a replaced item survive unless fresh sets them.
func Merge(prior, fresh []Item) []Item {
	out := make([]Item, 0, len(prior)+len(fresh))
	index := make(map[string]int, len(prior)+len(fresh))
	for _, it := range prior {
		if i, ok := index[it.ID]; ok {
			out[i] = it
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	for _, it := range fresh {
		i, ok := index[it.ID]
		if !ok {
			index[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		it.Extra = carryExtensions(out[i].Extra, it.Extra)
		out[i] = it
	}
	return out
}

func carryExtensions(old, fresh []Extension) []Extension {
	if len(old) == 0 {
		return fresh
	}
	merged := make([]Extension, 0, len(old)+len(fresh))
	merged = append(merged, fresh...)
	for _, ext := range old {
		if !hasExtension(fresh, ext.Key) {
			merged = append(merged, ext)
		}
	}
	return merged
}

func hasExtension(exts []Extension, key string) bool {
	for _, e := range exts {
		if e.Key == key {
			return true
		}
	}
	return false
}
