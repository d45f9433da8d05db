package vdom

import (
	"fmt"
	"sort"
	"strconv"
)

// DiffProps compares the attribute props of two renders of the same element
// and returns the patches that turn prev into next. Event handler and
// internal props are skipped. Patches are ordered by key for determinism.
func DiffProps(hid string, prev, next Props) []Patch {
	var patches []Patch

	keys := make([]string, 0, len(prev)+len(next))
	seen := make(map[string]bool, len(prev)+len(next))
	for k := range prev {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range next {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if IsInternalProp(key) {
			continue
		}
		prevVal, hadPrev := prev[key]
		nextVal, hasNext := next[key]
		switch {
		case hadPrev && !hasNext:
			patches = append(patches, Patch{Op: PatchRemoveAttr, HID: hid, Key: key})
		case !hadPrev && hasNext:
			patches = append(patches, Patch{Op: PatchSetAttr, HID: hid, Key: key, Value: PropToString(nextVal)})
		case !propsEqual(prevVal, nextVal):
			patches = append(patches, Patch{Op: PatchSetAttr, HID: hid, Key: key, Value: PropToString(nextVal)})
		}
	}
	return patches
}

// propsEqual compares two prop values for equality. Values of different
// types are equal when they render to the same attribute text.
func propsEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	}
	return PropToString(a) == PropToString(b)
}

// PropToString converts a prop value to its attribute text.
func PropToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
