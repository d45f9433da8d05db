package vdom

import "fmt"

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetAttr      PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr   PatchOp = 0x03 // Remove attribute
	PatchInsertNode   PatchOp = 0x04 // Insert node (portal mount)
	PatchRemoveNode   PatchOp = 0x05 // Remove node
	PatchFocus        PatchOp = 0x0B // Focus element
	PatchBlur         PatchOp = 0x0C // Drop focus
	PatchSetInnerHTML PatchOp = 0x0D // Restore inner markup
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchFocus:
		return "Focus"
	case PatchBlur:
		return "Blur"
	case PatchSetInnerHTML:
		return "SetInnerHTML"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the op by name for JSON patch streams.
func (op PatchOp) MarshalText() ([]byte, error) {
	s := op.String()
	if s == "Unknown" {
		return nil, fmt.Errorf("vdom: unknown patch op 0x%02x", uint8(op))
	}
	return []byte(s), nil
}

// Patch represents a single DOM operation that was applied to a document.
type Patch struct {
	Op       PatchOp `json:"op"`
	HID      string  `json:"hid,omitempty"`
	Key      string  `json:"key,omitempty"`
	Value    string  `json:"value,omitempty"`
	ParentID string  `json:"parent,omitempty"`
}

// String renders the patch for logs and test failures.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetAttr:
		return fmt.Sprintf("%s %s %s=%q", p.Op, p.HID, p.Key, p.Value)
	case PatchRemoveAttr:
		return fmt.Sprintf("%s %s %s", p.Op, p.HID, p.Key)
	case PatchInsertNode:
		return fmt.Sprintf("%s %s into %s", p.Op, p.HID, p.ParentID)
	default:
		return fmt.Sprintf("%s %s", p.Op, p.HID)
	}
}
