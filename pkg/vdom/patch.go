package vdom

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	OpSetText     PatchOp = 0x01 // Update text content
	OpSetAttr     PatchOp = 0x02 // Set/update attribute
	OpRemoveAttr  PatchOp = 0x03 // Remove attribute
	OpInsertNode  PatchOp = 0x04 // Insert new node under ParentRef at Index
	OpRemoveNode  PatchOp = 0x05 // Remove node
	OpMoveNode    PatchOp = 0x06 // Move node to new position under ParentRef
	OpReplaceNode PatchOp = 0x07 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case OpSetText:
		return "SetText"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpInsertNode:
		return "InsertNode"
	case OpRemoveNode:
		return "RemoveNode"
	case OpMoveNode:
		return "MoveNode"
	case OpReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch is a single structural edit against the backend's live tree.
// Patches carry enough positional information to apply in emitted order
// without consulting the virtual tree again.
type Patch struct {
	Op        PatchOp
	Ref       RefID  // Target node (SetText/SetAttr/RemoveAttr/Remove/Move/Replace)
	ParentRef RefID  // Parent for InsertNode/MoveNode
	Index     int    // Position for InsertNode/MoveNode
	Key       string // Attribute key for SetAttr/RemoveAttr
	Value     string // New text or attribute value
	Node      *VNode // Subtree payload for InsertNode/ReplaceNode
}
