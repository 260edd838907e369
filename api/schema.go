package api

// TreeNode is one node of the relationship tree resource.
// Name encodes "<display name>-<roll number>"; the root usually carries
// RootName instead and stands for no individual.
type TreeNode struct {
	// Name of the individual and their roll number, joined by the last '-'.
	Name string `json:"name"`
	// Children introduced by this individual, in source order.
	Children []TreeNode `json:"children,omitempty"`
}

// RootName is the reserved node name meaning "no individual".
const RootName = "all"

// Resource names the two payloads a directory is assembled from.
type Resource string

const (
	ResourceRoster Resource = "roster"
	ResourceTree   Resource = "tree"
)
