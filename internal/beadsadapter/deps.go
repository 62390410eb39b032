package beadsadapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// DepNode is one entry of `bd dep tree <id> --json` output.
type DepNode struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Children []DepNode `json:"children,omitempty"`
}

// DepAdd records child as a parent-child dependent of parent.
func (a *Adapter) DepAdd(ctx context.Context, child, parent string) error {
	_, err := a.run(ctx, "depAdd", []string{"dep", "add", quote(child), quote(parent), "--type=parent-child"})
	return err
}

// DepRemove undoes a prior DepAdd.
func (a *Adapter) DepRemove(ctx context.Context, child, parent string) error {
	_, err := a.run(ctx, "depRemove", []string{"dep", "remove", quote(child), quote(parent)})
	return err
}

// DepTree returns the dependency tree rooted at id.
func (a *Adapter) DepTree(ctx context.Context, id string) (*DepNode, error) {
	out, err := a.run(ctx, "depTree", []string{"dep", "tree", quote(id), "--json"})
	if err != nil {
		return nil, err
	}
	var root DepNode
	if err := json.Unmarshal(out, &root); err != nil {
		return nil, fmt.Errorf("parsing bd dep tree output: %w", err)
	}
	return &root, nil
}

// CurrentParent walks DepTree looking for id's sole parent-child parent,
// used by Phase 3 re-parenting detection.
func (a *Adapter) CurrentParent(ctx context.Context, id string) (string, error) {
	root, err := a.DepTree(ctx, id)
	if err != nil {
		return "", err
	}
	for _, child := range root.Children {
		if child.Type == "parent-child" {
			return child.ID, nil
		}
	}
	return "", nil
}
