package categories

import "sort"

// linkTree nests the flat node set under its roots and truncates the result
// to maxDepth. Depth limiting happens after linking, on the assembled tree,
// so the cut honours the requested render depth rather than any storage
// concern. A maxDepth of 0 yields no nodes.
func linkTree(flat []Category, counts map[int64]int, maxDepth int) []*TreeNode {
	if maxDepth <= 0 {
		return []*TreeNode{}
	}

	nodes := make(map[int64]*TreeNode, len(flat))
	for _, c := range flat {
		nodes[c.ID] = &TreeNode{Category: c, ProductCount: counts[c.ID], Children: []*TreeNode{}}
	}

	var roots []*TreeNode
	for _, c := range flat {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			// Orphan (parent filtered out or missing): surface as a root
			// rather than dropping it silently.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortSiblings(roots)
	for _, n := range nodes {
		sortSiblings(n.Children)
	}
	for _, root := range roots {
		truncate(root, maxDepth)
	}
	if roots == nil {
		roots = []*TreeNode{}
	}
	return roots
}

// truncate cuts children below the remaining depth. remaining counts the
// node itself, so remaining == 1 strips all children.
func truncate(node *TreeNode, remaining int) {
	if remaining <= 1 {
		node.Children = []*TreeNode{}
		return
	}
	for _, child := range node.Children {
		truncate(child, remaining-1)
	}
}

func sortSiblings(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		switch {
		case a.DisplayOrder != nil && b.DisplayOrder != nil && *a.DisplayOrder != *b.DisplayOrder:
			return *a.DisplayOrder < *b.DisplayOrder
		case a.DisplayOrder != nil && b.DisplayOrder == nil:
			return true
		case a.DisplayOrder == nil && b.DisplayOrder != nil:
			return false
		}
		return a.Name < b.Name
	})
}
