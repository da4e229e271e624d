package service

import (
	"sort"
	"strings"

	"marketplace-service/internal/domain"
)

// CategoryNode is a category placed in its seller's tree.
type CategoryNode struct {
	domain.Category
	Depth int `json:"depth"`
}

// ParentChoice is an option of a parent-category selector.
type ParentChoice struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// buildCategoryTree orders categories depth-first, siblings by id. A category
// whose parent is not in the set is a root. Members of a cycle that no root
// reaches are emitted as roots so nothing is dropped.
func buildCategoryTree(categories []domain.Category) []CategoryNode {
	byID := make(map[int64]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	children := make(map[int64][]int64)
	var roots []int64
	for _, c := range categories {
		if c.ParentID == nil || *c.ParentID == c.ID {
			roots = append(roots, c.ID)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			roots = append(roots, c.ID)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c.ID)
	}
	sortIDs(roots)
	for _, ids := range children {
		sortIDs(ids)
	}

	nodes := make([]CategoryNode, 0, len(categories))
	visited := make(map[int64]bool, len(categories))
	var walk func(id int64, depth int)
	walk = func(id int64, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		nodes = append(nodes, CategoryNode{Category: byID[id], Depth: depth})
		for _, child := range children[id] {
			walk(child, depth+1)
		}
	}
	for _, id := range roots {
		walk(id, 0)
	}
	if len(nodes) < len(byID) {
		rest := make([]int64, 0, len(byID)-len(nodes))
		for id := range byID {
			if !visited[id] {
				rest = append(rest, id)
			}
		}
		sortIDs(rest)
		for _, id := range rest {
			walk(id, 0)
		}
	}
	return nodes
}

// subtree returns id and every category below it.
func subtree(categories []domain.Category, id int64) map[int64]bool {
	children := make(map[int64][]int64)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	seen := map[int64]bool{id: true}
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return seen
}

func parentChoices(categories []domain.Category, excludeID *int64) []ParentChoice {
	var excluded map[int64]bool
	if excludeID != nil {
		excluded = subtree(categories, *excludeID)
	}
	choices := []ParentChoice{}
	for _, node := range buildCategoryTree(categories) {
		if excluded[node.ID] {
			continue
		}
		choices = append(choices, ParentChoice{
			ID:          node.ID,
			DisplayName: strings.Repeat("- ", node.Depth) + node.Name,
		})
	}
	return choices
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
