package sparse

import (
	"sort"

	"github.com/pkg/errors"
)

// Ordering selects the symmetric permutation applied before factorization.
type Ordering int

const (
	// OrderingNatural factorizes rows in their given order.
	OrderingNatural Ordering = iota
	// OrderingRCM applies reverse Cuthill-McKee over the block graph to reduce fill.
	OrderingRCM
)

func (o Ordering) String() string {
	switch o {
	case OrderingNatural:
		return "natural"
	case OrderingRCM:
		return "rcm"
	default:
		return "unknown"
	}
}

// ParseOrdering converts a configuration string to an Ordering. The empty string is natural.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "natural":
		return OrderingNatural, nil
	case "rcm":
		return OrderingRCM, nil
	default:
		return OrderingNatural, errors.Errorf("unknown ordering %q", s)
	}
}

// blockPermutation returns perm where perm[k] is the block placed at position k.
func blockPermutation(m *BlockMatrix, ordering Ordering) []int {
	if ordering == OrderingRCM {
		return reverseCuthillMcKee(m)
	}
	perm := make([]int, m.Blocks())
	for i := range perm {
		perm[i] = i
	}
	return perm
}

func reverseCuthillMcKee(m *BlockMatrix) []int {
	n := m.Blocks()
	neighbors := make([][]int, n)
	for i := range neighbors {
		neighbors[i] = m.Neighbors(i)
	}
	degree := func(i int) int { return len(neighbors[i]) }

	// Components are seeded from their lowest degree block, lowest index first on ties.
	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = i
	}
	sort.SliceStable(seeds, func(a, b int) bool { return degree(seeds[a]) < degree(seeds[b]) })

	visited := make([]bool, n)
	order := make([]int, 0, n)
	for _, seed := range seeds {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue := []int{seed}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)

			var next []int
			for _, nb := range neighbors[cur] {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
			sort.SliceStable(next, func(a, b int) bool { return degree(next[a]) < degree(next[b]) })
			queue = append(queue, next...)
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// expandPermutation turns a block permutation into a scalar one.
func expandPermutation(blockPerm []int, bs int) (perm, pinv []int) {
	n := len(blockPerm) * bs
	perm = make([]int, n)
	pinv = make([]int, n)
	for k, blk := range blockPerm {
		for r := 0; r < bs; r++ {
			perm[k*bs+r] = blk*bs + r
		}
	}
	for k, old := range perm {
		pinv[old] = k
	}
	return perm, pinv
}
