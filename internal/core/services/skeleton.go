package services

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// PartitionPolicy picks the middle region of an n-chapter list as two cut
// indices a < b: front is [0,a), middle is [a,b), back is [b,n).
type PartitionPolicy interface {
	Cuts(n int) (a, b int)
}

// FixedPartition is the deterministic default. For n >= 3 a quarter of the
// chapters (at least one) sits on each side of the middle. Two chapters give
// an empty front; a single chapter is all middle.
type FixedPartition struct{}

// Cuts implements PartitionPolicy.
func (FixedPartition) Cuts(n int) (a, b int) {
	switch {
	case n <= 0:
		return 0, 0
	case n == 1:
		return 0, 1
	case n == 2:
		return 0, 1
	}
	k := max(1, n/4)
	return k, n - k
}

// RandomPartition picks two distinct random cuts, reproducibly for a seed.
type RandomPartition struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPartition creates a seeded random policy.
func NewRandomPartition(seed uint64) *RandomPartition {
	return &RandomPartition{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Cuts implements PartitionPolicy.
func (p *RandomPartition) Cuts(n int) (a, b int) {
	if n <= 1 {
		return FixedPartition{}.Cuts(n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a = p.rng.IntN(n - 1)
	b = a + 1 + p.rng.IntN(n-1-a)
	return a, b
}

// SkeletonDistributor spreads a leaf budget over chapters and builds the
// blank mold each chapter is generated into.
type SkeletonDistributor struct {
	policy PartitionPolicy
}

// NewSkeletonDistributor creates a distributor. A nil policy means FixedPartition.
func NewSkeletonDistributor(policy PartitionPolicy) *SkeletonDistributor {
	if policy == nil {
		policy = FixedPartition{}
	}
	return &SkeletonDistributor{policy: policy}
}

// Plan returns one mold per title, in title order.
func (d *SkeletonDistributor) Plan(titles []string, target int) ([]domain.SkeletonMold, error) {
	n := len(titles)
	if n == 0 {
		return nil, fmt.Errorf("plan skeleton: no chapters: %w", domain.ErrInvalidInput)
	}

	a, b := d.policy.Cuts(n)
	counts := DistributeLeaves(n, target, a, b)
	logger.Debug("Skeleton: %d chapters, target %d, middle [%d,%d), leaves %v", n, target, a, b, counts)

	molds := make([]domain.SkeletonMold, n)
	for i, title := range titles {
		molds[i] = BuildMold(i, title, counts[i])
	}
	return molds, nil
}

// DistributeLeaves assigns leaf counts to n chapters whose middle region is
// [a,b). Every chapter gets at least one leaf. The rest of target is split
// by weight (2 for middle chapters, 1 otherwise) using largest remainders;
// ties favour middle chapters, then earlier chapters. When target < n each
// chapter still gets one leaf.
func DistributeLeaves(n, target, a, b int) []int {
	if n <= 0 {
		return nil
	}
	counts := make([]int, n)
	for i := range counts {
		counts[i] = 1
	}
	remaining := target - n
	if remaining <= 0 {
		return counts
	}

	isMiddle := func(i int) bool { return i >= a && i < b }
	weight := func(i int) int {
		if isMiddle(i) {
			return 2
		}
		return 1
	}

	total := 0
	for i := range n {
		total += weight(i)
	}

	type share struct {
		index  int
		rem    int
		middle bool
	}
	shares := make([]share, n)
	given := 0
	for i := range n {
		q := remaining * weight(i)
		counts[i] += q / total
		given += q / total
		shares[i] = share{index: i, rem: q % total, middle: isMiddle(i)}
	}

	sort.SliceStable(shares, func(x, y int) bool {
		if shares[x].rem != shares[y].rem {
			return shares[x].rem > shares[y].rem
		}
		if shares[x].middle != shares[y].middle {
			return shares[x].middle
		}
		return shares[x].index < shares[y].index
	})
	for j := 0; j < remaining-given; j++ {
		counts[shares[j].index]++
	}
	return counts
}

// groupingsFor returns how many second-level nodes hold the given leaves.
func groupingsFor(leaves int) int {
	switch {
	case leaves <= 1:
		return 1
	case leaves <= 4:
		return 2
	default:
		return 3
	}
}

// BuildMold builds the blank three-level tree for one chapter.
// IDs are 1-based dotted positions.
func BuildMold(index int, title string, leaves int) domain.SkeletonMold {
	leaves = max(leaves, 1)
	chapterID := strconv.Itoa(index + 1)
	root := &domain.OutlineNode{ID: chapterID, Title: title}

	groups := groupingsFor(leaves)
	per, extra := leaves/groups, leaves%groups
	for g := range groups {
		n := per
		if g < extra {
			n++
		}
		groupID := chapterID + "." + strconv.Itoa(g+1)
		group := &domain.OutlineNode{ID: groupID, Children: make([]*domain.OutlineNode, n)}
		for l := range n {
			group.Children[l] = &domain.OutlineNode{ID: groupID + "." + strconv.Itoa(l+1)}
		}
		root.Children = append(root.Children, group)
	}

	return domain.SkeletonMold{Index: index, LeafSlots: leaves, Root: root}
}
