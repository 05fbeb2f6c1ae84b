package operators

import (
	"fmt"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// DefaultJoinSuffix is appended to right-side column names that collide
// with a left-side name.
const DefaultJoinSuffix = "_right"

// Join combines two tables on a key column per the join type. The
// algorithm is a hash join: index the right table's key column, probe once
// per left row. When both sides have duplicate key values the output is
// the Cartesian product of the matching rows. Unmatched rows on a
// preserved side get null-filled counterpart columns.
//
// Null join keys compare equal to each other — a null left key matches
// every null right key. SQL semantics would treat null as matching
// nothing; this engine deliberately keeps the null-matches-null behavior
// its callers rely on.
//
// A right join runs as a left join with the operands swapped, so its
// output lists the right table's columns first and the suffix lands on
// colliding columns of the original left table.
func Join(left, right *table.Table, p query.JoinParams) (*table.Table, error) {
	suffix := p.Suffix
	if suffix == "" {
		suffix = DefaultJoinSuffix
	}

	switch p.Type {
	case query.CrossJoin:
		return crossJoin(left, right, suffix)
	case query.RightJoin:
		return hashJoin(right, left, p.RightOn, p.LeftOn, query.LeftJoin, suffix)
	case query.InnerJoin, query.LeftJoin, query.FullJoin:
		return hashJoin(left, right, p.LeftOn, p.RightOn, p.Type, suffix)
	}
	return nil, fmt.Errorf("join type %q: %w", p.Type, apperrors.ErrUnknownJoinType)
}

func hashJoin(left, right *table.Table, leftOn, rightOn string, typ query.JoinType, suffix string) (*table.Table, error) {
	leftKey, err := left.MustColumn(leftOn)
	if err != nil {
		return nil, err
	}
	rightKey, err := right.MustColumn(rightOn)
	if err != nil {
		return nil, err
	}

	// Build side: key -> row positions.
	index := make(map[string][]int, right.NumRows())
	var buf []byte
	for i := 0; i < right.NumRows(); i++ {
		buf = rightKey.KeyAppend(buf[:0], i)
		index[string(buf)] = append(index[string(buf)], i)
	}

	var leftIdx, rightIdx []int
	var rightMatched []bool
	if typ == query.FullJoin {
		rightMatched = make([]bool, right.NumRows())
	}

	for i := 0; i < left.NumRows(); i++ {
		buf = leftKey.KeyAppend(buf[:0], i)
		matches := index[string(buf)]
		if len(matches) == 0 {
			if typ != query.InnerJoin {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		for _, m := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, m)
			if rightMatched != nil {
				rightMatched[m] = true
			}
		}
	}

	if typ == query.FullJoin {
		for i, matched := range rightMatched {
			if !matched {
				leftIdx = append(leftIdx, -1)
				rightIdx = append(rightIdx, i)
			}
		}
	}

	return assembleJoin(left, right, leftIdx, rightIdx, suffix)
}

func crossJoin(left, right *table.Table, suffix string) (*table.Table, error) {
	n := left.NumRows() * right.NumRows()
	leftIdx := make([]int, 0, n)
	rightIdx := make([]int, 0, n)
	for i := 0; i < left.NumRows(); i++ {
		for j := 0; j < right.NumRows(); j++ {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}
	return assembleJoin(left, right, leftIdx, rightIdx, suffix)
}

func assembleJoin(left, right *table.Table, leftIdx, rightIdx []int, suffix string) (*table.Table, error) {
	cols := make([]*table.Column, 0, left.NumColumns()+right.NumColumns())
	for _, c := range left.Columns() {
		cols = append(cols, c.Gather(leftIdx))
	}
	for _, c := range right.Columns() {
		g := c.Gather(rightIdx)
		if _, collides := left.Column(c.Name()); collides {
			g = g.Rename(c.Name() + suffix)
		}
		cols = append(cols, g)
	}
	return table.New(cols...)
}
