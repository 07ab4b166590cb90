// Package rollup turns flat ledger rows and the chart of accounts into a balance tree.
//
// Accounts are loaded into an arena indexed by position with child index lists,
// and a single post-order pass adds each child's totals into its parent.
package rollup

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
)

// Period bounds a computation. Nil Start means since inception (no opening balance);
// nil End means through now. End is inclusive to the end of its day.
type Period struct {
	Start *time.Time
	End   *time.Time
}

// Balance holds opening and movement totals per side.
type Balance struct {
	OpeningDebit   decimal.Decimal
	OpeningCredit  decimal.Decimal
	MovementDebit  decimal.Decimal
	MovementCredit decimal.Decimal
}

// Opening is the debit-positive opening balance.
func (b Balance) Opening() decimal.Decimal { return b.OpeningDebit.Sub(b.OpeningCredit) }

// Movement is the debit-positive movement within the period.
func (b Balance) Movement() decimal.Decimal { return b.MovementDebit.Sub(b.MovementCredit) }

// Closing is opening plus movement, debit-positive.
func (b Balance) Closing() decimal.Decimal { return b.Opening().Add(b.Movement()) }

// Add returns the side-wise sum of b and o.
func (b Balance) Add(o Balance) Balance {
	return Balance{
		OpeningDebit:   b.OpeningDebit.Add(o.OpeningDebit),
		OpeningCredit:  b.OpeningCredit.Add(o.OpeningCredit),
		MovementDebit:  b.MovementDebit.Add(o.MovementDebit),
		MovementCredit: b.MovementCredit.Add(o.MovementCredit),
	}
}

// Node is one account in the tree. Own counts only the account's entries;
// Total adds every active descendant.
type Node struct {
	Account  ledger.Account
	Own      Balance
	Total    Balance
	Depth    int
	parent   int
	children []int
	tree     *Tree
}

// Children returns the node's children ordered by code.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	for i, c := range n.children {
		out[i] = &n.tree.nodes[c]
	}
	return out
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	if n.parent < 0 {
		return nil
	}
	return &n.tree.nodes[n.parent]
}

// Tree is the computed balance forest.
type Tree struct {
	Period Period
	nodes  []Node
	index  map[string]int
	roots  []int
}

// Compute builds the balance tree for the active accounts and active entries.
// Entries dated after the period end, or on unknown or inactive accounts, are ignored.
// A cycle among parent links yields a ConfigurationError.
func Compute(accounts []ledger.Account, entries []ledger.LedgerEntry, p Period) (*Tree, error) {
	t := &Tree{Period: p, index: make(map[string]int, len(accounts))}
	for _, a := range accounts {
		if !a.Active() {
			continue
		}
		if _, dup := t.index[a.Code]; dup {
			return nil, &errs.ConfigurationError{Reason: "duplicate account code " + a.Code}
		}
		t.index[a.Code] = len(t.nodes)
		t.nodes = append(t.nodes, Node{Account: a, parent: -1, tree: t})
	}
	t.link()
	if err := t.sum(entries); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) link() {
	byID := make(map[uuid.UUID]int, len(t.nodes))
	for i := range t.nodes {
		byID[t.nodes[i].Account.ID] = i
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.Account.ParentID != nil {
			if p, ok := byID[*n.Account.ParentID]; ok && p != i {
				n.parent = p
				t.nodes[p].children = append(t.nodes[p].children, i)
				continue
			}
		}
		t.roots = append(t.roots, i)
	}
	sortByCode(t, t.roots)
	for i := range t.nodes {
		sortByCode(t, t.nodes[i].children)
	}
}

func sortByCode(t *Tree, idx []int) {
	sort.Slice(idx, func(i, j int) bool {
		return t.nodes[idx[i]].Account.Code < t.nodes[idx[j]].Account.Code
	})
}

func (t *Tree) sum(entries []ledger.LedgerEntry) error {
	start, end := bounds(t.Period)
	for _, e := range entries {
		if !e.Active() {
			continue
		}
		i, ok := t.index[e.AccountCode]
		if !ok {
			continue
		}
		if end != nil && !e.Date.Before(*end) {
			continue
		}
		amt := ledger.Decimal(e.Amount)
		b := &t.nodes[i].Own
		opening := start != nil && e.Date.Before(*start)
		switch {
		case opening && e.Side == ledger.SideDebit:
			b.OpeningDebit = b.OpeningDebit.Add(amt)
		case opening:
			b.OpeningCredit = b.OpeningCredit.Add(amt)
		case e.Side == ledger.SideDebit:
			b.MovementDebit = b.MovementDebit.Add(amt)
		default:
			b.MovementCredit = b.MovementCredit.Add(amt)
		}
	}

	// Iterative post-order from the roots. Nodes on a parent cycle are never
	// reachable from a root, so an incomplete visit means a cycle.
	visited := 0
	type frame struct {
		node, next, depth int
	}
	for _, r := range t.roots {
		stack := []frame{{node: r}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := &t.nodes[top.node]
			if top.next == 0 {
				n.Depth = top.depth
				n.Total = n.Own
			}
			if top.next < len(n.children) {
				c := n.children[top.next]
				top.next++
				stack = append(stack, frame{node: c, depth: top.depth + 1})
				continue
			}
			visited++
			stack = stack[:len(stack)-1]
			if n.parent >= 0 {
				p := &t.nodes[n.parent]
				p.Total = p.Total.Add(n.Total)
			}
		}
	}
	if visited != len(t.nodes) {
		for i := range t.nodes {
			if t.onCycle(i) {
				return &errs.ConfigurationError{Reason: "cycle in account hierarchy at " + t.nodes[i].Account.Code}
			}
		}
		return &errs.ConfigurationError{Reason: "cycle in account hierarchy"}
	}
	return nil
}

func (t *Tree) onCycle(i int) bool {
	seen := make(map[int]bool)
	for cur := i; cur >= 0; cur = t.nodes[cur].parent {
		if seen[cur] {
			return true
		}
		seen[cur] = true
	}
	return false
}

// bounds truncates the period to whole days: entries before start are opening,
// entries on or after end are excluded.
func bounds(p Period) (start, end *time.Time) {
	if p.Start != nil {
		s := startOfDay(*p.Start)
		start = &s
	}
	if p.End != nil {
		e := startOfDay(*p.End).AddDate(0, 0, 1)
		end = &e
	}
	return start, end
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Roots returns the top-level nodes ordered by code.
func (t *Tree) Roots() []*Node {
	out := make([]*Node, len(t.roots))
	for i, r := range t.roots {
		out[i] = &t.nodes[r]
	}
	return out
}

// Node looks up an account by code.
func (t *Tree) Node(code string) (*Node, bool) {
	i, ok := t.index[code]
	if !ok {
		return nil, false
	}
	return &t.nodes[i], true
}

// Walk visits every node in pre-order. Returning false skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var visit func(i int)
	visit = func(i int) {
		if !fn(&t.nodes[i]) {
			return
		}
		for _, c := range t.nodes[i].children {
			visit(c)
		}
	}
	for _, r := range t.roots {
		visit(r)
	}
}

// Len is the number of accounts in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Balances returns the rolled-up balance of every account keyed by code.
func (t *Tree) Balances() map[string]Balance {
	out := make(map[string]Balance, len(t.nodes))
	for _, n := range t.nodes {
		out[n.Account.Code] = n.Total
	}
	return out
}

// Contains reports whether code is ancestorCode or one of its descendants.
func (t *Tree) Contains(ancestorCode, code string) bool {
	a, ok := t.index[ancestorCode]
	if !ok {
		return false
	}
	i, ok := t.index[code]
	for ok && i >= 0 {
		if i == a {
			return true
		}
		i = t.nodes[i].parent
	}
	return false
}
