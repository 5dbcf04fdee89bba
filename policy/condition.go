// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package policy

import (
	"cmp"
	"fmt"
	"slices"
)

// SpendingCondition pairs a signature requirement with a timelock.
type SpendingCondition struct {
	Sigs     SigsReq
	Timelock TimelockReq
}

// Compare orders conditions by signature requirement and then timelock.
func (s SpendingCondition) Compare(o SpendingCondition) int {
	if c := s.Sigs.Compare(o.Sigs); c != 0 {
		return c
	}

	return s.Timelock.Compare(o.Timelock)
}

// String describes the condition.
func (s SpendingCondition) String() string {
	return fmt.Sprintf("%v %v", s.Sigs, s.Timelock)
}

// ConditionKind is the kind of a spending condition.
type ConditionKind uint8

const (
	// ConditionSigs is a condition of signatures and a timelock.
	ConditionSigs ConditionKind = 0
)

// Condition is a spending condition tagged with its kind.
type Condition struct {
	Kind ConditionKind
	Sigs SpendingCondition
}

// Sigs wraps a signature condition.
func Sigs(sigs SigsReq, timelock TimelockReq) Condition {
	return Condition{
		Kind: ConditionSigs,
		Sigs: SpendingCondition{Sigs: sigs, Timelock: timelock},
	}
}

// Compare orders conditions by kind and then by content.
func (c Condition) Compare(o Condition) int {
	if r := cmp.Compare(c.Kind, o.Kind); r != 0 {
		return r
	}

	return c.Sigs.Compare(o.Sigs)
}

// String describes the condition.
func (c Condition) String() string {
	return c.Sigs.String()
}

// DepthCondition is a condition at its position in the depth-first ordered
// list of alternatives.
type DepthCondition struct {
	Depth     uint8
	Condition Condition
}

// Compare orders by depth and then condition.
func (d DepthCondition) Compare(o DepthCondition) int {
	if c := cmp.Compare(d.Depth, o.Depth); c != 0 {
		return c
	}

	return d.Condition.Compare(o.Condition)
}

// String describes the condition with its depth.
func (d DepthCondition) String() string {
	return fmt.Sprintf("%d: %v", d.Depth, d.Condition)
}

// SortConditions sorts the conditions in place by depth and condition.
func SortConditions(conds []DepthCondition) {
	slices.SortFunc(conds, DepthCondition.Compare)
}

// ContainsCondition reports whether the sorted set holds the condition.
func ContainsCondition(conds []DepthCondition, cond DepthCondition) bool {
	_, found := slices.BinarySearchFunc(conds, cond, DepthCondition.Compare)
	return found
}
