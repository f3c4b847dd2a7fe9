// Copyright 2019 - 2025 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package data contains the order set record, the entities it references and
// the YAML definition format order sets are authored in.
package data

import (
	"sort"
	"time"
)

// Identifiable is implemented by entities that carry an integer identity
// assigned by the store they live in.
type Identifiable interface {
	ID() int
	SetID(id int)
}

// OrderSet pre-defines a set of orders in order to make ordering easier. A
// clinician picks from the list instead of entering common orders or groups
// of orders by hand.
//
// An order set is metadata only. Nothing is ordered for any patient until a
// clinician selects members from it. Members can be orderable concepts,
// order templates or other order sets.
//
// OrderSet does no validation of its own. Every setter stores its argument
// unconditionally; see Validate for the checks a caller may apply. An
// OrderSet is not safe for concurrent use.
type OrderSet struct {
	Metadata

	orderSetID   int
	concept      *Concept
	title        string
	comment      string
	operator     Operator
	reviewedBy   *User
	dateReviewed time.Time
	members      []*Member
}

var _ Identifiable = (*OrderSet)(nil)

// NewOrderSet creates an order set with the given id. The zero value of
// OrderSet is an order set without id.
func NewOrderSet(orderSetID int) *OrderSet {
	s := &OrderSet{}
	s.SetOrderSetID(orderSetID)
	return s
}

// OrderSetID returns the id of the order set. Zero means no id was assigned
// yet.
func (s *OrderSet) OrderSetID() int {
	return s.orderSetID
}

func (s *OrderSet) SetOrderSetID(orderSetID int) {
	s.orderSetID = orderSetID
}

// ID is an alias of OrderSetID.
func (s *OrderSet) ID() int {
	return s.OrderSetID()
}

// SetID is an alias of SetOrderSetID.
func (s *OrderSet) SetID(id int) {
	s.SetOrderSetID(id)
}

// Concept returns the concept labelling the order set or nil.
func (s *OrderSet) Concept() *Concept {
	return s.concept
}

func (s *OrderSet) SetConcept(concept *Concept) {
	s.concept = concept
}

func (s *OrderSet) Title() string {
	return s.title
}

func (s *OrderSet) SetTitle(title string) {
	s.title = title
}

func (s *OrderSet) Comment() string {
	return s.comment
}

func (s *OrderSet) SetComment(comment string) {
	s.comment = comment
}

// Operator returns how members of the set can be selected.
func (s *OrderSet) Operator() Operator {
	return s.operator
}

// SetOperator stores the operator as given. Values other than OperatorAny,
// OperatorOne and OperatorAll are accepted.
func (s *OrderSet) SetOperator(operator Operator) {
	s.operator = operator
}

// ReviewedBy returns the user who last reviewed the order set or nil.
func (s *OrderSet) ReviewedBy() *User {
	return s.reviewedBy
}

func (s *OrderSet) SetReviewedBy(reviewedBy *User) {
	s.reviewedBy = reviewedBy
}

// DateReviewed returns the time of the last review. The zero time means the
// order set was never reviewed.
func (s *OrderSet) DateReviewed() time.Time {
	return s.dateReviewed
}

func (s *OrderSet) SetDateReviewed(dateReviewed time.Time) {
	s.dateReviewed = dateReviewed
}

// MarkReviewed records a review by the given user at the given time.
func (s *OrderSet) MarkReviewed(by *User, at time.Time) {
	s.SetReviewedBy(by)
	s.SetDateReviewed(at)
}

// Members returns the slice of members the order set holds. It is the same
// slice that was passed to SetMembers, not a copy.
func (s *OrderSet) Members() []*Member {
	return s.members
}

// SetMembers stores members without copying. Element writes the caller does
// on the slice afterwards are visible through Members. Appends which
// reallocate the caller's slice are not.
func (s *OrderSet) SetMembers(members []*Member) {
	s.members = members
}

// SortedMembers returns a copy of the members ordered by their sort weight.
// Members with equal weight keep their relative order.
func (s *OrderSet) SortedMembers() []*Member {
	sorted := make([]*Member, len(s.members))
	copy(sorted, s.members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortWeight < sorted[j].SortWeight
	})
	return sorted
}
