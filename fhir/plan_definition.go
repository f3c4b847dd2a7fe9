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

package fhir

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/samply/ordersetctl/data"
)

const (
	PlanDefinitionTypeSystem   = "http://terminology.hl7.org/CodeSystem/plan-definition-type"
	PlanDefinitionTypeOrderSet = "order-set"
	uuidSystem                 = "urn:ietf:rfc:3986"
	dateLayout                 = "2006-01-02"
)

// PlanDefinition creates a PlanDefinition of type order-set from s.
//
// The members of s end up as sub actions of a single group action which
// carries the selection behavior of the operator. Nested order sets become
// nested group actions.
func PlanDefinition(s *data.OrderSet, canonicalURL string) (fm.PlanDefinition, error) {
	path := map[*data.OrderSet]bool{s: true}
	action, err := groupAction(s, path)
	if err != nil {
		return fm.PlanDefinition{}, err
	}

	planDefinition := fm.PlanDefinition{
		Type: &fm.CodeableConcept{
			Coding: []fm.Coding{
				createCoding(PlanDefinitionTypeSystem, PlanDefinitionTypeOrderSet),
			},
		},
		Status: fm.PublicationStatusActive,
		Action: []fm.PlanDefinitionAction{action},
	}
	if s.ID() != 0 {
		planDefinition.Id = stringPtr(strconv.Itoa(s.ID()))
	}
	if canonicalURL != "" {
		planDefinition.Url = &canonicalURL
	}
	if s.UUID != uuid.Nil {
		planDefinition.Identifier = []fm.Identifier{{
			System: stringPtr(uuidSystem),
			Value:  stringPtr("urn:uuid:" + s.UUID.String()),
		}}
	}
	if s.Retired {
		planDefinition.Status = fm.PublicationStatusRetired
	}
	planDefinition.Name = optionalString(s.Name)
	planDefinition.Description = optionalString(s.Description)
	planDefinition.Title = optionalString(s.Title())
	planDefinition.Usage = optionalString(s.Comment())
	if concept := s.Concept(); concept != nil {
		planDefinition.Topic = []fm.CodeableConcept{codeableConcept(concept)}
	}
	if reviewer := s.ReviewedBy(); reviewer != nil {
		planDefinition.Reviewer = []fm.ContactDetail{{Name: optionalString(reviewer.DisplayName())}}
	}
	if !s.DateReviewed().IsZero() {
		planDefinition.LastReviewDate = stringPtr(s.DateReviewed().Format(dateLayout))
	}
	return planDefinition, nil
}

func groupAction(s *data.OrderSet, path map[*data.OrderSet]bool) (fm.PlanDefinitionAction, error) {
	behavior, err := selectionBehavior(s.Operator())
	if err != nil {
		return fm.PlanDefinitionAction{}, err
	}
	groupingBehavior := fm.ActionGroupingBehaviorLogicalGroup
	action := fm.PlanDefinitionAction{
		Title:             optionalString(s.Title()),
		Description:       optionalString(s.Comment()),
		GroupingBehavior:  &groupingBehavior,
		SelectionBehavior: &behavior,
		Action:            make([]fm.PlanDefinitionAction, 0, len(s.Members())),
	}
	if concept := s.Concept(); concept != nil {
		action.Code = []fm.CodeableConcept{codeableConcept(concept)}
	}
	for i, member := range s.SortedMembers() {
		memberAction, err := createMemberAction(member, path)
		if err != nil {
			return fm.PlanDefinitionAction{}, fmt.Errorf("member[%d]: %w", i, err)
		}
		action.Action = append(action.Action, memberAction)
	}
	return action, nil
}

func createMemberAction(m *data.Member, path map[*data.OrderSet]bool) (fm.PlanDefinitionAction, error) {
	if m == nil {
		return fm.PlanDefinitionAction{}, errors.New("missing member")
	}
	var action fm.PlanDefinitionAction
	switch m.Kind {
	case data.MemberKindConcept:
		if m.Concept == nil {
			return action, errors.New("missing concept")
		}
		action.Code = []fm.CodeableConcept{codeableConcept(m.Concept)}
	case data.MemberKindTemplate:
		if m.Template == "" {
			return action, errors.New("missing template")
		}
		action.TextEquivalent = stringPtr(m.Template)
	case data.MemberKindOrderSet:
		if m.OrderSet == nil {
			return action, errors.New("missing order set")
		}
		if path[m.OrderSet] {
			return action, data.ErrCycle
		}
		path[m.OrderSet] = true
		nested, err := groupAction(m.OrderSet, path)
		delete(path, m.OrderSet)
		if err != nil {
			return action, err
		}
		action = nested
	default:
		return action, fmt.Errorf("unknown kind %q", string(m.Kind))
	}
	if m.ID != 0 {
		action.Id = stringPtr(strconv.Itoa(m.ID))
	}
	// the group action of a nested order set keeps its own title and comment
	if m.Title != "" && action.Title == nil {
		action.Title = stringPtr(m.Title)
	}
	if m.Comment != "" && action.Description == nil {
		action.Description = stringPtr(m.Comment)
	}
	return action, nil
}

func selectionBehavior(operator data.Operator) (fm.ActionSelectionBehavior, error) {
	switch operator {
	case data.OperatorAny:
		return fm.ActionSelectionBehaviorAny, nil
	case data.OperatorOne:
		return fm.ActionSelectionBehaviorExactlyOne, nil
	case data.OperatorAll:
		return fm.ActionSelectionBehaviorAllOrNone, nil
	default:
		return 0, fmt.Errorf("%w %q", data.ErrInvalidOperator, string(operator))
	}
}

func operatorOf(selectionBehavior *fm.ActionSelectionBehavior) data.Operator {
	if selectionBehavior == nil {
		return ""
	}
	switch *selectionBehavior {
	case fm.ActionSelectionBehaviorAny, fm.ActionSelectionBehaviorOneOrMore:
		return data.OperatorAny
	case fm.ActionSelectionBehaviorExactlyOne, fm.ActionSelectionBehaviorAtMostOne:
		return data.OperatorOne
	case fm.ActionSelectionBehaviorAll, fm.ActionSelectionBehaviorAllOrNone:
		return data.OperatorAll
	default:
		return ""
	}
}

// OrderSetOf creates an order set from a PlanDefinition. It is the reverse of
// PlanDefinition for everything PlanDefinition writes. Selection behaviors
// without an exact operator are mapped to the closest one.
func OrderSetOf(planDefinition fm.PlanDefinition) (*data.OrderSet, error) {
	s := &data.OrderSet{}
	if planDefinition.Id != nil {
		id, err := strconv.Atoi(*planDefinition.Id)
		if err != nil {
			return nil, fmt.Errorf("non-numeric id %q", *planDefinition.Id)
		}
		s.SetID(id)
	}
	for _, identifier := range planDefinition.Identifier {
		if identifier.Value == nil {
			continue
		}
		if id, err := uuid.Parse(*identifier.Value); err == nil {
			s.UUID = id
			break
		}
	}
	s.Name = value(planDefinition.Name)
	s.Description = value(planDefinition.Description)
	s.Retired = planDefinition.Status == fm.PublicationStatusRetired
	s.SetTitle(value(planDefinition.Title))
	s.SetComment(value(planDefinition.Usage))
	if len(planDefinition.Topic) > 0 {
		s.SetConcept(conceptOf(planDefinition.Topic[0]))
	}
	if len(planDefinition.Reviewer) > 0 && planDefinition.Reviewer[0].Name != nil {
		s.SetReviewedBy(&data.User{Name: *planDefinition.Reviewer[0].Name})
	}
	if planDefinition.LastReviewDate != nil {
		reviewed, err := parseDate(*planDefinition.LastReviewDate)
		if err != nil {
			return nil, fmt.Errorf("invalid lastReviewDate: %w", err)
		}
		s.SetDateReviewed(reviewed)
	}
	if len(planDefinition.Action) > 0 {
		s.SetOperator(operatorOf(planDefinition.Action[0].SelectionBehavior))
		members, err := membersOf(planDefinition.Action[0].Action)
		if err != nil {
			return nil, err
		}
		s.SetMembers(members)
	}
	return s, nil
}

func membersOf(actions []fm.PlanDefinitionAction) ([]*data.Member, error) {
	members := make([]*data.Member, 0, len(actions))
	for i, action := range actions {
		member := &data.Member{
			Title:      value(action.Title),
			Comment:    value(action.Description),
			SortWeight: i,
		}
		if action.Id != nil {
			if id, err := strconv.Atoi(*action.Id); err == nil {
				member.ID = id
			}
		}
		switch {
		case len(action.Action) > 0 || action.SelectionBehavior != nil:
			nested := &data.OrderSet{}
			nested.SetTitle(value(action.Title))
			nested.SetComment(value(action.Description))
			nested.SetOperator(operatorOf(action.SelectionBehavior))
			if len(action.Code) > 0 {
				nested.SetConcept(conceptOf(action.Code[0]))
			}
			nestedMembers, err := membersOf(action.Action)
			if err != nil {
				return nil, fmt.Errorf("member[%d]: %w", i, err)
			}
			nested.SetMembers(nestedMembers)
			member.Kind = data.MemberKindOrderSet
			member.OrderSet = nested
		case len(action.Code) > 0:
			member.Kind = data.MemberKindConcept
			member.Concept = conceptOf(action.Code[0])
		case action.TextEquivalent != nil:
			member.Kind = data.MemberKindTemplate
			member.Template = *action.TextEquivalent
		case action.DefinitionCanonical != nil:
			member.Kind = data.MemberKindTemplate
			member.Template = *action.DefinitionCanonical
		case action.DefinitionUri != nil:
			member.Kind = data.MemberKindTemplate
			member.Template = *action.DefinitionUri
		default:
			return nil, fmt.Errorf("member[%d]: action has neither code, text, definition nor sub actions", i)
		}
		members = append(members, member)
	}
	return members, nil
}

// parseDate parses a FHIR date which may be partial, like 2024-03 or 2024.
func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range []string{dateLayout, "2006-01", "2006"} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func codeableConcept(concept *data.Concept) fm.CodeableConcept {
	codeableConcept := fm.CodeableConcept{Text: optionalString(concept.Name)}
	if concept.Code != "" {
		coding := fm.Coding{
			System:  optionalString(concept.System),
			Code:    optionalString(concept.Code),
			Display: optionalString(concept.Name),
		}
		codeableConcept.Coding = []fm.Coding{coding}
	}
	return codeableConcept
}

func conceptOf(codeableConcept fm.CodeableConcept) *data.Concept {
	concept := &data.Concept{Name: value(codeableConcept.Text)}
	if len(codeableConcept.Coding) > 0 {
		coding := codeableConcept.Coding[0]
		concept.System = value(coding.System)
		concept.Code = value(coding.Code)
		if concept.Name == "" {
			concept.Name = value(coding.Display)
		}
	}
	return concept
}

func createCoding(system string, code string) fm.Coding {
	return fm.Coding{System: &system, Code: &code}
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
