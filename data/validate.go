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

package data

import (
	"errors"
	"fmt"
)

// Validate checks that s is usable for ordering. It returns the first problem
// found. Problems in members are prefixed with their path, e.g.
// "member[1]: member[0]: missing template".
func Validate(s *OrderSet) error {
	return validate(s, map[*OrderSet]bool{})
}

func validate(s *OrderSet, path map[*OrderSet]bool) error {
	if path[s] {
		return ErrCycle
	}
	path[s] = true
	defer delete(path, s)

	if s.Title() == "" && s.Concept() == nil {
		return errors.New("missing title")
	}
	if !s.Operator().Valid() {
		return fmt.Errorf("%w %q", ErrInvalidOperator, string(s.Operator()))
	}
	if s.Operator() == OperatorOne && len(s.Members()) == 0 {
		return errors.New("no members to choose from")
	}
	for i, member := range s.Members() {
		if err := validateMember(member, path); err != nil {
			return fmt.Errorf("member[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMember(m *Member, path map[*OrderSet]bool) error {
	if m == nil {
		return errors.New("missing member")
	}
	switch m.Kind {
	case MemberKindConcept:
		if m.Concept == nil {
			return errors.New("missing concept")
		}
	case MemberKindTemplate:
		if m.Template == "" {
			return errors.New("missing template")
		}
	case MemberKindOrderSet:
		if m.OrderSet == nil {
			return errors.New("missing order set")
		}
		return validate(m.OrderSet, path)
	default:
		return fmt.Errorf("unknown kind %q", string(m.Kind))
	}
	return nil
}
