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
	"strings"
)

var (
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrCycle            = errors.New("order set contains itself")
)

// Operator represents how members of an order set can be selected.
type Operator string

const (
	// OperatorAny allows for multiple selection.
	OperatorAny Operator = "ANY"
	// OperatorOne forces single selection amongst members.
	OperatorOne Operator = "ONE"
	// OperatorAll means that either all members or none are ordered.
	OperatorAll Operator = "ALL"
)

// ParseOperator parses s case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidOperator, s)
	}
	return op, nil
}

func (o Operator) Valid() bool {
	switch o {
	case OperatorAny, OperatorOne, OperatorAll:
		return true
	default:
		return false
	}
}

// Describe returns a short human-readable explanation of the operator.
func (o Operator) Describe() string {
	switch o {
	case OperatorAny:
		return "choose any"
	case OperatorOne:
		return "choose exactly one"
	case OperatorAll:
		return "all or none"
	case "":
		return "no operator"
	default:
		return fmt.Sprintf("unknown operator %q", string(o))
	}
}

// CheckSelection checks whether selecting the given number of members out of
// total members is allowed by the operator.
func (o Operator) CheckSelection(selected, total int) error {
	if !o.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidOperator, string(o))
	}
	if selected < 0 || selected > total {
		return fmt.Errorf("%w: %d of %d members", ErrInvalidSelection, selected, total)
	}
	switch o {
	case OperatorOne:
		if selected != 1 {
			return fmt.Errorf("%w: exactly one member has to be selected, got %d", ErrInvalidSelection, selected)
		}
	case OperatorAll:
		if selected != 0 && selected != total {
			return fmt.Errorf("%w: all %d members or none have to be selected, got %d", ErrInvalidSelection, total, selected)
		}
	}
	return nil
}
