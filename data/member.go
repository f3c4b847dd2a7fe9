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
	"time"

	"github.com/google/uuid"
)

// Concept is a coded clinical concept like an orderable drug or a diagnosis.
type Concept struct {
	ID     int    `yaml:"id,omitempty"`
	Name   string `yaml:"name,omitempty"`
	System string `yaml:"system,omitempty"`
	Code   string `yaml:"code,omitempty"`
}

// User is a user of the medical record system.
type User struct {
	ID       int    `yaml:"id,omitempty"`
	Username string `yaml:"username,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// DisplayName returns the name of the user and falls back to the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

type MemberKind string

const (
	MemberKindConcept  MemberKind = "concept"
	MemberKindTemplate MemberKind = "template"
	MemberKindOrderSet MemberKind = "orderset"
)

// Member is one selectable entry of an order set. Depending on Kind, exactly
// one of Concept, Template or OrderSet is expected to be set.
type Member struct {
	ID         int
	Kind       MemberKind
	Title      string
	Comment    string
	SortWeight int

	Concept *Concept
	// Template is a pre-defined order, e.g. "Lamivudine 300 mg PO daily".
	Template string
	OrderSet *OrderSet
}

// Label returns the most specific human-readable name of the member.
func (m *Member) Label() string {
	if m.Title != "" {
		return m.Title
	}
	switch m.Kind {
	case MemberKindConcept:
		if m.Concept != nil {
			return m.Concept.Name
		}
	case MemberKindTemplate:
		return m.Template
	case MemberKindOrderSet:
		if m.OrderSet != nil {
			return m.OrderSet.Title()
		}
	}
	return ""
}

// Metadata is the descriptive data every order set carries in addition to
// its own attributes.
type Metadata struct {
	UUID         uuid.UUID
	Name         string
	Description  string
	Retired      bool
	RetireReason string
	DateRetired  time.Time
}

// EnsureUUID assigns a random UUID unless one is already set.
func (m *Metadata) EnsureUUID() error {
	if m.UUID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	m.UUID = id
	return nil
}

func (m *Metadata) Retire(reason string, at time.Time) {
	m.Retired = true
	m.RetireReason = reason
	m.DateRetired = at
}

func (m *Metadata) Unretire() {
	m.Retired = false
	m.RetireReason = ""
	m.DateRetired = time.Time{}
}
