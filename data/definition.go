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
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Definition is the YAML form an order set is authored in.
type Definition struct {
	ID           int                `yaml:"id,omitempty"`
	UUID         string             `yaml:"uuid,omitempty"`
	Name         string             `yaml:"name,omitempty"`
	Description  string             `yaml:"description,omitempty"`
	Retired      bool               `yaml:"retired,omitempty"`
	RetireReason string             `yaml:"retireReason,omitempty"`
	DateRetired  string             `yaml:"dateRetired,omitempty"`
	Title        string             `yaml:"title,omitempty"`
	Comment      string             `yaml:"comment,omitempty"`
	Operator     string             `yaml:"operator,omitempty"`
	Concept      *Concept           `yaml:"concept,omitempty"`
	ReviewedBy   *User              `yaml:"reviewedBy,omitempty"`
	DateReviewed string             `yaml:"dateReviewed,omitempty"`
	Members      []MemberDefinition `yaml:"members,omitempty"`
}

// MemberDefinition is the YAML form of a Member.
type MemberDefinition struct {
	ID         int         `yaml:"id,omitempty"`
	Kind       string      `yaml:"kind"`
	Title      string      `yaml:"title,omitempty"`
	Comment    string      `yaml:"comment,omitempty"`
	SortWeight int         `yaml:"sortWeight,omitempty"`
	Concept    *Concept    `yaml:"concept,omitempty"`
	Template   string      `yaml:"template,omitempty"`
	OrderSet   *Definition `yaml:"orderSet,omitempty"`
}

// ReadDefinitionFile reads the order set definition in filename.
func ReadDefinitionFile(filename string) (*Definition, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	definition, err := ParseDefinition(file)
	if err != nil {
		return nil, fmt.Errorf("error while parsing %s: %w", filename, err)
	}
	return definition, nil
}

func ParseDefinition(b []byte) (*Definition, error) {
	definition := Definition{}
	if err := yaml.Unmarshal(b, &definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

// WriteDefinitionFile writes d to filename, replacing its content.
func WriteDefinitionFile(filename string, d Definition) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

// OrderSet builds the order set the definition describes. The operator is
// taken over as written, use Validate to check it.
func (d Definition) OrderSet() (*OrderSet, error) {
	s := NewOrderSet(d.ID)
	if d.UUID != "" {
		id, err := uuid.Parse(d.UUID)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid: %w", err)
		}
		s.UUID = id
	}
	s.Name = d.Name
	s.Description = d.Description
	s.Retired = d.Retired
	s.RetireReason = d.RetireReason
	dateRetired, err := ParseDate(d.DateRetired)
	if err != nil {
		return nil, fmt.Errorf("invalid dateRetired: %w", err)
	}
	s.DateRetired = dateRetired

	s.SetTitle(d.Title)
	s.SetComment(d.Comment)
	s.SetOperator(Operator(d.Operator))
	s.SetConcept(d.Concept)
	s.SetReviewedBy(d.ReviewedBy)
	dateReviewed, err := ParseDate(d.DateReviewed)
	if err != nil {
		return nil, fmt.Errorf("invalid dateReviewed: %w", err)
	}
	s.SetDateReviewed(dateReviewed)

	members := make([]*Member, 0, len(d.Members))
	for i, md := range d.Members {
		member, err := md.member()
		if err != nil {
			return nil, fmt.Errorf("member[%d]: %w", i, err)
		}
		members = append(members, member)
	}
	s.SetMembers(members)
	return s, nil
}

func (md MemberDefinition) member() (*Member, error) {
	member := &Member{
		ID:         md.ID,
		Kind:       MemberKind(md.Kind),
		Title:      md.Title,
		Comment:    md.Comment,
		SortWeight: md.SortWeight,
		Concept:    md.Concept,
		Template:   md.Template,
	}
	if md.OrderSet != nil {
		nested, err := md.OrderSet.OrderSet()
		if err != nil {
			return nil, err
		}
		member.OrderSet = nested
	}
	return member, nil
}

// DefinitionOf returns the definition of s. Returns ErrCycle if s contains
// itself.
func DefinitionOf(s *OrderSet) (Definition, error) {
	return definitionOf(s, map[*OrderSet]bool{})
}

func definitionOf(s *OrderSet, path map[*OrderSet]bool) (Definition, error) {
	if path[s] {
		return Definition{}, ErrCycle
	}
	path[s] = true
	defer delete(path, s)

	d := Definition{
		ID:           s.OrderSetID(),
		Name:         s.Name,
		Description:  s.Description,
		Retired:      s.Retired,
		RetireReason: s.RetireReason,
		DateRetired:  formatDate(s.DateRetired),
		Title:        s.Title(),
		Comment:      s.Comment(),
		Operator:     string(s.Operator()),
		Concept:      s.Concept(),
		ReviewedBy:   s.ReviewedBy(),
		DateReviewed: formatDate(s.DateReviewed()),
	}
	if s.UUID != uuid.Nil {
		d.UUID = s.UUID.String()
	}
	for i, member := range s.Members() {
		if member == nil {
			continue
		}
		md := MemberDefinition{
			ID:         member.ID,
			Kind:       string(member.Kind),
			Title:      member.Title,
			Comment:    member.Comment,
			SortWeight: member.SortWeight,
			Concept:    member.Concept,
			Template:   member.Template,
		}
		if member.OrderSet != nil {
			nested, err := definitionOf(member.OrderSet, path)
			if err != nil {
				return Definition{}, fmt.Errorf("member[%d]: %w", i, err)
			}
			md.OrderSet = &nested
		}
		d.Members = append(d.Members, md)
	}
	return d, nil
}

// ParseDate parses either a full RFC 3339 timestamp or a plain date. The
// empty string gives the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339Nano)
}
