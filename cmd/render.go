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

package cmd

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/samply/ordersetctl/data"
	"github.com/spf13/cobra"
)

//go:embed orderset.tmpl
var orderSetTemplate string

type orderSetView struct {
	Depth    int
	Title    string
	Operator string
	Concept  string
	Comment  string
	Reviewed string
	Retired  string
	Members  []memberView
}

type memberView struct {
	Depth    int
	Label    string
	Kind     data.MemberKind
	Comment  string
	OrderSet *orderSetView
}

func operatorLabel(o data.Operator) string {
	if !o.Valid() {
		return o.Describe()
	}
	return fmt.Sprintf("%s (%s)", o, o.Describe())
}

func conceptLabel(c *data.Concept) string {
	if c == nil {
		return ""
	}
	if c.Code == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s|%s)", c.Name, c.System, c.Code)
}

func newOrderSetView(s *data.OrderSet, depth int, path map[*data.OrderSet]bool) (*orderSetView, error) {
	if path[s] {
		return nil, data.ErrCycle
	}
	path[s] = true
	defer delete(path, s)

	view := &orderSetView{
		Depth:    depth,
		Title:    s.Title(),
		Operator: operatorLabel(s.Operator()),
		Concept:  conceptLabel(s.Concept()),
		Comment:  s.Comment(),
	}
	if view.Title == "" && s.Concept() != nil {
		view.Title = s.Concept().Name
	}
	if reviewer := s.ReviewedBy(); reviewer != nil {
		view.Reviewed = reviewer.DisplayName()
		if !s.DateReviewed().IsZero() {
			view.Reviewed += " on " + s.DateReviewed().Format("2006-01-02")
		}
	}
	if s.Retired {
		view.Retired = "yes"
		if !s.DateRetired.IsZero() {
			view.Retired = "on " + s.DateRetired.Format("2006-01-02")
		}
		if s.RetireReason != "" {
			view.Retired += ", " + s.RetireReason
		}
	}

	for i, member := range s.SortedMembers() {
		if member == nil {
			continue
		}
		mv := memberView{
			Depth:   depth + 1,
			Label:   member.Label(),
			Kind:    member.Kind,
			Comment: member.Comment,
		}
		if member.OrderSet != nil {
			nested, err := newOrderSetView(member.OrderSet, depth+2, path)
			if err != nil {
				return nil, fmt.Errorf("member[%d]: %w", i, err)
			}
			mv.OrderSet = nested
		}
		view.Members = append(view.Members, mv)
	}
	return view, nil
}

func renderOrderSet(wr io.Writer, s *data.OrderSet) error {
	view, err := newOrderSetView(s, 0, map[*data.OrderSet]bool{})
	if err != nil {
		return err
	}

	funcMap := template.FuncMap{
		"inc": func(i int) int {
			return i + 1
		},
		"pad": func(depth int) string {
			return strings.Repeat("  ", depth)
		},
	}

	tmpl := template.Must(template.New("orderset").Funcs(funcMap).Parse(orderSetTemplate))

	return tmpl.Execute(wr, view)
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Renders an order set definition",
	Long: `Prints the order set of the definition as a tree. Members appear in
the order of their sort weight. Nested order sets are shown with their
operator and members below them.

Example:

  ordersetctl render hiv.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := readOrderSet(args[0])
		if err != nil {
			return err
		}

		return renderOrderSet(cmd.OutOrStdout(), s)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
