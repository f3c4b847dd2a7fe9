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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/samply/ordersetctl/fhir"
	"github.com/samply/ordersetctl/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listQuery string

// orderSetSearchQuery returns the search query for PlanDefinitions of type
// order-set extended by the user supplied query.
func orderSetSearchQuery(query string) (url.Values, error) {
	q := url.Values{}
	if query != "" {
		var err error
		if q, err = util.ParseQuery(query); err != nil {
			return nil, err
		}
	}
	q.Set("type", fhir.PlanDefinitionTypeOrderSet)
	return q, nil
}

// fetchPage fetches one search set bundle. A non-OK response is returned as
// *util.ErrorResponse.
func fetchPage(client *fhir.Client, req *http.Request) (fm.Bundle, error) {
	resp, err := client.Do(req)
	if err != nil {
		return fm.Bundle{}, err
	}
	defer func() { _ = fhir.DiscardAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return fm.Bundle{}, util.ReadErrorResponse(resp)
	}
	return fhir.ReadBundle(resp.Body)
}

// searchOrderSets searches all order set PlanDefinitions following the next
// links of the search set bundles. Calls fn for every PlanDefinition found.
func searchOrderSets(client *fhir.Client, query url.Values, fn func(fm.PlanDefinition) error) error {
	req, err := client.NewSearchTypeRequest("PlanDefinition", query)
	if err != nil {
		return err
	}

	for page := 1; ; page++ {
		logger.Debug("fetch page", zap.Int("page", page), zap.String("url", req.URL.String()))
		bundle, err := fetchPage(client, req)
		if err != nil {
			return err
		}

		planDefinitions, err := fhir.PlanDefinitions(bundle)
		if err != nil {
			return err
		}
		for _, planDefinition := range planDefinitions {
			if err := fn(planDefinition); err != nil {
				return err
			}
		}

		next, err := fhir.NextLink(bundle)
		if err != nil {
			return fmt.Errorf("invalid next link: %w", err)
		}
		if next == nil {
			return nil
		}
		if req, err = client.NewPaginatedRequest(next); err != nil {
			return err
		}
	}
}

// listOrderSets writes one line per order set found on the server to w.
// PlanDefinitions which can't be read as order set are listed without
// operator and members.
func listOrderSets(client *fhir.Client, query url.Values, w io.Writer) (int, error) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATOR\tMEMBERS\tTITLE")

	var count int
	err := searchOrderSets(client, query, func(planDefinition fm.PlanDefinition) error {
		id := ""
		if planDefinition.Id != nil {
			id = *planDefinition.Id
		}
		// server assigned ids need not be numeric
		planDefinition.Id = nil
		s, err := fhir.OrderSetOf(planDefinition)
		if err != nil {
			logger.Warn("unreadable order set", zap.String("id", id), zap.Error(err))
			title := ""
			if planDefinition.Title != nil {
				title = *planDefinition.Title
			}
			fmt.Fprintf(tw, "%s\t-\t-\t%s\n", id, title)
			count++
			return nil
		}
		title := s.Title()
		if title == "" && s.Concept() != nil {
			title = s.Concept().Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, s.Operator(), len(s.Members()), title)
		count++
		return nil
	})
	if flushErr := tw.Flush(); err == nil {
		err = flushErr
	}
	return count, err
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the order sets of a FHIR server",
	Long: `Lists all PlanDefinition resources of type order-set on the FHIR® server
with their id, operator, number of members and title. All pages of the search
result are fetched.

The search can be narrowed with --query. The query can be given inline or,
starting with an @, read from a file.

Example:

  ordersetctl --server http://localhost:8080/fhir list
  ordersetctl --server http://localhost:8080/fhir list --query "title:contains=hiv"
  ordersetctl --server http://localhost:8080/fhir list --query @my-query.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := orderSetSearchQuery(listQuery)
		if err != nil {
			return err
		}
		if err := createClient(); err != nil {
			return err
		}
		defer client.CloseIdleConnections()

		count, err := listOrderSets(client, query, cmd.OutOrStdout())
		var errRes *util.ErrorResponse
		if errors.As(err, &errRes) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nServer Error:\n%s\n", util.Indent(2, strings.TrimSuffix(errRes.String(), "\n")))
		}
		logger.Debug("listed order sets", zap.Int("count", count))
		return err
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "FHIR search query")
}
