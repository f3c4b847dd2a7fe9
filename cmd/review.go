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
	"fmt"
	"time"

	"github.com/samply/ordersetctl/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reviewer string
var reviewerName string
var reviewDate string

func today() time.Time {
	year, month, day := time.Now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// reviewFile marks the order set in filename as reviewed by the given user at
// the given date and writes the definition back.
func reviewFile(filename string, by *data.User, at time.Time) error {
	s, err := readOrderSet(filename)
	if err != nil {
		return err
	}
	if err := data.Validate(s); err != nil {
		return fmt.Errorf("invalid order set in %s: %w", filename, err)
	}
	s.MarkReviewed(by, at)
	definition, err := data.DefinitionOf(s)
	if err != nil {
		return err
	}
	logger.Debug("reviewed order set", zap.String("file", filename), zap.String("reviewer", by.Username), zap.Time("date", at))
	return data.WriteDefinitionFile(filename, definition)
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Marks an order set definition as reviewed",
	Long: `Records who reviewed the order set and when, and rewrites the
definition file. Only valid order sets can be reviewed.

The date defaults to today and can be given as 2006-01-02 or as RFC 3339
timestamp.

Example:

  ordersetctl review hiv.yaml --reviewer admin --reviewer-name "Super User"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := today()
		if reviewDate != "" {
			var err error
			if at, err = data.ParseDate(reviewDate); err != nil {
				return fmt.Errorf("invalid date %q: %w", reviewDate, err)
			}
		}

		by := &data.User{Username: reviewer, Name: reviewerName}
		if err := reviewFile(args[0], by, at); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s : reviewed by %s on %s\n", args[0], by.DisplayName(), at.Format("2006-01-02"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&reviewer, "reviewer", "", "username of the reviewer")
	reviewCmd.Flags().StringVar(&reviewerName, "reviewer-name", "", "full name of the reviewer")
	reviewCmd.Flags().StringVar(&reviewDate, "date", "", "date of the review (default today)")
	_ = reviewCmd.MarkFlagRequired("reviewer")
}
