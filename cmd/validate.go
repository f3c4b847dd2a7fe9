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

	"github.com/samply/ordersetctl/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func validateFile(filename string) error {
	s, err := readOrderSet(filename)
	if err != nil {
		return err
	}
	return data.Validate(s)
}

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate order set definitions",
	Long: `Checks every given order set definition and prints either OK or the
first problem found per file.

An order set needs a title or a concept, one of the operators ANY, ONE or ALL
and members which are complete according to their kind. Nested order sets
are checked as well and must not contain themselves.

Example:

  ordersetctl validate hiv.yaml malaria.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var invalid int
		for _, filename := range args {
			if err := validateFile(filename); err != nil {
				logger.Debug("invalid order set", zap.String("file", filename), zap.Error(err))
				fmt.Fprintf(cmd.OutOrStdout(), "%s : %v\n", filename, err)
				invalid++
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s : OK\n", filename)
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d order set definitions are invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
