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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samply/ordersetctl/data"
	"github.com/samply/ordersetctl/fhir"
	"github.com/samply/ordersetctl/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var canonicalURL string
var outputFile string

// canonicalUrlOf returns the urn:uuid canonical URL of s. An order set
// without UUID gets a random one first.
func canonicalUrlOf(s *data.OrderSet) (string, error) {
	if err := s.EnsureUUID(); err != nil {
		return "", err
	}
	return "urn:uuid:" + s.UUID.String(), nil
}

// convertFile writes the PlanDefinition of the order set in filename as
// indented JSON to w.
func convertFile(filename string, url string, w io.Writer) error {
	s, err := readOrderSet(filename)
	if err != nil {
		return err
	}
	if err := data.Validate(s); err != nil {
		return fmt.Errorf("invalid order set in %s: %w", filename, err)
	}
	if url == "" {
		if url, err = canonicalUrlOf(s); err != nil {
			return err
		}
	}
	planDefinition, err := fhir.PlanDefinition(s, url)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(planDefinition, "", "  ")
	if err != nil {
		return err
	}
	logger.Debug("converted order set", zap.String("file", filename), zap.String("url", url))
	_, err = fmt.Fprintln(w, string(b))
	return err
}

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert an order set definition into a FHIR PlanDefinition",
	Long: `Converts the order set definition into a FHIR® PlanDefinition resource
of type order-set and prints it as JSON.

The canonical URL of the PlanDefinition can be given with --url. Without it
the URL is urn:uuid followed by the UUID of the definition, the same URL
upload uses. Definitions without UUID get a random one. With --output the
JSON is written into a new file. An existing file is never overwritten.

Example:

  ordersetctl convert hiv.yaml --url http://example.com/PlanDefinition/hiv
  ordersetctl convert hiv.yaml --output hiv.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFile == "" {
			return convertFile(args[0], canonicalURL, cmd.OutOrStdout())
		}

		file, err := util.CreateOutputFile(outputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := convertFile(args[0], canonicalURL, file); err != nil {
			_ = os.Remove(outputFile)
			return err
		}
		return file.Sync()
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&canonicalURL, "url", "", "canonical URL of the PlanDefinition")
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write to file instead of stdout")
}
