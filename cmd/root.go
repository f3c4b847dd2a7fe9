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
	"net/url"
	"os"

	"github.com/samply/ordersetctl/data"
	"github.com/samply/ordersetctl/fhir"
	"github.com/samply/ordersetctl/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var server string
var disableTlsSecurity bool
var caCert string
var basicAuthUser string
var basicAuthPassword string
var bearerToken string
var noProgress bool
var verbose bool

var client *fhir.Client
var logger = zap.NewNop()

func createClient() error {
	if server == "" {
		return errors.New("missing the server's base URL, use --server")
	}
	fhirServerBaseUrl, err := url.ParseRequestURI(server)
	if err != nil {
		return fmt.Errorf("could not parse server's base URL: %v", err)
	}

	if disableTlsSecurity {
		client = fhir.NewClientInsecure(*fhirServerBaseUrl, clientAuth())
	} else if caCert != "" {
		client, err = fhir.NewClientCa(*fhirServerBaseUrl, clientAuth(), caCert)
		if err != nil {
			return err
		}
	} else {
		client = fhir.NewClient(*fhirServerBaseUrl, clientAuth())
	}
	logger.Debug("created client", zap.String("server", fhirServerBaseUrl.String()))
	return nil
}

func clientAuth() fhir.Auth {
	if basicAuthUser != "" && basicAuthPassword != "" {
		return fhir.BasicAuth{User: basicAuthUser, Password: basicAuthPassword}
	} else if bearerToken != "" {
		return fhir.TokenAuth{Token: bearerToken}
	} else {
		return nil
	}
}

func setupLogger() error {
	if !verbose {
		logger = zap.NewNop()
		return nil
	}
	l, err := util.NewLogger("debug", "console")
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// readOrderSet reads the definition in filename and builds its order set.
func readOrderSet(filename string) (*data.OrderSet, error) {
	definition, err := data.ReadDefinitionFile(filename)
	if err != nil {
		return nil, err
	}
	s, err := definition.OrderSet()
	if err != nil {
		return nil, fmt.Errorf("error while reading %s: %w", filename, err)
	}
	logger.Debug("read order set", zap.String("file", filename), zap.Int("members", len(s.Members())))
	return s, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ordersetctl",
	Short: "Manage clinical order sets from the Command Line",
	Long: `ordersetctl is a command line tool to author clinical order sets.

Order sets are written as YAML definitions. You can validate, review and
render them, convert them into FHIR® PlanDefinition resources, upload them
to a FHIR® server and list the order sets already there.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "the base URL of the FHIR server to use")
	rootCmd.PersistentFlags().BoolVarP(&disableTlsSecurity, "insecure", "k", false, "allow insecure server connections when using SSL")
	rootCmd.PersistentFlags().StringVar(&caCert, "certificate-authority", "", "path to a cert file for the certificate authority")
	rootCmd.PersistentFlags().StringVar(&basicAuthUser, "user", "", "user information for basic authentication")
	rootCmd.PersistentFlags().StringVar(&basicAuthPassword, "password", "", "password information for basic authentication")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "bearer token for authentication")
	rootCmd.PersistentFlags().BoolVarP(&noProgress, "no-progress", "", false, "don't show progress bar")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug information to stderr")
}
