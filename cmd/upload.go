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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"os"
	"path/filepath"
	"time"

	"github.com/samply/ordersetctl/data"
	"github.com/samply/ordersetctl/fhir"
	"github.com/samply/ordersetctl/util"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
)

type uploadInfo struct {
	statusCode         int
	errorResponse      *util.ErrorResponse
	bytesOut, bytesIn  int64
	requestDuration    time.Duration
	processingDuration time.Duration
}

// transactionOf reads the order set definition in filename, validates it and
// returns a transaction bundle creating or updating its PlanDefinition.
func transactionOf(filename string) ([]byte, error) {
	s, err := readOrderSet(filename)
	if err != nil {
		return nil, err
	}
	if err := data.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid order set: %w", err)
	}
	canonicalURL, err := canonicalUrlOf(s)
	if err != nil {
		return nil, err
	}
	planDefinition, err := fhir.PlanDefinition(s, canonicalURL)
	if err != nil {
		return nil, err
	}
	bundle, err := fhir.TransactionBundle(planDefinition)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bundle)
}

// Uploads the order set definition in filename and returns either the upload
// info of the response or an error.
func uploadFile(client *fhir.Client, filename string) (uploadInfo, error) {
	payload, err := transactionOf(filename)
	if err != nil {
		return uploadInfo{}, err
	}

	req, err := client.NewTransactionRequest(bytes.NewReader(payload))
	if err != nil {
		return uploadInfo{}, err
	}

	var requestStart time.Time
	var processingStart time.Time
	var processingDuration time.Duration
	trace := &httptrace.ClientTrace{
		GotConn: func(_ httptrace.GotConnInfo) {
			requestStart = time.Now()
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			processingStart = time.Now()
		},
		GotFirstResponseByte: func() {
			processingDuration = time.Since(processingStart)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := client.Do(req)
	if err != nil {
		return uploadInfo{}, err
	}
	defer func() { _ = fhir.DiscardAndClose(resp.Body) }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return uploadInfo{}, err
	}
	info := uploadInfo{
		statusCode:         resp.StatusCode,
		bytesOut:           int64(len(payload)),
		bytesIn:            int64(len(body)),
		requestDuration:    time.Since(requestStart),
		processingDuration: processingDuration,
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		info.errorResponse = util.ReadErrorResponse(resp)
	}
	return info, nil
}

type uploadResult struct {
	filename   string
	uploadInfo uploadInfo
	err        error
}

func aggregateUploadResults(
	stats *util.UploadStats,
	uploadResultCh <-chan uploadResult,
	done chan<- *util.UploadStats) {

	for uploadResult := range uploadResultCh {
		if uploadResult.err != nil {
			stats.Errors[uploadResult.filename] = uploadResult.err
			continue
		}
		info := uploadResult.uploadInfo
		if info.statusCode == http.StatusOK {
			stats.ProcessingDurations = append(stats.ProcessingDurations, info.processingDuration.Seconds())
		} else {
			stats.ErrorResponses[uploadResult.filename] = info.errorResponse
		}
		stats.StatusCodes[info.statusCode]++
		stats.TotalBytesIn += info.bytesIn
		stats.TotalBytesOut += info.bytesOut
		stats.RequestDurations = append(stats.RequestDurations, info.requestDuration.Seconds())
	}

	done <- stats
}

// uploadFiles uploads all files with at most concurrency uploads at the same
// time. Progress is shown on progressOut unless it is nil.
func uploadFiles(client *fhir.Client, files []string, concurrency int, progressOut io.Writer) *util.UploadStats {
	if progressOut == nil {
		progressOut = io.Discard
	}
	progress := mpb.New(mpb.WithOutput(progressOut))
	bar := progress.AddBar(int64(len(files)),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name("upload", decor.WC{W: 7, C: decor.DindentRight}),
			decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 60, decor.WC{W: 4}), "done"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	// Aggregate results in one single goroutine
	uploadResultCh := make(chan uploadResult)
	done := make(chan *util.UploadStats)
	go aggregateUploadResults(util.NewUploadStats(len(files), concurrency), uploadResultCh, done)

	// Loop through files and upload
	sem := make(chan bool, concurrency)
	start := time.Now()
	for _, file := range files {
		sem <- true
		go func(filename string) {
			defer func() { <-sem }()
			start := time.Now()
			uploadInfo, err := uploadFile(client, filename)
			if err != nil {
				logger.Debug("upload failed", zap.String("file", filename), zap.Error(err))
			} else {
				logger.Debug("uploaded", zap.String("file", filename), zap.Int("status", uploadInfo.statusCode))
			}
			uploadResultCh <- uploadResult{filename: filename, uploadInfo: uploadInfo, err: err}
			bar.EwmaIncrement(time.Since(start) / time.Duration(concurrency))
		}(file)
	}

	// Wait for all uploads to finish
	for i := 0; i < cap(sem); i++ {
		sem <- true
	}
	close(uploadResultCh)
	progress.Wait()
	client.CloseIdleConnections()

	stats := <-done
	stats.TotalDuration = time.Since(start)
	return stats
}

var concurrency int

var uploadCmd = &cobra.Command{
	Use:   "upload [directory]",
	Short: "Upload order set definitions",
	Long: `You can upload order set definitions from YAML files inside a directory.

Every definition is validated, converted into a FHIR® PlanDefinition and sent
as transaction bundle. Definitions with an id update the PlanDefinition with
that id, all others create a new one.

The upload will be parallel according to the --concurrency flag. A upload
statistic will be printed after the upload.

Example:

  ordersetctl --server http://localhost:8080/fhir upload my/order-sets`,
	ValidArgs: []string{"directory"},
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires a directory argument")
		}
		if info, err := os.Stat(args[0]); os.IsNotExist(err) {
			return fmt.Errorf("directory `%s` doesn't exist", args[0])
		} else if err != nil {
			return err
		} else if !info.IsDir() {
			return fmt.Errorf("`%s` isn't a directory", args[0])
		} else {
			return nil
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if concurrency < 1 {
			return fmt.Errorf("invalid concurrency %d, needs to be at least 1", concurrency)
		}
		if err := createClient(); err != nil {
			return err
		}

		files, err := util.DefinitionFiles(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no order set definitions found in `%s`", args[0])
		}

		baseURL := client.BaseURL()
		fmt.Fprintf(cmd.OutOrStdout(), "Starting Upload to %s ...\n", baseURL.String())

		var progressOut io.Writer
		if !noProgress {
			progressOut = cmd.ErrOrStderr()
		}
		stats := uploadFiles(client, files, concurrency, progressOut)
		fmt.Fprint(cmd.OutOrStdout(), stats.String())

		if failed := len(stats.Errors) + len(stats.ErrorResponses); failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 2, "number of parallel uploads")
}
