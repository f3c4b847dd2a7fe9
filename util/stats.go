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

package util

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DurationStatistics represents statistics about measured durations.
// Comprises information about the mean and max as well as different
// percentiles (50, 95 and 99).
type DurationStatistics struct {
	Mean, Q50, Q95, Q99, Max time.Duration
}

// CalculateDurationStatistics calculates the DurationStatistics for durations
// given in seconds. Sorts durations in place.
func CalculateDurationStatistics(durations []float64) DurationStatistics {
	if len(durations) == 0 {
		return DurationStatistics{}
	}

	sort.Float64s(durations)
	return DurationStatistics{
		Mean: seconds(floats.Sum(durations) / float64(len(durations))),
		Q50:  seconds(durations[len(durations)/2]),
		Q95:  seconds(durations[int(float32(len(durations))*0.95)]),
		Q99:  seconds(durations[int(float32(len(durations))*0.99)]),
		Max:  seconds(floats.Max(durations)),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s*1000) * time.Millisecond
}

// UploadStats collects the outcome of uploading a number of order set
// definitions.
type UploadStats struct {
	Files, Concurrency                    int
	RequestDurations, ProcessingDurations []float64
	TotalBytesIn, TotalBytesOut           int64
	TotalDuration                         time.Duration
	// StatusCodes counts the responses per HTTP status code.
	StatusCodes map[int]int
	// ErrorResponses are the non-OK responses by file name.
	ErrorResponses map[string]*ErrorResponse
	// Errors are the files which could not be uploaded at all.
	Errors map[string]error
}

func NewUploadStats(files, concurrency int) *UploadStats {
	return &UploadStats{
		Files:               files,
		Concurrency:         concurrency,
		RequestDurations:    make([]float64, 0, files),
		ProcessingDurations: make([]float64, 0, files),
		StatusCodes:         make(map[int]int),
		ErrorResponses:      make(map[string]*ErrorResponse),
		Errors:              make(map[string]error),
	}
}

// SuccessRatio returns the percentage of files uploaded with an OK response.
func (us *UploadStats) SuccessRatio() float32 {
	if us.Files == 0 {
		return 0
	}
	return float32(us.Files-len(us.Errors)-len(us.ErrorResponses)) / float32(us.Files) * 100
}

func (us *UploadStats) String() string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Uploads          [total, concurrency]     %d, %d\n", us.Files, us.Concurrency))
	builder.WriteString(fmt.Sprintf("Success          [ratio]                  %.2f %%\n", us.SuccessRatio()))
	builder.WriteString(fmt.Sprintf("Duration         [total]                  %s\n", FmtDurationHumanReadable(us.TotalDuration)))

	if len(us.RequestDurations) > 0 {
		p := CalculateDurationStatistics(us.RequestDurations)
		builder.WriteString(fmt.Sprintf("Requ. Latencies  [mean, 50, 95, 99, max]  %s, %s, %s, %s, %s\n", p.Mean, p.Q50, p.Q95, p.Q99, p.Max))
	}

	if len(us.ProcessingDurations) > 0 {
		p := CalculateDurationStatistics(us.ProcessingDurations)
		builder.WriteString(fmt.Sprintf("Proc. Latencies  [mean, 50, 95, 99, max]  %s, %s, %s, %s, %s\n", p.Mean, p.Q50, p.Q95, p.Q99, p.Max))
	}

	if totalRequests := len(us.RequestDurations); totalRequests > 0 {
		builder.WriteString(fmt.Sprintf("Bytes In         [total, mean]            %s, %s\n",
			FmtBytesHumanReadable(float32(us.TotalBytesIn)), FmtBytesHumanReadable(float32(us.TotalBytesIn)/float32(totalRequests))))
		builder.WriteString(fmt.Sprintf("Bytes Out        [total, mean]            %s, %s\n",
			FmtBytesHumanReadable(float32(us.TotalBytesOut)), FmtBytesHumanReadable(float32(us.TotalBytesOut)/float32(totalRequests))))
	}

	if len(us.StatusCodes) > 0 {
		codes := make([]int, 0, len(us.StatusCodes))
		for code := range us.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		counts := make([]string, 0, len(codes))
		for _, code := range codes {
			counts = append(counts, fmt.Sprintf("%d:%d", code, us.StatusCodes[code]))
		}
		builder.WriteString(fmt.Sprintf("Status Codes     [code:count]             %s\n", strings.Join(counts, ", ")))
	}

	if len(us.ErrorResponses) > 0 {
		builder.WriteString("\nNon-OK Responses:\n")
		for _, filename := range sortedKeys(us.ErrorResponses) {
			builder.WriteString("\n" + filename + "\n")
			builder.WriteString(Indent(2, strings.TrimSuffix(us.ErrorResponses[filename].String(), "\n")))
			builder.WriteString("\n")
		}
	}

	if len(us.Errors) > 0 {
		builder.WriteString("\nErrors:\n")
		for _, filename := range sortedKeys(us.Errors) {
			builder.WriteString(fmt.Sprintf("%s : %s\n", filename, us.Errors[filename]))
		}
	}

	return builder.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// FmtBytesHumanReadable takes an amount of bytes and returns them in a human readable form
// up to a unit of PiB.
func FmtBytesHumanReadable(bytes float32) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

	var unitIdx int
	for {
		if bytes <= 1024 || (unitIdx+1) > len(units)-1 {
			break
		}

		bytes = bytes / 1024
		unitIdx++
	}

	return fmt.Sprintf("%.2f %s", bytes, units[unitIdx])
}

// FmtDurationHumanReadable takes a duration and returns it in a human readable form.
// Durations under a minute get printed with millisecond precision, all others
// with second precision.
func FmtDurationHumanReadable(d time.Duration) string {
	if d.Milliseconds() < 60000 {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
