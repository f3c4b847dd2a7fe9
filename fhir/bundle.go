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

package fhir

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
)

const planDefinitionType = "PlanDefinition"

// TransactionBundle creates a transaction bundle which creates or updates the
// given plan definitions. Plan definitions with an id are updated with PUT,
// all others are created with POST.
func TransactionBundle(planDefinitions ...fm.PlanDefinition) (fm.Bundle, error) {
	bundle := fm.Bundle{
		Type:  fm.BundleTypeTransaction,
		Entry: make([]fm.BundleEntry, 0, len(planDefinitions)),
	}
	for _, planDefinition := range planDefinitions {
		resource, err := json.Marshal(planDefinition)
		if err != nil {
			return fm.Bundle{}, err
		}
		request := &fm.BundleEntryRequest{
			Method: fm.HTTPVerbPOST,
			Url:    planDefinitionType,
		}
		if planDefinition.Id != nil {
			request.Method = fm.HTTPVerbPUT
			request.Url = planDefinitionType + "/" + *planDefinition.Id
		}
		bundle.Entry = append(bundle.Entry, fm.BundleEntry{
			Resource: resource,
			Request:  request,
		})
	}
	return bundle, nil
}

// ReadBundle reads and unmarshals a bundle.
func ReadBundle(r io.Reader) (fm.Bundle, error) {
	var bundle fm.Bundle
	body, err := io.ReadAll(r)
	if err != nil {
		return bundle, err
	}
	return fm.UnmarshalBundle(body)
}

// PlanDefinitions returns the plan definitions of all entries of a search set
// bundle which are matches. Included resources, outcomes and resources of
// other types are skipped.
func PlanDefinitions(bundle fm.Bundle) ([]fm.PlanDefinition, error) {
	planDefinitions := make([]fm.PlanDefinition, 0, len(bundle.Entry))
	for i, entry := range bundle.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		if entry.Search != nil && entry.Search.Mode != nil && *entry.Search.Mode != fm.SearchEntryModeMatch {
			continue
		}
		var resource struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &resource); err != nil {
			return nil, fmt.Errorf("error while reading entry[%d]: %w", i, err)
		}
		if resource.ResourceType != planDefinitionType {
			continue
		}
		var planDefinition fm.PlanDefinition
		if err := json.Unmarshal(entry.Resource, &planDefinition); err != nil {
			return nil, fmt.Errorf("error while reading entry[%d]: %w", i, err)
		}
		planDefinitions = append(planDefinitions, planDefinition)
	}
	return planDefinitions, nil
}

// NextLink returns the URL of the next page of a search set bundle or nil if
// there is none.
func NextLink(bundle fm.Bundle) (*url.URL, error) {
	for _, link := range bundle.Link {
		if link.Relation == "next" {
			return url.ParseRequestURI(link.Url)
		}
	}
	return nil, nil
}

// DiscardAndClose reads body to the end and closes it, so that the
// underlying connection can be reused.
func DiscardAndClose(body io.ReadCloser) error {
	_, err := io.Copy(io.Discard, body)
	if err != nil {
		_ = body.Close()
		return err
	}
	return body.Close()
}
