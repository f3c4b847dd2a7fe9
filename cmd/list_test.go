package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/samply/ordersetctl/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchServer(t *testing.T) *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/fhir+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/fhir+json")

		switch r.URL.Path {
		case "/PlanDefinition":
			assert.Equal(t, "order-set", r.URL.Query().Get("type"))
			fmt.Fprintf(w, `{
"resourceType": "Bundle",
"type": "searchset",
"link": [{"relation": "next", "url": "%s/__page?__t=1"}],
"entry": [{
  "resource": {
    "resourceType": "PlanDefinition",
    "id": "1",
    "title": "A",
    "status": "active",
    "action": [{
      "selectionBehavior": "exactly-one",
      "action": [{"textEquivalent": "x"}, {"textEquivalent": "y"}]
    }]
  },
  "search": {"mode": "match"}
}]}`, server.URL)
		case "/__page":
			fmt.Fprint(w, `{
"resourceType": "Bundle",
"type": "searchset",
"entry": [{
  "resource": {
    "resourceType": "PlanDefinition",
    "id": "abc",
    "title": "B",
    "status": "active",
    "action": [{"selectionBehavior": "all-or-none"}]
  },
  "search": {"mode": "match"}
}, {
  "resource": {
    "resourceType": "PlanDefinition",
    "id": "7",
    "title": "Pneumonia",
    "status": "active",
    "lastReviewDate": "2024-03",
    "action": [{
      "selectionBehavior": "any",
      "action": [
        {"definitionCanonical": "http://example.org/ActivityDefinition/amoxicillin"},
        {"definitionUri": "http://example.org/ActivityDefinition/chest-x-ray"}
      ]
    }]
  },
  "search": {"mode": "match"}
}, {
  "resource": {
    "resourceType": "PlanDefinition",
    "id": "bad",
    "title": "Broken",
    "status": "active",
    "action": [{"selectionBehavior": "any", "action": [{}]}]
  },
  "search": {"mode": "match"}
}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOrderSetSearchQuery(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		q, err := orderSetSearchQuery("")
		require.NoError(t, err)
		assert.Equal(t, "type=order-set", q.Encode())
	})

	t.Run("Inline", func(t *testing.T) {
		q, err := orderSetSearchQuery("title:contains=hiv&type=other")
		require.NoError(t, err)
		assert.Equal(t, "hiv", q.Get("title:contains"))
		assert.Equal(t, []string{"order-set"}, q["type"])
	})

	t.Run("FromFile", func(t *testing.T) {
		queryFile := filepath.Join(t.TempDir(), "list.query")
		require.NoError(t, os.WriteFile(queryFile, []byte("status=active\n"), 0644))

		q, err := orderSetSearchQuery("@" + queryFile)
		require.NoError(t, err)
		assert.Equal(t, "active", q.Get("status"))
		assert.Equal(t, "order-set", q.Get("type"))
	})
}

func TestListOrderSets(t *testing.T) {
	server := searchServer(t)
	query, err := orderSetSearchQuery("")
	require.NoError(t, err)

	var out bytes.Buffer
	count, err := listOrderSets(testClient(t, server), query, &out)
	require.NoError(t, err)

	assert.Equal(t, 4, count)
	assert.Equal(t, `ID   OPERATOR  MEMBERS  TITLE
1    ONE       2        A
abc  ALL       0        B
7    ANY       2        Pneumonia
bad  -         -        Broken
`, out.String())
}

func TestListOrderSets_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{
"resourceType": "OperationOutcome",
"issue": [{"severity": "error", "code": "invalid", "diagnostics": "unknown search parameter"}]}`)
	}))
	defer server.Close()

	_, err := listOrderSets(testClient(t, server), nil, new(bytes.Buffer))

	var errRes *util.ErrorResponse
	require.ErrorAs(t, err, &errRes)
	assert.Equal(t, http.StatusBadRequest, errRes.StatusCode)
	assert.Equal(t, "unknown search parameter", *errRes.OperationOutcome.Issue[0].Diagnostics)
}

func TestListCmd(t *testing.T) {
	server := searchServer(t)

	out, err := execute("--server", server.URL, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "abc  ALL       0        B\n")
}
