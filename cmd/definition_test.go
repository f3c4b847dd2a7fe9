package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const hivDefinition = `id: 42
uuid: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
name: first-line-hiv
title: FIRST LINE HIV THERAPIES
comment: Pick one regimen
operator: ONE
concept:
  id: 1
  name: HIV
  system: http://snomed.info/sct
  code: "86406008"
members:
  - kind: template
    template: Zidovudine 300 mg PO bid
    sortWeight: 2
  - kind: orderset
    sortWeight: 1
    comment: Preferred
    orderSet:
      title: Regimen 1
      operator: ALL
      members:
        - kind: concept
          concept:
            name: Tenofovir
            system: http://www.nlm.nih.gov/research/umls/rxnorm
            code: "300195"
        - kind: template
          template: Lamivudine 300 mg PO daily
`

const invalidDefinition = `operator: ONE
members:
  - kind: template
    template: Zidovudine 300 mg PO bid
`

func writeDefinition(t *testing.T, dir string, name string, content string) string {
	filename := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func execute(args ...string) (string, error) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
