// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

const module = "github.com/rasbt/screenlamp/"

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

// Record-level packages know nothing of stages or the command line; stage
// packages know nothing of the command line or where their settings came
// from.
var (
	outer = []string{
		module + "internal/appcore", module + "internal/app", module + "internal/cli",
		module + "internal/stages", module + "internal/runner", module + "cmd/",
	}
	recordLevel = append([]string{module + "internal/logging", module + "internal/writers"}, outer...)
	stageLevel  = append([]string{
		module + "internal/cmdutil", module + "internal/writers",
		module + "internal/config", module + "internal/objstore",
	}, outer...)
)

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	bans := map[string][]string{
		module + "internal/mol2":      recordLevel,
		module + "internal/selection": recordLevel,
		module + "internal/geometry":  recordLevel,
		module + "internal/pipeline":  recordLevel,
		module + "internal/idset":     recordLevel,
		module + "internal/idfilter":  stageLevel,
		module + "internal/overlay":   stageLevel,
		module + "internal/funcgroup": stageLevel,
		module + "internal/datatable": stageLevel,
		module + "internal/inventory": stageLevel,
		module + "internal/writers": {
			module + "internal/pipeline", module + "internal/mol2",
			module + "internal/appcore", module + "internal/app", module + "internal/cli",
			module + "internal/stages", module + "internal/runner", module + "cmd/",
		},
		module + "pkg/": {module + "internal/"},
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, module) {
			continue
		}
		imp := p.ImportPath
		for prefix, forbidden := range bans {
			if !strings.HasPrefix(imp, prefix) {
				continue
			}
			for _, dep := range p.Imports {
				if !strings.HasPrefix(dep, module) {
					continue
				}
				for _, ban := range forbidden {
					if strings.HasPrefix(dep, ban) {
						violations = append(violations, imp+" → "+dep)
					}
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
