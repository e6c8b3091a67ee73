package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const modulePath = "eleitoral"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerPolicy lists what a layer of a context service may import besides the
// standard library. Paths starting with "." are relative to the service.
type layerPolicy struct {
	allowed     []string
	noAdapters  bool
	noRuntime   bool
	onlyAllowed bool
}

var policies = map[string]layerPolicy{
	"domain": {
		allowed:     []string{"./domain"},
		noAdapters:  true,
		noRuntime:   true,
		onlyAllowed: true,
	},
	"application": {
		allowed:     []string{"./application", "./domain", "./ports", modulePath + "/contracts"},
		noAdapters:  true,
		noRuntime:   true,
		onlyAllowed: true,
	},
	"ports": {
		allowed:     []string{"./domain", modulePath + "/contracts"},
		onlyAllowed: true,
	},
}

var runtimePrefixes = []string{
	modulePath + "/internal/",
	modulePath + "/platform/",
	modulePath + "/cmd/",
}

// Checks that a context service reaches another one only through the shared
// event contracts, and that domain, application and ports stay free of
// adapters and runtime infrastructure.
func main() {
	root := flag.String("root", ".", "repository root")
	flag.Parse()

	violations := collectViolations(*root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(filepath.Join(root, "contexts"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		parts := strings.Split(rel, "/")
		if len(parts) < 4 {
			return nil
		}
		service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		violations = append(violations, checkFile(path, rel, service, parts[3])...)
		return nil
	})

	slices.SortFunc(violations, func(a, b violation) int {
		if a.File != b.File {
			return strings.Compare(a.File, b.File)
		}
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return strings.Compare(a.Import, b.Import)
	})
	return violations
}

func checkFile(path string, rel string, service string, layer string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	policy, scoped := policies[layer]
	var out []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		report := func(rule string) {
			out = append(out, violation{
				File:   rel,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !underPrefix(importPath, service) {
			report("cross-module imports are forbidden")
		}
		if !scoped {
			continue
		}
		if policy.noAdapters && strings.Contains(importPath, "/adapters/") {
			report(layer + " must not import adapters")
		}
		if policy.noRuntime && isRuntime(importPath) {
			report(layer + " must not import runtime infrastructure")
		}
		if policy.onlyAllowed && !isStdlib(importPath) && !policy.permits(importPath, service) {
			report(layer + " import is outside explicit allowlist")
		}
	}
	return out
}

func (p layerPolicy) permits(importPath string, service string) bool {
	for _, prefix := range p.allowed {
		if strings.HasPrefix(prefix, "./") {
			prefix = service + prefix[1:]
		}
		if underPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func isRuntime(importPath string) bool {
	for _, prefix := range runtimePrefixes {
		if strings.HasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func underPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if underPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
