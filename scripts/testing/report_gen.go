// report_gen merges `go test -json` output with the TestPurpose/Scope/...
// annotations found above each test function and writes JSON and Markdown
// reports grouped by domain area.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const modulePath = "github.com/tenantcore/tenantcore"

// TestMetadata holds the annotation block of one test function
type TestMetadata struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Package    string `json:"package"`
	Area       string `json:"area"`
	Type       string `json:"type"` // UT or INT
}

// testEvent is one line of `go test -json`
type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

// Result is the outcome of a single test merged with its annotations
type Result struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Elapsed     float64      `json:"elapsed_seconds"`
	Package     string       `json:"package"`
	Failure     string       `json:"failure_reason,omitempty"`
	Annotations TestMetadata `json:"annotations"`
}

// Report is the top-level document written to disk
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []Result  `json:"results"`
}

var annotationKeys = []string{"TestPurpose:", "Scope:", "Security:", "Expected:", "Test Case ID:"}

func main() {
	root := flag.String("root", ".", "Repository root to scan for annotations")
	input := flag.String("input", "", "Path to go test -json output")
	outJSON := flag.String("out-json", "", "Path for the JSON report")
	outMD := flag.String("out-md", "", "Path for the Markdown report")
	title := flag.String("title", "Test Report", "Report title")
	area := flag.String("area", "", "Only report tests from this area")
	flag.Parse()

	if *input == "" || *outJSON == "" || *outMD == "" {
		fmt.Println("Usage: report_gen -input <go-test.json> -out-json <file> -out-md <file>")
		os.Exit(1)
	}

	meta, err := scanMetadata(*root)
	if err != nil {
		fmt.Printf("Error scanning annotations: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Printf("Error opening test output: %v\n", err)
		os.Exit(1)
	}
	results, err := mergeResults(f, meta)
	f.Close()
	if err != nil {
		fmt.Printf("Error reading test output: %v\n", err)
		os.Exit(1)
	}

	if *area != "" {
		kept := results[:0]
		for _, r := range results {
			if strings.EqualFold(r.Annotations.Area, *area) {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	report := summarize(results, time.Now())
	if err := writeFile(*outJSON, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}); err != nil {
		fmt.Printf("Error writing JSON report: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(*outMD, func(w io.Writer) error { return writeMarkdown(w, report, *title) }); err != nil {
		fmt.Printf("Error writing Markdown report: %v\n", err)
		os.Exit(1)
	}

	// Fail the CI step when anything failed.
	if report.Failed > 0 {
		fmt.Printf("\n❌ %d tests failed\n", report.Failed)
		os.Exit(1)
	}
}

// scanMetadata parses every _test.go file under root and indexes the
// annotations of its Test functions by "<import path>.<TestName>".
func scanMetadata(root string) (map[string]TestMetadata, error) {
	out := make(map[string]TestMetadata)
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, filepath.Dir(path))
		pkg := importPath(rel)
		kind := testType(file)

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") || fn.Name.Name == "TestMain" {
				continue
			}
			m := TestMetadata{Name: fn.Name.Name, Package: pkg, Area: areaOf(rel), Type: kind}
			if fn.Doc != nil {
				applyAnnotations(&m, fn.Doc.List)
			}
			out[pkg+"."+fn.Name.Name] = m
		}
		return nil
	})
	return out, err
}

func applyAnnotations(m *TestMetadata, comments []*ast.Comment) {
	for _, c := range comments {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		for _, key := range annotationKeys {
			if !strings.HasPrefix(text, key) {
				continue
			}
			value := strings.TrimSpace(strings.TrimPrefix(text, key))
			switch key {
			case "TestPurpose:":
				m.Purpose = value
			case "Scope:":
				m.Scope = value
			case "Security:":
				m.Security = value
			case "Expected:":
				m.Expected = value
			case "Test Case ID:":
				m.TestCaseID = value
			}
		}
	}
}

func importPath(rel string) string {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return modulePath
	}
	return modulePath + "/" + rel
}

// testType reports INT for files behind the integration build tag.
func testType(file *ast.File) string {
	for _, group := range file.Comments {
		if group.Pos() > file.Package {
			break
		}
		for _, c := range group.List {
			if strings.HasPrefix(c.Text, "//go:build") && strings.Contains(c.Text, "integration") {
				return "INT"
			}
		}
	}
	return "UT"
}

// areaOf names the domain area a package belongs to.
func areaOf(rel string) string {
	rel = filepath.ToSlash(rel)
	switch {
	case strings.HasPrefix(rel, "internal/transport/"):
		return "API"
	case strings.HasPrefix(rel, "internal/store/"):
		return "Store"
	case strings.HasPrefix(rel, "internal/observability/"):
		return "Observability"
	case strings.HasPrefix(rel, "internal/"):
		parts := strings.Split(rel, "/")
		return strings.ToUpper(parts[1][:1]) + parts[1][1:]
	default:
		return "Other"
	}
}

// mergeResults folds the event stream into one Result per test. Annotated
// tests that never ran are reported as "not run"; subtests inherit their
// parent's annotations.
func mergeResults(r io.Reader, meta map[string]TestMetadata) ([]Result, error) {
	states := make(map[string]*Result, len(meta))
	for key, m := range meta {
		states[key] = &Result{Name: m.Name, Package: m.Package, Status: "not run", Annotations: m}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev testEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := states[key]
		if !ok {
			ann := TestMetadata{Name: ev.Test, Package: ev.Package, Area: "Other", Type: "UT"}
			if parent, sub, found := strings.Cut(ev.Test, "/"); found {
				if pm, ok := meta[ev.Package+"."+parent]; ok {
					ann = pm
					ann.Name = ev.Test
					ann.Purpose = strings.TrimSpace(pm.Purpose + " (" + sub + ")")
				}
			}
			res = &Result{Name: ev.Test, Package: ev.Package, Annotations: ann}
			states[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			res.Failure += ev.Output
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(states))
	for _, res := range states {
		if res.Status != "fail" {
			res.Failure = ""
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func summarize(results []Result, now time.Time) Report {
	rep := Report{GeneratedAt: now, Results: results}
	for _, r := range results {
		rep.Total++
		switch r.Status {
		case "pass":
			rep.Passed++
		case "fail":
			rep.Failed++
		case "skip":
			rep.Skipped++
		}
	}
	return rep
}

var statusIcons = map[string]string{"pass": "✅", "fail": "❌", "skip": "⏭️", "not run": "⚪"}

func writeMarkdown(w io.Writer, rep Report, title string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Tenantcore %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	status := "✅ PASSED"
	if rep.Failed > 0 {
		status = "❌ FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", status)

	rate := 0.0
	if rep.Total > 0 {
		rate = float64(rep.Passed) / float64(rep.Total) * 100
	}
	sb.WriteString("| Total | Passed | Failed | Skipped | Pass Rate |\n|-------|--------|--------|---------|-----------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %.1f%% |\n\n", rep.Total, rep.Passed, rep.Failed, rep.Skipped, rate)

	byArea := make(map[string][]Result)
	for _, r := range rep.Results {
		byArea[r.Annotations.Area] = append(byArea[r.Annotations.Area], r)
	}
	areas := make([]string, 0, len(byArea))
	for a := range byArea {
		areas = append(areas, a)
	}
	sort.Strings(areas)

	for _, a := range areas {
		fmt.Fprintf(&sb, "## %s\n\n", a)
		sb.WriteString("| ID | Test | Type | Status | Purpose | Security |\n|----|------|------|--------|---------|----------|\n")
		for _, t := range byArea[a] {
			security := t.Annotations.Security
			if security != "" {
				security = "**" + security + "**"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				t.Annotations.TestCaseID, t.Name, t.Annotations.Type, statusIcons[t.Status], t.Annotations.Purpose, security)
		}
		sb.WriteString("\n")
	}

	if rep.Failed > 0 {
		sb.WriteString("## Failures\n\n")
		for _, t := range rep.Results {
			if t.Status == "fail" {
				fmt.Fprintf(&sb, "### %s (%s)\n```\n%s\n```\n\n", t.Name, t.Package, t.Failure)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
