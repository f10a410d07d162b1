// lltest converts every function of a set of .ll files and compares the
// tree dumps against golden files stored next to them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/config"
	"github.com/xplshn/lltree/pkg/convert"
	"github.com/xplshn/lltree/pkg/llimport"
	"github.com/xplshn/lltree/pkg/tree"
)

// Golden is the stored expectation for one input file.
type Golden struct {
	Flags        string            `json:"flags,omitempty"`
	Funcs        map[string]string `json:"funcs"`
	Fingerprints map[string]string `json:"fingerprints"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	testFiles  = flag.String("test-files", "tests/*.ll", "Glob pattern(s) for files to test (space-separated).")
	skipFiles  = flag.String("skip-files", "", "Files to skip (space-separated).")
	update     = flag.Bool("update", false, "Rewrite the golden files from the current output.")
	flagString = flag.String("flags", "", "Feature and warning flags stored in new golden files (e.g. \"-Fno-invalidate\").")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jsonDir    = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	jobs       = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}
	setupInterruptHandler()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := run(files)
	printSummary(results)
	resultsMap := writeJSONReport(results)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func setupInterruptHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func run(files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				start := time.Now()
				r := testFile(file)
				r.Duration = time.Since(start)
				resultsChan <- r
			}
		}()
	}

	// Files with identical content are tested once
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var all []*FileTestResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all
}

func readGolden(path string) (*Golden, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g Golden
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, "parse %s", path)
	}
	return &g, nil
}

func writeGolden(path string, g *Golden) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// convertFile lowers every function of file under flags.
func convertFile(file, flags string) (*Golden, error) {
	cfg := config.NewConfig()
	if err := cfg.ApplyFlagString(flags); err != nil {
		return nil, err
	}

	m, err := llimport.ParseFile(file)
	if err != nil {
		return nil, err
	}

	g := &Golden{Flags: flags, Funcs: map[string]string{}, Fingerprints: map[string]string{}}
	conv := convert.New(cfg, tree.Factory{})
	for _, fn := range m.Funcs {
		out, err := conv.Convert(fn)
		if err != nil {
			g.Funcs[fn.Name] = "error: " + err.Error()
			continue
		}
		g.Funcs[fn.Name] = tree.DumpString(out)
		g.Fingerprints[fn.Name] = fmt.Sprintf("%016x", tree.Fingerprint(out))
	}
	return g, nil
}

func testFile(file string) *FileTestResult {
	goldenFile := getJSONPath(file)
	want, err := readGolden(goldenFile)
	missing := os.IsNotExist(err)
	if err != nil && !missing {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}

	if *update {
		flags := *flagString
		if want != nil && flags == "" {
			flags = want.Flags
		}
		got, err := convertFile(file, flags)
		if err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		if err := writeGolden(goldenFile, got); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to write golden file: %v", err)}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file written to " + goldenFile}
	}

	if missing {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}

	got, err := convertFile(file, want.Flags)
	if err != nil {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Conversion failed", Diff: err.Error()}
	}

	if diff := cmp.Diff(want.Funcs, got.Funcs); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Tree dump mismatch", Diff: diff}
	}
	if diff := cmp.Diff(want.Fingerprints, got.Fingerprints); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Fingerprint mismatch", Diff: diff}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: fmt.Sprintf("%d function(s) match", len(got.Funcs))}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		if *verbose && result.Duration > 0 {
			fmt.Printf("  took %s\n", formatDuration(result.Duration))
		}
		total += result.Duration
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sSummary:%s %s%d passed%s, %s%d failed%s, %s%d skipped%s, %s%d errors%s, %d total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if *verbose {
		fmt.Printf("Conversion time: %s\n", strings.TrimSpace(formatDuration(total)))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "bad pattern %s", pattern)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}
