package main

import (
	"path/filepath"
	"testing"
)

func TestCorpus(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "tests", "*.ll"))
	if err != nil { t.Fatal(err) }
	if len(files) == 0 { t.Fatal("no corpus files") }

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			r := testFile(file)
			if r.Status != "PASS" { t.Errorf("%s: %s\n%s", r.Status, r.Message, r.Diff) }
		})
	}
}

func TestCorpusGoldensPresent(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "tests", "*.ll"))
	if err != nil { t.Fatal(err) }

	for _, file := range files {
		g, err := readGolden(getJSONPath(file))
		if err != nil { t.Errorf("%s: %v", file, err); continue }
		if len(g.Funcs) == 0 || len(g.Funcs) != len(g.Fingerprints) { t.Errorf("%s: %d dumps, %d fingerprints", file, len(g.Funcs), len(g.Fingerprints)) }
	}
}
