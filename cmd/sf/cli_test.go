package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	sfBinary     string
	sfBinaryOnce sync.Once
	sfBinaryErr  error
)

// getSFBinary builds the sf binary once and returns its path.
func getSFBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping CLI test in short mode")
	}
	sfBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			sfBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "sf-test-*")
		if err != nil {
			sfBinaryErr = err
			return
		}
		sfBinary = filepath.Join(tmpDir, "sf")

		cmd := exec.Command("go", "build", "-o", sfBinary, "./cmd/sf")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			sfBinaryErr = fmt.Errorf("%w: %s", err, output)
		}
	})
	if sfBinaryErr != nil {
		t.Fatalf("failed to build sf: %v", sfBinaryErr)
	}
	return sfBinary
}

const (
	testDims      = 16
	testGraphDims = 2
)

// runSF executes sf in dir with the hash embedder and returns stdout.
func runSF(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getSFBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "xdg"),
		"SF_ROOT=",
		"SF_EMBEDDING_PROVIDER=hash",
		fmt.Sprintf("SF_EMBEDDING_DIMENSIONS=%d", testDims),
		fmt.Sprintf("SF_ROUTER_GRAPH_DIMS=%d", testGraphDims),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return string(out), fmt.Errorf("%w: %s", err, stderr.String())
	}
	return string(out), nil
}

func mustRunSF(t *testing.T, dir string, v any, args ...string) {
	t.Helper()
	out, err := runSF(t, dir, args...)
	if err != nil {
		t.Fatalf("sf %s failed: %v\nOutput: %s", strings.Join(args, " "), err, out)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("sf %s: parsing JSON: %v\nOutput: %s", strings.Join(args, " "), err, out)
	}
}

const testPapers = `{"id":"R","title":"Root survey","abstract":"A survey of phylogenetic inference methods for large sequence alignments.","references":["A","B"]}
{"id":"A","title":"Likelihood trees","abstract":"Maximum likelihood phylogenetic inference with efficient tree search heuristics.","references":["C"]}
{"id":"B","title":"Bayesian trees","abstract":"Bayesian phylogenetic inference using Markov chain Monte Carlo over tree topologies.","references":["C","OUTSIDE"]}
{"id":"C","title":"Substitution models","abstract":"Nucleotide substitution models and rate variation across alignment sites."}
`

// setupRepo initializes a repository and imports the diamond corpus.
func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRunSF(t, dir, nil, "init")

	input := filepath.Join(dir, "input.jsonl")
	if err := os.WriteFile(input, []byte(testPapers), 0644); err != nil {
		t.Fatal(err)
	}
	var imported struct {
		Added int `json:"added"`
		Total int `json:"total"`
	}
	mustRunSF(t, dir, &imported, "import", input)
	if imported.Added != 4 || imported.Total != 4 {
		t.Fatalf("import = %+v, want 4 added", imported)
	}
	return dir
}

func writeClusters(t *testing.T, dir string) {
	t.Helper()
	centroid := func(hot int) string {
		vals := make([]string, testDims+testGraphDims)
		for i := range vals {
			vals[i] = "0"
		}
		vals[hot] = "1"
		return "[" + strings.Join(vals, ",") + "]"
	}
	body := fmt.Sprintf(`{"id":1,"paper_ids":["R"],"centroid":%s}
{"id":2,"paper_ids":["A","B"],"centroid":%s}
`, centroid(0), centroid(1))
	if err := os.WriteFile(filepath.Join(dir, ".searchforest", "clusters.jsonl"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCLI_InitTwiceFails(t *testing.T) {
	dir := t.TempDir()
	mustRunSF(t, dir, nil, "init")
	if _, err := runSF(t, dir, "init"); err == nil {
		t.Fatal("second init should fail")
	}
}

func TestCLI_NeighborsAndCheck(t *testing.T) {
	dir := setupRepo(t)

	var nb NeighborsResponse
	mustRunSF(t, dir, &nb, "neighbors", "R")
	if strings.Join(nb.Hop1, ",") != "A,B" || strings.Join(nb.Hop2, ",") != "C,OUTSIDE" {
		t.Errorf("neighbors = %+v", nb)
	}

	var check CheckResult
	mustRunSF(t, dir, &check, "check")
	if check.Status != "ok" || check.Papers != 4 || check.Dangling != 1 {
		t.Errorf("check = %+v", check)
	}

	if _, err := runSF(t, dir, "neighbors", "missing"); err == nil {
		t.Error("neighbors of unknown paper should fail")
	}
}

func TestCLI_Tree(t *testing.T) {
	dir := setupRepo(t)

	var res struct {
		Tree struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"tree"`
		KeywordPapers map[string][]struct {
			PaperID string `json:"paper_id"`
		} `json:"keyword_papers"`
		Hop1 []string `json:"hop1"`
		Hop2 []string `json:"hop2"`
	}
	htmlPath := filepath.Join(dir, "tree.html")
	mustRunSF(t, dir, &res, "tree", "phylogenetic inference", "--paper", "R", "--k1", "3", "--k2", "2", "--html", htmlPath)

	if res.Tree.ID != "phylogenetic inference" {
		t.Errorf("root id = %q", res.Tree.ID)
	}
	if len(res.Tree.Children) == 0 || len(res.Tree.Children) > 3 {
		t.Errorf("root has %d children, want 1..3", len(res.Tree.Children))
	}
	if len(res.Hop1) != 2 {
		t.Errorf("hop1 = %v", res.Hop1)
	}
	for kw, list := range res.KeywordPapers {
		seen := map[string]bool{}
		for _, p := range list {
			if seen[p.PaperID] {
				t.Errorf("keyword %q lists %s twice", kw, p.PaperID)
			}
			seen[p.PaperID] = true
		}
	}
	if html, err := os.ReadFile(htmlPath); err != nil || !strings.Contains(string(html), "cytoscape") {
		t.Errorf("html not written: %v", err)
	}

	if _, err := runSF(t, dir, "tree", "x", "--paper", "R", "--k1", "0"); err == nil {
		t.Error("k1=0 should fail")
	}
}

func TestCLI_IndexAndSemanticSearch(t *testing.T) {
	dir := setupRepo(t)

	var build IndexBuildResult
	mustRunSF(t, dir, &build, "index", "build", "--no-progress")
	if build.PapersIndexed != 4 {
		t.Errorf("indexed %d papers, want 4", build.PapersIndexed)
	}

	var check IndexCheckResult
	mustRunSF(t, dir, &check, "index", "check")
	if check.Status != "healthy" {
		t.Errorf("index check = %+v", check)
	}

	var search SearchResponse
	mustRunSF(t, dir, &search, "search", "--semantic", "bayesian phylogenetic inference")
	if search.Total == 0 {
		t.Error("semantic search found nothing")
	}
}

func TestCLI_ExploreCachesAndKW2PIDs(t *testing.T) {
	dir := setupRepo(t)
	writeClusters(t, dir)

	var imported ClusterImportResult
	mustRunSF(t, dir, &imported, "cluster", "import")
	if imported.Clusters != 2 || imported.Assigned != 3 {
		t.Fatalf("cluster import = %+v", imported)
	}

	var routed []RouteHit
	mustRunSF(t, dir, &routed, "route", "phylogenetic inference", "--top-k", "2")
	if len(routed) != 2 {
		t.Fatalf("route returned %d hits", len(routed))
	}

	var miss KW2PIDsResponse
	mustRunSF(t, dir, &miss, "kw2pids", "phylogenetic inference", "--top-k", "1")
	if miss.Message == "" {
		t.Errorf("kw2pids before explore should report no cache")
	}

	var first, second struct {
		Cached   bool `json:"cached"`
		Clusters []struct {
			ClusterID int `json:"cluster_id"`
		} `json:"clusters"`
	}
	mustRunSF(t, dir, &first, "explore", "phylogenetic inference", "--top-k", "1")
	mustRunSF(t, dir, &second, "explore", "phylogenetic inference", "--top-k", "1")
	if first.Cached || !second.Cached {
		t.Errorf("cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if len(first.Clusters) != 1 || first.Clusters[0].ClusterID != second.Clusters[0].ClusterID {
		t.Errorf("explore clusters differ: %+v vs %+v", first.Clusters, second.Clusters)
	}

	var hit KW2PIDsResponse
	mustRunSF(t, dir, &hit, "kw2pids", "phylogenetic inference", "--top-k", "1")
	if hit.Message != "" {
		t.Errorf("kw2pids after explore: %q", hit.Message)
	}
}

func TestCLI_Config(t *testing.T) {
	dir := setupRepo(t)

	mustRunSF(t, dir, nil, "config", "set", "tree.k1", "4")
	var got map[string]any
	mustRunSF(t, dir, &got, "config", "get", "tree.k1")
	if got["tree.k1"] != float64(4) {
		t.Errorf("tree.k1 = %v, want 4", got["tree.k1"])
	}

	if _, err := runSF(t, dir, "config", "set", "tree.k1", "0"); err == nil {
		t.Error("k1=0 should be rejected")
	}
	if _, err := runSF(t, dir, "config", "get", "tree.nope"); err == nil {
		t.Error("unknown key should be rejected")
	}
}
