// Package pipeline composes DiffReader, LanguageDetector/SyntaxTreeProvider,
// Chunker, ModelClient, Clusterer, and PatchAssembler into the single
// end-to-end run described in spec.md §4.8: read a diff, chunk every
// hunk, embed and cluster the sub-hunks, write one patch group per
// cluster, and generate a commit message per group.
package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toyinlola/commitgroup/asyncclient"
	"github.com/toyinlola/commitgroup/chunker"
	"github.com/toyinlola/commitgroup/clusterer"
	"github.com/toyinlola/commitgroup/diffmodel"
	"github.com/toyinlola/commitgroup/diffreader"
	"github.com/toyinlola/commitgroup/internal/config"
	"github.com/toyinlola/commitgroup/internal/errkind"
	"github.com/toyinlola/commitgroup/internal/retry"
	"github.com/toyinlola/commitgroup/langdetect"
	"github.com/toyinlola/commitgroup/modelclient"
	"github.com/toyinlola/commitgroup/patchassembler"
	"github.com/toyinlola/commitgroup/syntaxtree"
	"github.com/toyinlola/commitgroup/visualization"
)

// fallbackCommitMessage mirrors modelclient's own fallback, used when even
// the retried chat request never got a usable response.
const fallbackCommitMessage = "update code"

// maxParallelEmbedCollect bounds how many EmbedCall.Result calls run
// concurrently while draining already-completed futures, mirroring the
// pack's errgroup.SetLimit usage for bounded fan-out.
const maxParallelEmbedCollect = 8

// Manifest is the commits.json document written to the run directory: a
// JSON array of CommitGroup objects in cluster order, per spec.md §6.
type Manifest []diffmodel.CommitGroup

// runOptions are the Pipeline-level knobs the CLI facade exposes beyond the
// config file: single-shot mode and visualization emission.
type runOptions struct {
	single        bool
	visualization bool
}

// Option configures one Run invocation.
type Option func(*runOptions)

// WithSingleCluster collapses every sub-hunk into one cluster, skipping the
// clustering stage entirely: commitgroup run --single, mcommit's minimal
// mode as a short-circuit in front of C7, which is not called in this mode.
func WithSingleCluster() Option {
	return func(o *runOptions) { o.single = true }
}

// WithVisualization requests a visualization.json document, written
// alongside commits.json in the run directory Run assigns, projected by
// visualization.NotImplementedProjector (commitgroup run -i).
func WithVisualization() Option {
	return func(o *runOptions) { o.visualization = true }
}

// Run executes one end-to-end pipeline invocation, reading a unified diff
// from r and writing patch groups plus commits.json under outDir/<run-id>.
// It returns the path to that run directory and the manifest written
// there.
func Run(ctx context.Context, r io.Reader, cfg *config.Config, outDir string, logger *slog.Logger, opts ...Option) (string, *Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	hunks, err := diffreader.Read(r)
	if err != nil {
		return "", nil, err
	}
	logger.Info("diff parsed", "hunks", len(hunks))

	provider := syntaxtree.NewProvider()
	defer provider.Close()

	var subHunks []*diffmodel.DiffChunk
	for _, h := range hunks {
		lang := langdetect.Detect(h.NewFilepath)
		parts, err := chunker.Chunk(ctx, provider, h, lang, cfg.Chunking.MaxChars)
		if err != nil {
			return "", nil, errkind.New(errkind.DiffFormat, "chunking hunk", err)
		}
		subHunks = append(subHunks, parts...)
	}
	logger.Info("hunks chunked", "sub_hunks", len(subHunks))

	httpClient, err := asyncclient.NewClient(
		asyncclient.WithLogger(logger),
		asyncclient.WithPollTimeout(time.Duration(cfg.Client.PollTimeoutMs)*time.Millisecond),
		asyncclient.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
	)
	if err != nil {
		return "", nil, errkind.New(errkind.Network, "starting client", err)
	}
	defer httpClient.Close()

	model := modelclient.New(httpClient, modelclient.Config{
		Host:           cfg.Model.Host,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		ChatModel:      cfg.Model.ChatModel,
		APIKey:         cfg.APIKey,
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
	}, logger)

	vectors, err := embedAll(ctx, httpClient, model, subHunks, logger)
	if err != nil {
		return "", nil, err
	}

	var clusters []diffmodel.Cluster
	if ro.single {
		clusters = singleCluster(len(vectors))
	} else {
		clusters = clusterer.Cluster(vectors, cfg.Clustering.Threshold)
	}
	logger.Info("clustered", "clusters", len(clusters))

	runID := uuid.NewString()
	runDir := filepath.Join(outDir, runID)

	manifest := &Manifest{}
	messages := make([]string, len(clusters))
	assembler := patchassembler.New()

	for k, cl := range clusters {
		clusterHunks := make([]*diffmodel.DiffChunk, len(cl.Indices))
		for i, idx := range cl.Indices {
			clusterHunks[i] = subHunks[idx]
		}
		patches := assembler.AssembleCluster(clusterHunks)

		clusterDir := filepath.Join(runDir, fmt.Sprintf("cluster_%d", k))
		var paths []string
		var nonEmpty []string
		i := 0
		for _, p := range patches {
			if p == "" {
				continue
			}
			if err := os.MkdirAll(clusterDir, 0o755); err != nil {
				return "", nil, errkind.New(errkind.Filesystem, "creating cluster directory", err)
			}
			path := filepath.Join(clusterDir, fmt.Sprintf("patch_%d.patch", i))
			if err := os.WriteFile(path, []byte(p), 0o644); err != nil {
				return "", nil, errkind.New(errkind.Filesystem, "writing patch", err)
			}
			paths = append(paths, path)
			nonEmpty = append(nonEmpty, p)
			i++
		}
		if len(nonEmpty) == 0 {
			continue
		}

		message := requestCommitMessage(ctx, httpClient, model, logger, nonEmpty)
		messages[k] = message

		*manifest = append(*manifest, diffmodel.CommitGroup{
			PatchPaths:    paths,
			CommitMessage: message,
		})
	}

	if err := writeManifest(runDir, manifest); err != nil {
		return "", nil, err
	}

	if ro.visualization {
		doc, err := visualization.Build(visualization.NotImplementedProjector{}, subHunks, vectors, clusters, messages)
		if err != nil {
			return "", nil, errkind.New(errkind.Filesystem, "building visualization", err)
		}
		if err := visualization.Write(filepath.Join(runDir, "visualization.json"), doc); err != nil {
			return "", nil, errkind.New(errkind.Filesystem, "writing visualization", err)
		}
	}

	return runDir, manifest, nil
}

// singleCluster folds every index in [0, n) into one cluster, used by
// WithSingleCluster to skip the clustering stage entirely.
func singleCluster(n int) []diffmodel.Cluster {
	if n == 0 {
		return nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return []diffmodel.Cluster{{Indices: indices}}
}

// embedAll submits one embedding request per sub-hunk's reconstructed
// post-image, drives the client's single event loop once all requests are
// in flight, then collects results concurrently (bounded) preserving
// sub-hunk order.
func embedAll(ctx context.Context, httpClient *asyncclient.Client, model *modelclient.Client, subHunks []*diffmodel.DiffChunk, logger *slog.Logger) ([]diffmodel.EmbeddingVector, error) {
	calls := make([]*modelclient.EmbedCall, len(subHunks))
	for i, h := range subHunks {
		text := strings.Join(h.PostImageLines(), "\n")
		calls[i] = model.EmbedAsync(text)
	}

	httpClient.RunLoop()

	vectors := make([]diffmodel.EmbeddingVector, len(subHunks))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEmbedCollect)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			vectors[i] = diffmodel.EmbeddingVector(call.Result())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errkind.New(errkind.ModelResponse, "collecting embeddings", err)
	}
	logger.Info("embeddings collected", "count", len(vectors))
	return vectors, nil
}

// requestCommitMessage builds a prompt from a cluster's non-empty patches,
// submits it via C6, drives one RunLoop, and retries the whole
// submit-drive-collect round trip on transient transport failure
// (internal/retry), falling back to fallbackCommitMessage once retries are
// exhausted. The retry classification inspects the raw Future outcome via
// ChatCall.Future() rather than ChatCall.Result(), which already swallows
// failures into the fallback and would give retry.Do nothing to observe.
func requestCommitMessage(ctx context.Context, httpClient *asyncclient.Client, model *modelclient.Client, logger *slog.Logger, patches []string) string {
	prompt := buildCommitPrompt(patches)
	var call *modelclient.ChatCall
	retryErr := retry.Do(ctx, retry.DefaultMaxAttempts, func() error {
		call = model.ChatAsync(prompt)
		httpClient.RunLoop()
		if call.Future() == nil {
			return nil
		}
		_, _, err := call.Future().Wait()
		return err
	})
	if retryErr != nil {
		logger.Warn("commit message request failed after retries, falling back", "error", retryErr)
		return fallbackCommitMessage
	}
	if call == nil {
		return fallbackCommitMessage
	}
	return call.Result()
}

func buildCommitPrompt(patches []string) string {
	var b strings.Builder
	for _, p := range patches {
		b.WriteString(modelclient.FormatDiffContext(p))
	}
	return b.String()
}

// Resume re-drives C6 for an interrupted run: it reads the patch files C8
// already wrote under runDir's cluster_<k> directories (no re-chunking, no
// re-embedding), requests a commit message for every cluster, and rewrites
// commits.json. Used by `commitgroup resume <run-dir>` when a prior run
// crashed or lost its network connection after writing patches but before
// generating messages.
func Resume(ctx context.Context, runDir string, cfg *config.Config, logger *slog.Logger) (*Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clusterDirs, err := clusterDirsInOrder(runDir)
	if err != nil {
		return nil, errkind.New(errkind.Filesystem, "listing cluster directories", err)
	}
	if len(clusterDirs) == 0 {
		return nil, errkind.New(errkind.Filesystem, "resuming run",
			fmt.Errorf("no cluster_<k> directories found under %s", runDir))
	}

	httpClient, err := asyncclient.NewClient(
		asyncclient.WithLogger(logger),
		asyncclient.WithPollTimeout(time.Duration(cfg.Client.PollTimeoutMs)*time.Millisecond),
		asyncclient.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
	)
	if err != nil {
		return nil, errkind.New(errkind.Network, "starting client", err)
	}
	defer httpClient.Close()

	model := modelclient.New(httpClient, modelclient.Config{
		Host:           cfg.Model.Host,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		ChatModel:      cfg.Model.ChatModel,
		APIKey:         cfg.APIKey,
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
	}, logger)

	manifest := &Manifest{}
	for _, dir := range clusterDirs {
		paths, patches, err := readPatchFiles(dir)
		if err != nil {
			return nil, errkind.New(errkind.Filesystem, "reading patch files", err)
		}
		if len(patches) == 0 {
			continue
		}

		message := requestCommitMessage(ctx, httpClient, model, logger, patches)
		*manifest = append(*manifest, diffmodel.CommitGroup{
			PatchPaths:    paths,
			CommitMessage: message,
		})
	}

	if err := writeManifest(runDir, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// clusterDirsInOrder returns runDir's cluster_<k> subdirectories sorted by
// k, not lexicographically (so cluster_2 sorts before cluster_10).
func clusterDirsInOrder(runDir string) ([]string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, err
	}

	type indexed struct {
		k   int
		dir string
	}
	var found []indexed
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var k int
		if _, err := fmt.Sscanf(e.Name(), "cluster_%d", &k); err != nil {
			continue
		}
		found = append(found, indexed{k: k, dir: filepath.Join(runDir, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].k < found[j].k })

	dirs := make([]string, len(found))
	for i, f := range found {
		dirs[i] = f.dir
	}
	return dirs, nil
}

// readPatchFiles reads every patch_<i>.patch file in dir in index order,
// returning their paths and contents.
func readPatchFiles(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	type indexed struct {
		i    int
		path string
	}
	var found []indexed
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var i int
		if _, err := fmt.Sscanf(e.Name(), "patch_%d.patch", &i); err != nil {
			continue
		}
		found = append(found, indexed{i: i, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].i < found[j].i })

	paths := make([]string, len(found))
	patches := make([]string, len(found))
	for idx, f := range found {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, nil, err
		}
		paths[idx] = f.path
		patches[idx] = string(data)
	}
	return paths, patches, nil
}

func writeManifest(runDir string, manifest *Manifest) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errkind.New(errkind.Filesystem, "creating run directory", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errkind.New(errkind.Filesystem, "marshaling manifest", err)
	}
	path := filepath.Join(runDir, "commits.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errkind.New(errkind.Filesystem, "writing manifest", err)
	}
	return nil
}

