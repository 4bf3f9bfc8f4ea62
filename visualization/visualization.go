// Package visualization builds the optional visualization.json document
// (spec.md §6, requested via commitgroup run -i): one point per sub-hunk
// projected to 2D, tagged with its cluster, plus one entry per cluster
// naming its generated commit message.
//
// The dimensionality-reduction pass itself is out of scope (spec.md §1
// excludes "the dimensionality-reduction visualization pass"); Projector is
// the documented interface boundary a real implementation would satisfy.
package visualization

import (
	"encoding/json"
	"os"

	"github.com/toyinlola/commitgroup/diffmodel"
)

// Point2D is a 2D coordinate a Projector assigns to one embedding vector.
type Point2D struct {
	X float64
	Y float64
}

// Projector reduces a batch of high-dimensional embeddings to 2D points,
// one per input vector, in input order.
type Projector interface {
	Project(vectors []diffmodel.EmbeddingVector) ([]Point2D, error)
}

// NotImplementedProjector satisfies Projector without performing any real
// dimensionality reduction: every point lands at the origin. It exists so
// the -i flag has something to call; swapping in a real UMAP/t-SNE
// implementation means only replacing the Projector passed to Build.
type NotImplementedProjector struct{}

func (NotImplementedProjector) Project(vectors []diffmodel.EmbeddingVector) ([]Point2D, error) {
	return make([]Point2D, len(vectors)), nil
}

// Point is one entry in the document's points array.
type Point struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ClusterID int     `json:"cluster_id"`
	Filepath  string  `json:"filepath"`
	Preview   string  `json:"preview"`
}

// ClusterInfo is one entry in the document's clusters array.
type ClusterInfo struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

// Document is the visualization.json document described in spec.md §6.
type Document struct {
	Points   []Point       `json:"points"`
	Clusters []ClusterInfo `json:"clusters"`
}

// previewChars bounds how much of a sub-hunk's post-image feeds the point
// preview string.
const previewChars = 80

// Build projects vectors (one per sub-hunk, same order as subHunks and
// clusters' indices) and assembles the document: one point per sub-hunk,
// one cluster entry per cluster carrying its commit message.
func Build(projector Projector, subHunks []*diffmodel.DiffChunk, vectors []diffmodel.EmbeddingVector, clusters []diffmodel.Cluster, messages []string) (*Document, error) {
	points2D, err := projector.Project(vectors)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	for clusterID, cl := range clusters {
		message := ""
		if clusterID < len(messages) {
			message = messages[clusterID]
		}
		doc.Clusters = append(doc.Clusters, ClusterInfo{ID: clusterID, Message: message})

		for _, idx := range cl.Indices {
			h := subHunks[idx]
			doc.Points = append(doc.Points, Point{
				ID:        idx,
				X:         points2D[idx].X,
				Y:         points2D[idx].Y,
				ClusterID: clusterID,
				Filepath:  h.NewFilepath,
				Preview:   preview(h),
			})
		}
	}
	return doc, nil
}

func preview(h *diffmodel.DiffChunk) string {
	lines := h.PostImageLines()
	text := ""
	for i, l := range lines {
		if i > 0 {
			text += "\n"
		}
		text += l
		if len(text) >= previewChars {
			break
		}
	}
	if len(text) > previewChars {
		text = text[:previewChars]
	}
	return text
}

// Write marshals doc to path as indented JSON.
func Write(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
