// Package g2o reads and writes planar pose graphs in the g2o text format:
//
//	VERTEX_SE2 id x y theta
//	EDGE_SE2 from to dx dy dtheta i11 i12 i13 i22 i23 i33
//	FIX id
//
// Edge information matrices are given by their upper triangle in row order. Lines starting with
// '#' are comments.
package g2o

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/logging"
	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/spatialmath"
)

// Tags understood by Read.
const (
	TagVertex = "VERTEX_SE2"
	TagEdge   = "EDGE_SE2"
	TagFix    = "FIX"

	commentChar = "#"
)

type rawVertex struct {
	line int
	pose spatialmath.Pose2D
}

type rawEdge struct {
	line     int
	from, to int
	edge     posegraph.Edge
}

type fileContents struct {
	vertices map[int]rawVertex
	edges    []rawEdge
	fixed    map[int]int
	unknown  map[string]int
}

// ReadFile reads a graph from a g2o file.
func ReadFile(path string, logger logging.Logger) (*posegraph.Graph, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	g, err := Read(f, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return g, nil
}

// Read parses a g2o document. Vertex ids need not be contiguous or sorted; they are mapped to
// graph indices in ascending id order, so the smallest id becomes the anchor vertex 0. Only that
// vertex may be named in a FIX line. Unknown tags are skipped with a warning. Parse errors name
// the offending line.
func Read(in io.Reader, logger logging.Logger) (*posegraph.Graph, error) {
	contents := fileContents{
		vertices: map[int]rawVertex{},
		fixed:    map[int]int{},
		unknown:  map[string]int{},
	}
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line, _, _ := strings.Cut(scanner.Text(), commentChar)
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if err := contents.parseLine(lineNum, tokens); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for tag, count := range contents.unknown {
		logger.Warnw("skipped unknown g2o tag", "tag", tag, "lines", count)
	}
	return contents.build()
}

func (c *fileContents) parseLine(lineNum int, tokens []string) error {
	tag, args := tokens[0], tokens[1:]
	switch tag {
	case TagVertex:
		if len(args) != 4 {
			return errors.Errorf("%s wants 4 values, got %d", TagVertex, len(args))
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		values, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		if prev, ok := c.vertices[id]; ok {
			return errors.Errorf("vertex %d already defined on line %d", id, prev.line)
		}
		c.vertices[id] = rawVertex{line: lineNum, pose: spatialmath.NewPose2D(values[0], values[1], values[2])}
	case TagEdge:
		if len(args) != 11 {
			return errors.Errorf("%s wants 11 values, got %d", TagEdge, len(args))
		}
		from, err := parseID(args[0])
		if err != nil {
			return err
		}
		to, err := parseID(args[1])
		if err != nil {
			return err
		}
		values, err := parseFloats(args[2:])
		if err != nil {
			return err
		}
		info := mat.NewSymDense(3, []float64{
			values[3], values[4], values[5],
			values[4], values[6], values[7],
			values[5], values[7], values[8],
		})
		c.edges = append(c.edges, rawEdge{
			line: lineNum,
			from: from,
			to:   to,
			edge: posegraph.NewEdge(from, to, spatialmath.NewPose2D(values[0], values[1], values[2]), info),
		})
	case TagFix:
		if len(args) == 0 {
			return errors.Errorf("%s wants at least one id", TagFix)
		}
		for _, arg := range args {
			id, err := parseID(arg)
			if err != nil {
				return err
			}
			c.fixed[id] = lineNum
		}
	default:
		c.unknown[tag]++
	}
	return nil
}

func (c *fileContents) build() (*posegraph.Graph, error) {
	if len(c.vertices) == 0 {
		return nil, errors.New("no vertices")
	}
	ids := make([]int, 0, len(c.vertices))
	for id := range c.vertices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	index := make(map[int]int, len(ids))
	g := &posegraph.Graph{}
	for _, id := range ids {
		index[id] = g.AddVertex(c.vertices[id].pose)
	}

	for id, line := range c.fixed {
		if id != ids[0] {
			return nil, errors.Errorf("line %d: only the first vertex (%d) can be fixed, not %d", line, ids[0], id)
		}
	}
	for _, raw := range c.edges {
		from, ok := index[raw.from]
		if !ok {
			return nil, errors.Errorf("line %d: edge references unknown vertex %d", raw.line, raw.from)
		}
		to, ok := index[raw.to]
		if !ok {
			return nil, errors.Errorf("line %d: edge references unknown vertex %d", raw.line, raw.to)
		}
		e := raw.edge
		e.From, e.To = from, to
		g.AddEdge(e)
	}
	return g, nil
}

func parseID(token string) (int, error) {
	id, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Errorf("invalid vertex id %q", token)
	}
	return id, nil
}

func parseFloats(tokens []string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, errors.Errorf("invalid number %q", token)
		}
		out[i] = v
	}
	return out, nil
}

// WriteFile writes the graph to path, replacing any existing file.
func WriteFile(path string, g *posegraph.Graph) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	bw := bufio.NewWriter(f)
	if err := Write(bw, g); err != nil {
		return err
	}
	return bw.Flush()
}

// Write encodes the graph with vertex ids equal to graph indices and vertex 0 fixed. Numbers are
// written with the fewest digits that read back to the same float64.
func Write(out io.Writer, g *posegraph.Graph) error {
	for i, v := range g.Vertices {
		if _, err := fmt.Fprintf(out, "%s %d %s %s %s\n", TagVertex, i, formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Theta)); err != nil {
			return err
		}
	}
	if len(g.Vertices) > 0 {
		if _, err := fmt.Fprintf(out, "%s 0\n", TagFix); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		info := e.Information
		if info == nil {
			info = posegraph.IdentityInformation()
		}
		values := []float64{
			e.Measurement.X, e.Measurement.Y, e.Measurement.Theta,
			info.At(0, 0), info.At(0, 1), info.At(0, 2),
			info.At(1, 1), info.At(1, 2),
			info.At(2, 2),
		}
		formatted := make([]string, len(values))
		for k, v := range values {
			formatted[k] = formatFloat(v)
		}
		if _, err := fmt.Fprintf(out, "%s %d %d %s\n", TagEdge, e.From, e.To, strings.Join(formatted, " ")); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
