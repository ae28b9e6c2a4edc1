// Package network implements the neural networks used as function
// approximators by agents. Networks are built on Gorgonia computational
// graphs, and every network owns its own graph.
package network

import (
	"encoding/gob"

	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network on a Gorgonia computational
// graph. The network's graph is populated with its forward pass on
// construction, so that running a VM on Graph() after SetInput()
// computes Output().
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node

	gob.GobEncoder
	gob.GobDecoder
}

// Layer implements a single layer of a neural network
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	CloneTo(*G.ExprGraph) Layer
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}
