package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// addfcLayers creates the fully connected layers of a network on graph
// g. Layer i has hiddenSizes[i] units, a bias unit if biases[i] is true,
// and activations[i] as its activation function. The first layer takes
// features inputs.
func addfcLayers(g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int) []Layer {
	layers := make([]Layer, len(hiddenSizes))

	in := features
	for i, out := range hiddenSizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, out),
			G.WithName(fmt.Sprintf("L%dW", i)),
			G.WithInit(init),
		)

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, out),
				G.WithName(fmt.Sprintf("L%dB", i)),
				G.WithInit(G.Zeroes()),
			)
		}

		layers[i] = &fcLayer{
			weights: weights,
			bias:    bias,
			act:     activations[i],
		}
		in = out
	}
	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.Weights())
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights: %v", err)
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, f.Bias(), nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: could not add bias: %v", err)
		}
	}
	if f.Activation() == nil || f.Activation().IsNil() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	var newBias *G.Node
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: f.Weights().CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}
