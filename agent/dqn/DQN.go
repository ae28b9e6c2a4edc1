// Package dqn implements the DQN algorithm: epsilon-greedy action
// selection over a neural network Q-function of stacked frames, trained
// by minibatch Q-learning from an experience replay memory with a
// periodically refreshed target network.
package dqn

import (
	"fmt"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/expreplay"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/network"
	"github.com/samuelfneumann/goatari/solver"
	"github.com/samuelfneumann/goatari/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DQN implements the deep Q-network algorithm with the MSE loss.
type DQN struct {
	actions     []environment.Action
	actionIndex map[environment.Action]int
	window      int

	// Network for selecting actions, one stack of frames at a time
	policyNet   network.NeuralNet
	policyNetVM G.VM
	policyStale bool // Whether policyNet lags behind trainNet

	// Network whose weights are adapted from batches of inputs
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     *solver.Solver

	// Network that provides the update target for a batch of inputs
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// nextStateActionValues is the input node in the graph of trainNet
	// that is given the action values of the next state. For update:
	//
	// Q(s, a) <- Q(s, a) + α * (r + γ * max Q'(s', a') - Q(s, a)) ∇Q(s, a)
	//
	// nextStateActionValues provides Q'(s', a') for all a' in s' and is
	// computed by targetNet.
	nextStateActionValues *G.Node
	selectedActions       *G.Node // One-hot actions taken in the states
	rewards               *G.Node
	discounts             *G.Node
	lossVal               G.Value

	gamma     float64
	cloneFreq int
	iteration int // Number of learning updates performed

	replay expreplay.ExperienceReplayer

	rng    *rand.Rand
	random distuv.Uniform // Uniform over action indices
}

// New creates and returns a new DQN agent which selects among the given
// legal actions
func New(actions []environment.Action, config Config,
	seed uint64) (*DQN, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("new: no legal actions")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	actionIndex := make(map[environment.Action]int, len(actions))
	for i, a := range actions {
		if _, ok := actionIndex[a]; ok {
			return nil, fmt.Errorf("new: duplicate action %v", a)
		}
		actionIndex[a] = i
	}

	batchSize := config.BatchSize()
	numActions := len(actions)
	window := config.ExpReplay.Window
	features := window * frame.Pixels

	// Behaviour network for selecting actions
	policyNet, err := network.NewMultiHeadMLP(
		features,
		1, // Only a single stack of frames is acted on at a time
		numActions,
		G.NewGraph(),
		config.Hidden,
		config.Biases,
		config.InitWFn.InitWFn(),
		config.Activations,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}

	// Create a training network which learns the weights
	trainNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %v",
			err)
	}
	gTrain := trainNet.Graph()

	// Create the target network which provides the update target
	targetNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}

	// Networks own their weights, so that learning only ever changes
	// trainNet
	if err := trainNet.Set(policyNet); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if err := targetNet.Set(trainNet); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Create nodes to compute the update target: r + γ * max[Q(s', a')]
	nextStateActionValues := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("targetActionVals"))
	rewards := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("reward"))
	discounts := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("discount"))

	updateTarget := G.Must(G.Max(nextStateActionValues, 1))
	updateTarget = G.Must(G.HadamardProd(updateTarget, discounts))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Action selected in each state. This is needed to compute the loss
	// using the correct action value since the network outputs one
	// action value per legal action
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
	)
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(updateTarget, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	d := &DQN{
		actions:               append([]environment.Action{}, actions...),
		actionIndex:           actionIndex,
		window:                window,
		policyNet:             policyNet,
		policyNetVM:           G.NewTapeMachine(policyNet.Graph()),
		trainNet:              trainNet,
		solver:                config.Solver,
		targetNet:             targetNet,
		targetNetVM:           G.NewTapeMachine(targetNet.Graph()),
		nextStateActionValues: nextStateActionValues,
		selectedActions:       selectedActions,
		rewards:               rewards,
		discounts:             discounts,
		gamma:                 config.Gamma,
		cloneFreq:             config.CloneFreq,
	}
	G.Read(cost, &d.lossVal)

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}

	// Compile the trainNet graph into a VM
	d.trainNetVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)

	d.replay, err = config.ExpReplay.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %v", err)
	}

	d.rng = rand.New(rand.NewSource(seed))
	d.random = distuv.Uniform{
		Min: 0,
		Max: float64(numActions),
		Src: rand.NewSource(seed + 1),
	}

	return d, nil
}

// SelectAction selects an action in the state described by a full stack
// of frames. With probability epsilon a uniformly random legal action
// is returned, otherwise the action of highest estimated value is.
//
// The policy network is feedforward, so continuation is ignored.
func (d *DQN) SelectAction(s *frame.Stack, epsilon float64,
	continuation bool) environment.Action {
	if s.Len() != d.window {
		panic(fmt.Sprintf("selectaction: invalid number of frames "+
			"\n\twant(%v) \n\thave(%v)", d.window, s.Len()))
	}

	if d.rng.Float64() < epsilon {
		index := int(d.random.Rand())
		if index >= len(d.actions) {
			index = len(d.actions) - 1
		}
		return d.actions[index]
	}

	values := d.ActionValues(s)
	return d.actions[floats.MaxIdx(values)]
}

// ActionValues returns the estimated value of each legal action in the
// state described by a full stack of frames
func (d *DQN) ActionValues(s *frame.Stack) []float64 {
	if d.policyStale {
		if err := d.policyNet.Set(d.trainNet); err != nil {
			panic(fmt.Sprintf("actionvalues: could not sync policy: %v",
				err))
		}
		d.policyStale = false
	}

	if err := d.policyNet.SetInput(s.Vector()); err != nil {
		panic(fmt.Sprintf("actionvalues: %v", err))
	}
	if err := d.policyNetVM.RunAll(); err != nil {
		panic(fmt.Sprintf("actionvalues: could not run policy: %v", err))
	}
	values := d.policyNet.Output().(*tensor.Dense).Data().([]float64)
	values = append([]float64{}, values...)
	d.policyNetVM.Reset()

	return values
}

// LearningUpdate samples a minibatch from the replay memory and
// performs a single gradient step on the TD error. If the replay memory
// holds too few transitions to sample from, no update is performed.
func (d *DQN) LearningUpdate() error {
	b, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("learningupdate: %v", err)
	}
	batchSize := b.Len()
	numActions := len(d.actions)

	// Previous action one-hot vectors
	oneHot := make([]float64, batchSize*numActions)
	for i, a := range b.Action {
		index, ok := d.actionIndex[a]
		if !ok {
			return fmt.Errorf("learningupdate: illegal action %v in replay "+
				"memory", a)
		}
		oneHot[i*numActions+index] = 1.0
	}
	prevActions := tensor.New(
		tensor.WithShape(batchSize, numActions),
		tensor.WithBacking(oneHot),
	)
	if err := G.Let(d.selectedActions, prevActions); err != nil {
		return fmt.Errorf("learningupdate: could not set actions: %v", err)
	}

	// Predict the action values in the next states
	if err := d.targetNet.SetInput(b.NextState); err != nil {
		return fmt.Errorf("learningupdate: could not set target net "+
			"input: %v", err)
	}
	if err := d.targetNetVM.RunAll(); err != nil {
		return fmt.Errorf("learningupdate: could not run target net: %v",
			err)
	}
	nextValues := d.targetNet.Output().(*tensor.Dense).Clone()
	d.targetNetVM.Reset()
	if err := G.Let(d.nextStateActionValues, nextValues); err != nil {
		return fmt.Errorf("learningupdate: could not set next state-action "+
			"values: %v", err)
	}

	rewardTensor := tensor.New(tensor.WithBacking(b.Reward),
		tensor.WithShape(batchSize))
	if err := G.Let(d.rewards, rewardTensor); err != nil {
		return fmt.Errorf("learningupdate: could not set reward: %v", err)
	}

	// Terminal transitions have a discount of 0
	discount := append([]float64{}, b.Discount...)
	floats.Scale(d.gamma, discount)
	discountTensor := tensor.New(tensor.WithBacking(discount),
		tensor.WithShape(batchSize))
	if err := G.Let(d.discounts, discountTensor); err != nil {
		return fmt.Errorf("learningupdate: could not set discount: %v", err)
	}

	// Run the learning step
	if err := d.trainNet.SetInput(b.State); err != nil {
		return fmt.Errorf("learningupdate: could not set train net "+
			"input: %v", err)
	}
	if err := d.trainNetVM.RunAll(); err != nil {
		d.trainNetVM.Reset()
		return fmt.Errorf("learningupdate: could not run train net: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		d.trainNetVM.Reset()
		return fmt.Errorf("learningupdate: could not step solver: %v", err)
	}
	d.trainNetVM.Reset()
	d.iteration++

	// Update the target network by setting its weights to the newly
	// learned weights
	if d.iteration%d.cloneFreq == 0 {
		if err := d.targetNet.Set(d.trainNet); err != nil {
			return fmt.Errorf("learningupdate: could not update target "+
				"net: %v", err)
		}
	}
	d.policyStale = true

	return nil
}

// Loss returns the mean squared TD error of the most recent learning
// update
func (d *DQN) Loss() float64 {
	if d.lossVal == nil {
		return 0
	}
	return d.lossVal.Data().(float64)
}

// AdmitEpisode adds a complete episode to the replay memory
func (d *DQN) AdmitEpisode(e timestep.Episode) error {
	return d.replay.AddEpisode(e)
}

// ReplayOccupancy returns the number of transitions in the replay
// memory
func (d *DQN) ReplayOccupancy() int {
	return d.replay.Capacity()
}

// CurrentIteration returns the number of learning updates performed
func (d *DQN) CurrentIteration() int {
	return d.iteration
}

// Actions returns the legal actions the agent selects among
func (d *DQN) Actions() []environment.Action {
	return append([]environment.Action{}, d.actions...)
}

// Close releases the resources held by the agent's VMs
func (d *DQN) Close() error {
	d.policyNetVM.Close()
	d.trainNetVM.Close()
	d.targetNetVM.Close()
	return nil
}
