/*
 *	Copyright 2026 The MLExport Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// train fits the character-level LSTM sequence model on the fixed toy
// dataset (echo targets, MSE loss, Adam) and exports the trained model to
// ONNX. Optionally also saves a native checkpoint directory.
//
// Usage:
//
//	go run ./textgen/train
package main

import (
	"flag"
	"fmt"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/mlexport/examples/textgen"
)

var (
	flagOutput       = flag.String("output", "models/miprov2-model.onnx", "Path of the exported ONNX file.")
	flagSteps        = flag.Int("steps", 10, "Number of training steps (the dataset is one full batch per step).")
	flagLearningRate = flag.Float64("learning_rate", 0.001, "Adam learning rate.")
	flagCheckpoint   = flag.String("checkpoint", "", "Directory to save a native checkpoint to. Empty disables checkpointing.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	backend := backends.MustNew()
	defer backend.Finalize()

	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, *flagLearningRate)

	var checkpoint *checkpoints.Handler
	if *flagCheckpoint != "" {
		checkpoint = must.M1(checkpoints.Build(ctx).Dir(*flagCheckpoint).Keep(3).Done())
	}

	inputs, targets := textgen.TrainingBatch()
	dataset := must.M1(datasets.InMemoryFromData(backend, "toy text",
		[]any{inputs}, []any{targets})).
		BatchSize(len(inputs), false).Infinite(true)

	trainer := train.NewTrainer(backend, ctx, textgen.SequenceModelGraph,
		losses.MeanSquaredError,
		optimizers.Adam().Done(),
		nil, nil) // trainMetrics, evalMetrics

	fmt.Println("Starting training...")
	loop := train.NewLoop(trainer)
	commandline.AttachProgressBar(loop)
	metrics := must.M1(loop.RunSteps(dataset, *flagSteps))
	fmt.Printf("Training completed, final loss: %.4f\n", metrics[0].Value().(float32))

	if checkpoint != nil {
		must.M(checkpoint.Save())
		fmt.Printf("Checkpoint saved to %s\n", checkpoint.Dir())
	}

	model := must.M1(textgen.ExportSequenceModel(ctx))
	must.M(model.Save(*flagOutput))
	fmt.Printf("Model exported to %s\n", *flagOutput)
}
