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

// classifier trains the six-example sentiment pipeline and exports the
// logistic-regression classifier to ONNX, plus the vectorizer's feature
// names as a plain-text sidecar.
//
// Usage:
//
//	go run ./sentiment/classifier
package main

import (
	"flag"
	"fmt"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/mlexport/examples/sentiment"
	"github.com/mlexport/examples/sidecar"
)

var (
	flagModelPath    = flag.String("model", "models/text-classifier.onnx", "Path of the exported ONNX file.")
	flagFeaturesPath = flag.String("features", "models/feature_names.txt", "Path of the feature-name list.")
	flagSteps        = flag.Int("steps", 300, "Number of full-batch training steps.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	backend := backends.MustNew()
	defer backend.Finalize()

	texts, labels := sentiment.Dataset()
	vectorizer := sentiment.NewVectorizer(texts, sentiment.MaxFeatures)
	features := vectorizer.Transform(texts)
	fmt.Printf("Training on %d examples, %d features\n", len(texts), vectorizer.NumFeatures())

	ctx, loss, err := sentiment.Train(backend, features, labels, *flagSteps)
	if err != nil {
		klog.Fatalf("Training failed: %+v", err)
	}
	fmt.Printf("Final training loss: %.4f\n", loss)

	probs := must.M1(sentiment.Predict(backend, ctx, features))
	for i, text := range texts {
		fmt.Printf("  %-20q label=%.0f p(positive)=%.3f\n", text, labels[i], probs[i])
	}

	model := must.M1(sentiment.Export(ctx, vectorizer.NumFeatures()))
	must.M(model.Save(*flagModelPath))
	must.M(sidecar.WriteFeatureNames(*flagFeaturesPath, vectorizer.FeatureNames()))

	fmt.Printf("Model and features saved to %s and %s\n", *flagModelPath, *flagFeaturesPath)
	fmt.Printf("Number of features: %d\n", vectorizer.NumFeatures())
}
