package main

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atoll-dev/siteplanner/internal/classifier"
	"github.com/atoll-dev/siteplanner/internal/dataset"
	"github.com/atoll-dev/siteplanner/internal/feature"
)

var (
	trainSource string
	trainOutput string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier from the stored dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		samples, err := store.ListSamples(ctx, dataset.Filter{Source: trainSource})
		if err != nil {
			return err
		}
		if len(samples) == 0 {
			return eris.New("train: dataset is empty, run synth or collect first")
		}

		// Encode labels against the sorted class list found in the data.
		classSet := make(map[string]bool)
		for _, smp := range samples {
			classSet[smp.Label] = true
		}
		classes := make([]string, 0, len(classSet))
		for c := range classSet {
			classes = append(classes, c)
		}
		sort.Strings(classes)

		classIdx := make(map[string]int, len(classes))
		for i, c := range classes {
			classIdx[c] = i
		}

		xs := make([][]float64, len(samples))
		ys := make([]int, len(samples))
		for i, smp := range samples {
			xs[i] = smp.Features.Vector()
			ys[i] = classIdx[smp.Label]
		}

		// Deterministic shuffle before the holdout split.
		rng := rand.New(rand.NewPCG(cfg.Train.Seed, cfg.Train.Seed+1))
		rng.Shuffle(len(xs), func(i, j int) {
			xs[i], xs[j] = xs[j], xs[i]
			ys[i], ys[j] = ys[j], ys[i]
		})

		holdout := int(float64(len(xs)) * cfg.Train.HoldoutFrac)
		if holdout >= len(xs) {
			holdout = 0
		}
		trainX, trainY := xs[holdout:], ys[holdout:]
		testX, testY := xs[:holdout], ys[:holdout]

		zap.L().Info("training classifier",
			zap.Int("train_samples", len(trainX)),
			zap.Int("holdout_samples", len(testX)),
			zap.Strings("classes", classes),
		)

		forest, err := classifier.Train(trainX, trainY, len(classes), classifier.TrainParams{
			Trees:    cfg.Train.Trees,
			MaxDepth: cfg.Train.MaxDepth,
			MinLeaf:  cfg.Train.MinLeaf,
			Seed:     cfg.Train.Seed,
		})
		if err != nil {
			return err
		}

		accuracy := evaluate(forest, testX, testY)

		output := trainOutput
		if output == "" {
			output = cfg.Model.Path
		}
		if err := classifier.Save(output, &classifier.Artifact{
			FeatureNames: feature.Names,
			LabelClasses: classes,
			Forest:       forest,
		}); err != nil {
			return err
		}
		if err := classifier.SaveMeta(output, classifier.Meta{
			TrainedAt:   time.Now().UTC(),
			Samples:     len(samples),
			RuleVersion: dominantRuleVersion(samples),
			Accuracy:    accuracy,
		}); err != nil {
			return err
		}

		fmt.Printf("Trained on %d samples, holdout accuracy %.3f, saved to %s\n",
			len(trainX), accuracy, output)
		return nil
	},
}

// evaluate returns the fraction of holdout samples predicted correctly.
// An empty holdout set yields zero.
func evaluate(forest *classifier.Forest, xs [][]float64, ys []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	correct := 0
	for i, x := range xs {
		probs, err := forest.PredictProba(x)
		if err != nil {
			continue
		}
		if classifier.Argmax(probs) == ys[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(xs))
}

// dominantRuleVersion reports the rule version that produced the most
// samples, for the training record.
func dominantRuleVersion(samples []dataset.Sample) string {
	counts := make(map[string]int)
	for _, smp := range samples {
		counts[smp.RuleVersion]++
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN {
			best, bestN = v, n
		}
	}
	return best
}

func init() {
	trainCmd.Flags().StringVar(&trainSource, "source", "", "restrict training to one sample source (synthetic or survey)")
	trainCmd.Flags().StringVar(&trainOutput, "output", "", "artifact path (default from config)")
	rootCmd.AddCommand(trainCmd)
}
