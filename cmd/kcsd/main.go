package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"kcsd/internal/models"
	"kcsd/pkg/config"
	"kcsd/pkg/estimator"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "Path to a YAML configuration file (optional)")
	estimate := flag.String("estimate", "CSD", "Quantity to estimate: CSD or POT")
	runCV := flag.Bool("cv", true, "Select the regularization parameter by cross-validation")
	numCores := flag.Int("cores", runtime.NumCPU(), "Number of CPU cores to use (default: all available)")
	verbose := flag.Bool("verbose", false, "Print progress messages during assembly and cross-validation")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Processing.NumCores = *numCores

	// Without a config file, tune the estimation for the demo dataset: the
	// Method of Images saline correction on a dense grid around the
	// electrodes. A supplied config keeps its own grid and MoI settings.
	if *configPath == "" {
		cfg.Estimation.MoI = true
		cfg.Grid.Gdx = 0.05
		cfg.Grid.Gdy = 0.05
		cfg.Grid.XMin = ptr(-2.0)
		cfg.Grid.XMax = ptr(2.0)
		cfg.Grid.YMin = ptr(-2.0)
		cfg.Grid.YMax = ptr(2.0)
	}

	elePos := [][]float64{
		{-0.2, -0.2}, {0, 0}, {0, 1}, {1, 0}, {1, 1}, {0.5, 0.5}, {1.2, 1.2},
	}
	pots := [][]float64{
		{-1}, {-1}, {-1}, {0}, {0}, {1}, {-1.5},
	}

	rec, err := models.NewRecording(elePos, pots)
	if err != nil {
		log.Fatalf("Invalid recording: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("KERNEL CURRENT SOURCE DENSITY ESTIMATION (kCSD)")
	fmt.Println("================================")

	startTime := time.Now()
	est, err := estimator.New(rec, cfg)
	if err != nil {
		log.Fatalf("Failed to build estimator: %v", err)
	}
	if *verbose {
		est.SetProgressCallback(func(completed, total int, message string) {
			if message != "" {
				fmt.Println(message)
			}
		})
	}

	if *runCV {
		fmt.Println("Cross-validating regularization parameter...")
		lambda, err := est.CrossValidate(nil, 0)
		if err != nil {
			log.Fatalf("Cross-validation failed: %v", err)
		}
		fmt.Printf("Selected lambda: %g\n", lambda)
	} else {
		fmt.Printf("Using configured lambda: %g\n", est.Lambda())
	}

	values, err := est.Values(estimator.Estimate(*estimate))
	if err != nil {
		log.Fatalf("Estimation failed: %v", err)
	}
	elapsed := time.Since(startTime)

	rows, cols := values.Dims()
	col := make([]float64, rows)
	for i := 0; i < rows; i++ {
		col[i] = values.At(i, 0)
	}

	shape := est.EvalShape()
	src := est.SourceGrid()
	fmt.Printf("\nEstimation completed in %.2f seconds\n", elapsed.Seconds())
	fmt.Printf("Evaluation grid: %v (%d points, %d timepoints)\n", shape, rows, cols)
	fmt.Printf("Source grid: %dx%dx%d sources, spacing %.4g, radius %.4g\n",
		src.Nx, src.Ny, src.Nz, src.DS, src.R)
	fmt.Printf("\n%s statistics (first timepoint):\n", *estimate)
	fmt.Printf("  min:  %.6g\n", floats.Min(col))
	fmt.Printf("  max:  %.6g\n", floats.Max(col))
	fmt.Printf("  mean: %.6g\n", stat.Mean(col, nil))
	fmt.Printf("  std:  %.6g\n", stat.StdDev(col, nil))
}

func ptr(v float64) *float64 { return &v }
