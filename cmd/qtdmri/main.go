package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"qtdmri/pkg/acquisition"
	"qtdmri/pkg/config"
	"qtdmri/pkg/qtdmri"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "qtdmri.yaml", "Configuration YAML file")
	schemePath := flag.String("scheme", "", "Acquisition scheme file (overrides config)")
	signalPath := flag.String("signal", "", "Signal file (overrides config)")
	reportPath := flag.String("report", "", "Index report output file (overrides config)")
	writeDefault := flag.Bool("write-default-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeDefault {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *schemePath != "" {
		cfg.Input.SchemePath = *schemePath
	}
	if *signalPath != "" {
		cfg.Input.SignalPath = *signalPath
	}
	if *reportPath != "" {
		cfg.Output.ReportPath = *reportPath
	}
	if cfg.Input.SchemePath == "" || cfg.Input.SignalPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	tab, err := acquisition.LoadScheme(cfg.Input.SchemePath)
	if err != nil {
		log.Fatalf("Failed to load acquisition scheme: %v", err)
	}
	signal, err := acquisition.LoadSignal(cfg.Input.SignalPath)
	if err != nil {
		log.Fatalf("Failed to load signal: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("QT-DMRI CONTINUOUS BASIS FITTING")
		fmt.Println("================================")
		fmt.Printf("Samples: %d, tau shells: %d\n", tab.Len(), len(tab.TauShells()))
		fmt.Printf("Basis: radial order %d, time order %d, %d coefficients\n",
			cfg.Model.RadialOrder, cfg.Model.TimeOrder,
			qtdmri.NumberOfCoefficients(cfg.Model.RadialOrder, cfg.Model.TimeOrder))
	}

	model, err := qtdmri.NewModel(tab, cfg.Model)
	if err != nil {
		log.Fatalf("Failed to build model: %v", err)
	}

	startTime := time.Now()
	fit, err := model.Fit(signal)
	if err != nil {
		log.Fatalf("Fit failed: %v", err)
	}
	elapsed := time.Since(startTime)

	var report strings.Builder
	us := fit.SpatialScales()
	fmt.Fprintf(&report, "spatial scales (mm): %.6g %.6g %.6g\n", us[0], us[1], us[2])
	fmt.Fprintf(&report, "temporal scale (1/s): %.6g\n", fit.TemporalScale())
	fmt.Fprintf(&report, "laplacian weight: %.6g\n", fit.LaplacianWeight())
	fmt.Fprintf(&report, "sparsity weight: %.6g\n", fit.SparsityWeight())
	fmt.Fprintf(&report, "laplacian norm: %.6g\n", fit.NormOfLaplacianSignal())
	fmt.Fprintf(&report, "nonzero coefficients: %d of %d\n", fit.SparsityAbs(), model.NCoefficients())

	// Report the q-space indices at the diffusion time of every shell.
	for _, shell := range tab.TauShells() {
		tau := tab.Tau(shell[0])
		fmt.Fprintf(&report, "tau %.6g s: rtop=%.6g rtap=%.6g rtpp=%.6g msd=%.6g qiv=%.6g\n",
			tau, fit.RTOP(tau), fit.RTAP(tau), fit.RTPP(tau), fit.MSD(tau), fit.QIV(tau))
	}

	fmt.Printf("\nFit completed in %.2f seconds\n\n", elapsed.Seconds())
	fmt.Print(report.String())

	if cfg.Output.ReportPath != "" {
		if err := os.WriteFile(cfg.Output.ReportPath, []byte(report.String()), 0644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		fmt.Printf("\nReport written to: %s\n", cfg.Output.ReportPath)
	}
}
