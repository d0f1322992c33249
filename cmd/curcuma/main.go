// main is the entry point for the curcuma CLI: it registers subcommands
// for single-point energies, Hessian/frequency analysis and MD runs, and
// executes the root command, following dynsim's cmd/dynsim/main.go layout.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/config"
	"github.com/mdkit/curcuma/internal/facade"
	"github.com/mdkit/curcuma/internal/hessian"
	"github.com/mdkit/curcuma/internal/md"
	"github.com/mdkit/curcuma/internal/molfile"
	"github.com/mdkit/curcuma/internal/potential"
	"github.com/mdkit/curcuma/internal/restart"
	"github.com/mdkit/curcuma/internal/trajstore"
	"github.com/mdkit/curcuma/internal/tuiview"
)

var (
	dataDir     string
	method      string
	threads     int
	configFile  string
	restartFile string
	live        bool
	charge      int
	spin        int
	hmass       float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "curcuma",
		Short: "molecular dynamics and vibrational analysis toolkit",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".curcuma", "run data directory")
	rootCmd.PersistentFlags().StringVar(&method, "method", "classical", "energy method (classical, gfn2, ...)")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 1, "worker threads")
	rootCmd.PersistentFlags().IntVar(&charge, "charge", 0, "total charge")
	rootCmd.PersistentFlags().IntVar(&spin, "spin", 1, "spin multiplicity")
	rootCmd.PersistentFlags().Float64Var(&hmass, "hmass", 1, "hydrogen mass repartitioning factor")

	energyCmd := &cobra.Command{
		Use:   "energy [xyz]",
		Short: "single-point energy and gradient",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnergy,
	}

	hessianCmd := &cobra.Command{
		Use:   "hessian [xyz]",
		Short: "finite-difference Hessian and vibrational frequencies",
		Args:  cobra.ExactArgs(1),
		RunE:  runHessian,
	}
	hessianCmd.Flags().StringVar(&configFile, "config", "", "hessian config JSON")

	mdCmd := &cobra.Command{
		Use:   "md [xyz]",
		Short: "run a molecular dynamics simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runMD,
	}
	mdCmd.Flags().StringVar(&configFile, "config", "", "md config JSON")
	mdCmd.Flags().StringVar(&restartFile, "restart", "", "restart file to resume from")
	mdCmd.Flags().BoolVar(&live, "live", false, "show a live terminal view while running")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded md runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run's energy and temperature trace",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	rootCmd.AddCommand(energyCmd, hessianCmd, mdCmd, listCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSystem(path string) (*chem.System, error) {
	z, geom, _, err := molfile.ReadXYZ(path)
	if err != nil {
		return nil, err
	}
	return chem.NewSystem(z, geom, charge, spin, hmass), nil
}

func runEnergy(cmd *cobra.Command, args []string) error {
	sys, err := loadSystem(args[0])
	if err != nil {
		return err
	}

	fac := facade.New(facade.Options{Method: method, Threads: threads})
	if err := fac.SetSystem(sys); err != nil {
		return err
	}
	if err := fac.SetGeometry(sys.Geometry); err != nil {
		return err
	}
	energy, err := fac.Evaluate(true)
	if err != nil {
		return err
	}

	fmt.Printf("method: %s\n", method)
	fmt.Printf("energy: %.10f Eh\n", energy)
	grad := fac.Gradient()
	fmt.Println("gradient (Eh/Å):")
	for i, g := range grad {
		fmt.Printf("  %3d  %14.8f  %14.8f  %14.8f\n", i, g[0], g[1], g[2])
	}
	if dip, ok := fac.Dipole(); ok {
		fmt.Printf("dipole: %.6f %.6f %.6f\n", dip[0], dip[1], dip[2])
	}
	return nil
}

func runHessian(cmd *cobra.Command, args []string) error {
	sys, err := loadSystem(args[0])
	if err != nil {
		return err
	}

	hcfg := config.DefaultHessian()
	if configFile != "" {
		hcfg, err = config.LoadHessian(configFile)
		if err != nil {
			return err
		}
	}
	if method != "classical" {
		hcfg.Method = method
	}

	scheme := hessian.SemiNumerical
	if hcfg.Scheme == "full" {
		scheme = hessian.FullNumerical
	}

	engine := hessian.New(hessian.Options{
		Method:  hcfg.Method,
		Threads: hcfg.Threads,
		Scheme:  scheme,
		Step:    hcfg.Step,
		PotentialOptions: potential.Options{Method: hcfg.Method, Threads: hcfg.Threads},
	})

	result, err := engine.Build(context.Background(), sys)
	if err != nil {
		return err
	}

	fmt.Printf("method: %s  scheme: %s\n\n", hcfg.Method, hcfg.Scheme)
	fmt.Println("mode  frequency(cm-1)  imaginary  rigid")
	for i, m := range result.Modes {
		fmt.Printf("%4d  %14.3f  %9v  %5v\n", i, m.Frequency, m.Imaginary, m.RigidBodyMode)
	}
	return nil
}

func runMD(cmd *cobra.Command, args []string) error {
	sys, err := loadSystem(args[0])
	if err != nil {
		return err
	}

	cfg := config.DefaultMD()
	if configFile != "" {
		cfg, err = config.LoadMD(configFile)
		if err != nil {
			return err
		}
	}
	if method != "classical" {
		cfg.Method = method
	}
	if threads > 1 {
		cfg.Threads = threads
	}

	fopts := facade.Options{Method: cfg.Method, Threads: cfg.Threads}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	var trajWriter md.TrajectoryWriter
	if cfg.WriteXYZ {
		trajWriter = molfile.TrajectoryWriter{Path: filepath.Join(dataDir, "trajectory.xyz")}
	}

	sim, err := md.New(cfg, sys, fopts, trajWriter, nil, nil, dataDir)
	if err != nil {
		return err
	}
	if err := sim.Initialise(restartFile); err != nil {
		return err
	}

	nSteps := int(cfg.MaxTime / cfg.DT)
	if nSteps < 1 {
		nSteps = 1
	}

	// saveRestart writes one of the three named exit files §6 expects:
	// curcuma_step_<step>.json on the writerestart cadence,
	// curcuma_final.json at normal or stop-requested exit, and
	// unstable_curcuma.json on abnormal exit.
	saveRestart := func(name string) error {
		geom, velo := sim.Snapshot()
		step, _, avg := sim.State()
		state := restart.FromRunning(cfg.Method, cfg.DT, cfg.MaxTime, avg.T, step, false, cfg.Coupling, cfg.Thermostat, geom, velo)
		return restart.Save(filepath.Join(dataDir, name), state)
	}

	var rows []trajstore.Row
	stepOnce := func() tuiview.Frame {
		step, t, avg := sim.State()
		if step >= nSteps {
			return tuiview.Frame{Step: step, Time: t, Temperature: avg.T, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot, Done: true}
		}
		temp, err := sim.Step()
		step, t, avg = sim.State()
		rows = append(rows, trajstore.Row{Time: t, T: avg.T, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot})
		if err != nil {
			if serr := saveRestart("unstable_curcuma.json"); serr != nil {
				return tuiview.Frame{Step: step, Time: t, Temperature: temp, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot, Err: serr}
			}
			return tuiview.Frame{Step: step, Time: t, Temperature: temp, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot, Err: err}
		}
		if cfg.WriteRestart > 0 && step%cfg.WriteRestart == 0 {
			if serr := saveRestart(fmt.Sprintf("curcuma_step_%d.json", step)); serr != nil {
				return tuiview.Frame{Step: step, Time: t, Temperature: temp, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot, Err: serr}
			}
		}
		if restart.StopRequested(dataDir) {
			return tuiview.Frame{Step: step, Time: t, Temperature: temp, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot, Done: true}
		}
		return tuiview.Frame{Step: step, Time: t, Temperature: temp, Epot: avg.Epot, Ekin: avg.Ekin, Etot: avg.Etot}
	}

	if live {
		m := tuiview.NewModel(cfg.Method, cfg.MaxTime, stepOnce)
		p := tea.NewProgram(m)
		if _, err := p.Run(); err != nil {
			return err
		}
	} else {
		start := time.Now()
		for i := 0; i < nSteps; i++ {
			f := stepOnce()
			if f.Err != nil {
				return f.Err
			}
			if f.Done {
				break
			}
		}
		fmt.Printf("completed %d steps in %v\n", len(rows), time.Since(start))
	}

	if err := saveRestart("curcuma_final.json"); err != nil {
		return err
	}

	store := trajstore.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(cfg.Method, cfg.DT, cfg.MaxTime, cfg.Seed, cfg.Thermostat, rows)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := trajstore.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tTIME\tMAXTIME\tDT\tTHERMOSTAT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.4f\t%s\n",
			r.ID, r.Method, r.Timestamp.Format("2006-01-02 15:04:05"), r.MaxTime, r.DT, r.Thermostat)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	store := trajstore.New(dataDir)
	meta, err := store.Load(runID)
	if err != nil {
		return err
	}
	rows, err := store.LoadRows(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s  method: %s  samples: %d\n\n", meta.ID, meta.Method, len(rows))

	temps := make([]float64, len(rows))
	etots := make([]float64, len(rows))
	for i, r := range rows {
		temps[i] = r.T
		etots[i] = r.Etot
	}

	fmt.Println(asciigraph.Plot(temps, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("temperature (K)")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(etots, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("total energy (Eh)")))
	return nil
}
