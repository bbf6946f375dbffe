package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"thermoblink/app"
	"thermoblink/bus"
	"thermoblink/platform"
	"thermoblink/services/heartbeat"
)

func NewSimCommand() *cobra.Command {
	var (
		duration   time.Duration
		seed       int64
		pressEvery time.Duration
		ambient    float64
		hbEvery    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the firmware task set against a simulated board",
		Long: `Run every firmware task against a simulated board: a 12-bit converter
with supply sag and noise, an SHT31 with optional fault injection, a scripted
button and a recording LED. Prints reading statistics on exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("press-every") {
				cfg.Sim.PressEvery = pressEvery
			}
			if cmd.Flags().Changed("ambient") {
				cfg.Sim.AmbientC = ambient
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			sim := platform.NewSim(cfg.Sim, cfg.SHT31.Address, seed)
			col := newCollector()
			a, err := app.Build(cfg, sim.Target(), newLogger(cfg), app.WithTelemetrySink(col.add))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			if err := retuneHeartbeat(a, hbEvery); err != nil {
				return err
			}
			if err := a.Run(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, col.summary())
			fmt.Fprintf(out, "\n%s presses=%d led_highs=%d adc_samples=%d adc_overlaps=%s\n",
				bold("board:"), a.Press.Presses(), sim.LED.Highs(), sim.ADC.Samples(), overlapStr(sim.ADC.Overlaps()))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "how long to run (0 = until interrupted)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "converter noise seed (default: time-based)")
	cmd.Flags().DurationVar(&pressEvery, "press-every", 0, "press the button at this interval (overrides sim.press_every)")
	cmd.Flags().DurationVar(&hbEvery, "heartbeat-every", 0, "retune the running heartbeat over the bus (0 = keep heartbeat.interval)")
	cmd.Flags().Float64Var(&ambient, "ambient", 0, "ambient temperature in °C (overrides sim.ambient_c)")
	return cmd
}

// retuneHeartbeat sends a new interval to the heartbeat task through its
// bus topic rather than rebuilding the config.
func retuneHeartbeat(a *app.App, every time.Duration) error {
	switch {
	case every == 0:
		return nil
	case every < 0:
		return pkgerrors.Errorf("invalid --heartbeat-every %v", every)
	case a.Heartbeat == nil:
		return pkgerrors.New("--heartbeat-every needs heartbeat.interval > 0")
	}
	heartbeat.SetInterval(a.Bus.NewConnection("host"), every)
	return nil
}

func bold(format string, a ...interface{}) string { return color.New(color.Bold).Sprintf(format, a...) }

func overlapStr(n uint32) string {
	if n == 0 {
		return color.GreenString("0")
	}
	return color.New(color.Bold, color.FgRed).Sprint(n)
}

// collector buffers telemetry values per topic for the exit summary.
type collector struct {
	mu     sync.Mutex
	series map[string][]float64
	errs   map[string]int
}

func newCollector() *collector {
	return &collector{series: map[string][]float64{}, errs: map[string]int{}}
}

func (c *collector) add(m *bus.Message) {
	v, failed, ok := value(m.Payload)
	if !ok {
		return
	}
	topic := m.Topic.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	if failed {
		c.errs[topic]++
		return
	}
	c.series[topic] = append(c.series[topic], v)
}

func (c *collector) summary() []row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(c.series, c.errs)
}
