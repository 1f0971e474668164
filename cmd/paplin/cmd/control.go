package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/config"
	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/sequencer"
)

var lightHold time.Duration

var moveCmd = &cobra.Command{
	Use:   "move <motion> <duration>",
	Short: "Play one motion for a duration",
	Long: `Play one motion for a duration, for example:

  paplin move shoulder-up 500ms
  paplin move grip-close 300

A bare number is read as milliseconds. Ctrl-C halts the arm after the
current step.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var concurrentCmd = &cobra.Command{
	Use:   "concurrent <motion=duration>...",
	Short: "Play several motions at once",
	Long: `Play several motions at the same time, for example:

  paplin concurrent shoulder-up=500ms grip-close=300ms

Requests are merged into one sequence of combined steps.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConcurrent,
}

var lightCmd = &cobra.Command{
	Use:       "light <on|off>",
	Short:     "Switch the indicator light",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runLight,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Halt the arm and switch the light off",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var motionsCmd = &cobra.Command{
	Use:   "motions",
	Short: "List motion names and their instructions",
	Args:  cobra.NoArgs,
	RunE:  runMotions,
}

func init() {
	lightCmd.Flags().DurationVar(&lightHold, "hold", 0, "keep the light on this long (default: until interrupted)")

	rootCmd.AddCommand(moveCmd, concurrentCmd, lightCmd, stopCmd, motionsCmd)
}

// onArm opens the target arm, runs fn and releases the arm.
func onArm(cfg *config.Config, fn func(ctx context.Context, e *command.Engine) error) error {
	a, err := newApp(cfg, targetArms(cfg)...)
	if err != nil {
		return err
	}
	defer a.close()

	e, err := a.engine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = fn(ctx, e)
	if errors.Is(err, context.Canceled) {
		log.Printf("Interrupted, arm %s halted", e.ArmID())
		return nil
	}
	return err
}

func runMove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	motion, _, err := parseMotion(args[0])
	if err != nil {
		return err
	}
	d, err := parseDuration(args[1], cfg.Timing.MaxSliceDuration)
	if err != nil {
		return err
	}

	return onArm(cfg, func(ctx context.Context, e *command.Engine) error {
		log.Printf("Arm %s: %s for %s", e.ArmID(), motion, d)
		return e.Move(ctx, motion, d)
	})
}

func runConcurrent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	steps, err := parseSteps(args, cfg.Timing.MaxSliceDuration)
	if err != nil {
		return err
	}

	return onArm(cfg, func(ctx context.Context, e *command.Engine) error {
		log.Printf("Arm %s: %d concurrent motions", e.ArmID(), len(steps))
		return e.Concurrent(ctx, func(b *sequencer.Builder) {
			for _, s := range steps {
				b.Merge(s.Instruction, s.Duration)
			}
		})
	})
}

func runLight(cmd *cobra.Command, args []string) error {
	on, err := parseLight(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return onArm(cfg, func(ctx context.Context, e *command.Engine) error {
		if !on {
			return e.TurnLightOff(ctx)
		}
		if err := e.TurnLightOn(ctx); err != nil {
			return err
		}

		// The device is neutralised on exit, so hold the light until told to stop.
		log.Printf("Arm %s: light on", e.ArmID())
		if lightHold > 0 {
			select {
			case <-time.After(lightHold):
			case <-ctx.Done():
			}
			return nil
		}
		<-ctx.Done()
		return nil
	})
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return onArm(cfg, func(ctx context.Context, e *command.Engine) error {
		e.Stop(ctx)
		log.Printf("Arm %s stopped", e.ArmID())
		return nil
	})
}

func runMotions(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, name := range move.Names() {
		ins, err := move.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-28s %s\n", name, ins)
	}
	return nil
}
