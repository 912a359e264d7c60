package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FlyingDododo/6dof-application/pkg/config"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

func motionState(cfg config.Config) *motion.State {
	return motion.NewState(motion.WithLimits(cfg.MotionLimits()))
}

func runEncode(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	variantName := fs.String("variant", "standard", "protocol variant: standard or alt")
	presetName := fs.String("preset", "", "start from a preset instead of neutral")
	values := make(map[motion.Axis]*float64, motion.NumAxes)
	for _, a := range motion.Axes {
		values[a] = fs.Float64(a.String(), 0, a.String()+" value, clamped to ±15")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	variant, err := protocol.ParseVariant(*variantName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	state := motion.NewState()
	if *presetName != "" {
		p, err := motion.ParsePreset(*presetName)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		_ = state.Apply(p)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, a := range motion.Axes {
		if set[a.String()] {
			state.Set(a, float32(*values[a]))
		}
	}

	fmt.Fprintln(stdout, protocol.FormatHex(protocol.Encode(state.Pose(), variant)))
	return 0
}

func runDecode(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "decode: missing packet hex")
		return 2
	}
	raw := strings.Join(args, "")
	raw = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(raw)
	packet, err := hex.DecodeString(raw)
	if err != nil {
		fmt.Fprintln(stderr, "decode: invalid hex:", err)
		return 2
	}

	frame, err := protocol.Decode(packet)
	if err != nil {
		fmt.Fprintln(stderr, "decode:", err)
		return 1
	}
	fmt.Fprintf(stdout, "variant:  %s [%s]\n", frame.Variant, frame.Variant.Header())
	fmt.Fprintf(stdout, "declared: 0x%02X\n", frame.DeclaredLength)
	fmt.Fprintf(stdout, "size:     %d\n", frame.Size)
	for _, a := range motion.Axes {
		fmt.Fprintf(stdout, "%-9s %g\n", a.String()+":", frame.Pose.Get(a))
	}
	return 0
}

func runConfig(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "init" {
		fmt.Fprintln(stderr, "usage: chairctl config init [--path chairctl.toml] [--force]")
		return 2
	}

	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", config.DefaultConfigPath, "output path")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Fprintf(stderr, "%s already exists (use --force to overwrite)\n", *path)
		return 1
	}
	cfg := config.Default()
	if err := cfg.Save(*path); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "wrote", *path)
	return 0
}
